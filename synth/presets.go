package synth

import (
	"fmt"
	"strings"

	"github.com/drew1981/DrewPolySynth/dsp/effects"
	"github.com/drew1981/DrewPolySynth/dsp/effects/reverb"
	"github.com/drew1981/DrewPolySynth/dsp/filter/biquad"
	"github.com/drew1981/DrewPolySynth/dsp/osc"
)

// Preset is a named patch.
type Preset struct {
	Name   string   `json:"name"`
	Params Snapshot `json:"params"`
}

// Presets returns the factory patches. The slice is freshly built on every
// call.
func Presets() []Preset {
	def := DefaultSnapshot()

	return []Preset{
		{Name: "Init Saw", Params: def},
		{
			Name: "Soft Pad",
			Params: Snapshot{
				Mode:       HQ,
				Oscillator: OscillatorParams{Waveform: osc.Triangle, Detune: 5},
				Filter:     FilterParams{Type: biquad.Lowpass, Cutoff: 600, Resonance: 2, EnvAmount: 400},
				Envelope:   EnvelopeParams{Attack: 0.8, Decay: 1.5, Sustain: 0.6, Release: 2.0},
				LFO:        LFOParams{Rate: 0.5, Depth: 20, Target: TargetPitch},
				Granular:   GranularParams{Mix: 0.3, GrainSize: 0.1, Density: 0.5, Spread: 0.5},
				Delay:      def.Delay,
				Master:     MasterParams{Gain: 0.5, ReverbMix: 0.6, ReverbType: reverb.Hall},
			},
		},
		{
			Name: "Granular Cloud",
			Params: Snapshot{
				Mode:       HQ,
				Oscillator: OscillatorParams{Waveform: osc.Sine},
				Filter:     FilterParams{Type: biquad.Bandpass, Cutoff: 1500, Resonance: 1},
				Envelope:   EnvelopeParams{Attack: 0.5, Decay: 0.5, Sustain: 1.0, Release: 2.0},
				LFO:        LFOParams{Rate: 0.2, Target: TargetPitch},
				Granular: GranularParams{
					Enabled: true, Mix: 0.7, GrainSize: 0.2, Density: 0.95, Spread: 1.0, Feedback: 0.6,
				},
				Delay:  def.Delay,
				Master: MasterParams{Gain: 0.5, ReverbMix: 0.5, ReverbType: reverb.Shimmer},
			},
		},
		{
			Name: "Rhythmic Delay",
			Params: Snapshot{
				Mode:       HQ,
				Oscillator: OscillatorParams{Waveform: osc.Square, Detune: -5},
				Filter:     FilterParams{Type: biquad.Lowpass, Cutoff: 1200, Resonance: 4, EnvAmount: 500},
				Envelope:   EnvelopeParams{Attack: 0.01, Decay: 0.2, Sustain: 0.4, Release: 0.5},
				LFO:        LFOParams{Target: TargetCutoff},
				Granular:   GranularParams{GrainSize: 0.1, Density: 0.5},
				Delay: DelayParams{
					Enabled: true, Time: 0.3, Feedback: 0.5, Mix: 0.5, PitchRandom: 0.8,
					RootKey: effects.KeyC, Scale: effects.Minor,
				},
				Master: MasterParams{Gain: 0.4, ReverbMix: 0.2, ReverbType: reverb.Hall},
			},
		},
	}
}

// PresetByName finds a factory patch, ignoring case.
func PresetByName(name string) (Preset, error) {
	for _, p := range Presets() {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("synth: unknown preset %q", name)
}

// Note is one key of the two-octave on-screen keyboard.
type Note struct {
	Name      string
	Octave    int
	Frequency float64
	Sharp     bool
}

// Keyboard lists C3 through B4. The index of a note is its slot.
var Keyboard = [...]Note{
	{"C", 3, 130.81, false}, {"C#", 3, 138.59, true}, {"D", 3, 146.83, false},
	{"D#", 3, 155.56, true}, {"E", 3, 164.81, false}, {"F", 3, 174.61, false},
	{"F#", 3, 185.00, true}, {"G", 3, 196.00, false}, {"G#", 3, 207.65, true},
	{"A", 3, 220.00, false}, {"A#", 3, 233.08, true}, {"B", 3, 246.94, false},
	{"C", 4, 261.63, false}, {"C#", 4, 277.18, true}, {"D", 4, 293.66, false},
	{"D#", 4, 311.13, true}, {"E", 4, 329.63, false}, {"F", 4, 349.23, false},
	{"F#", 4, 369.99, true}, {"G", 4, 392.00, false}, {"G#", 4, 415.30, true},
	{"A", 4, 440.00, false}, {"A#", 4, 466.16, true}, {"B", 4, 493.88, false},
}

// KeyMap maps computer-keyboard characters to Keyboard slots.
var KeyMap = map[rune]int{
	'a': 0, 'w': 1, 's': 2, 'e': 3, 'd': 4,
	'f': 5, 't': 6, 'g': 7, 'y': 8, 'h': 9, 'u': 10, 'j': 11,
	'k': 12, 'o': 13, 'l': 14, 'p': 15, ';': 16,
	'\'': 18,
}

func (n Note) String() string { return fmt.Sprintf("%s%d", n.Name, n.Octave) }

// SlotByName returns the Keyboard slot of a note such as "C4" or "a#3".
func SlotByName(name string) (int, bool) {
	for i, n := range Keyboard {
		if strings.EqualFold(n.String(), name) {
			return i, true
		}
	}
	return 0, false
}
