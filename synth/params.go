package synth

import (
	"fmt"
	"strings"

	"github.com/drew1981/DrewPolySynth/dsp/core"
	"github.com/drew1981/DrewPolySynth/dsp/effects"
	"github.com/drew1981/DrewPolySynth/dsp/effects/reverb"
	"github.com/drew1981/DrewPolySynth/dsp/filter/biquad"
	"github.com/drew1981/DrewPolySynth/dsp/osc"
)

// Polyphony ceilings per performance mode.
const (
	EcoMaxVoices = 6
	HQMaxVoices  = 16
)

// PerformanceMode trades polyphony and reverb length for CPU headroom.
type PerformanceMode int

const (
	HQ PerformanceMode = iota
	Eco
)

func (m PerformanceMode) String() string {
	switch m {
	case HQ:
		return "HQ"
	case Eco:
		return "Eco"
	default:
		return fmt.Sprintf("PerformanceMode(%d)", int(m))
	}
}

// Valid reports whether m is HQ or Eco.
func (m PerformanceMode) Valid() bool { return m == HQ || m == Eco }

// MaxVoices returns the polyphony ceiling of m.
func (m PerformanceMode) MaxVoices() int {
	if m == Eco {
		return EcoMaxVoices
	}
	return HQMaxVoices
}

// ParsePerformanceMode converts "HQ" or "Eco" into a PerformanceMode.
func ParsePerformanceMode(name string) (PerformanceMode, error) {
	switch strings.ToLower(name) {
	case "hq":
		return HQ, nil
	case "eco":
		return Eco, nil
	}
	return HQ, fmt.Errorf("synth: unknown performance mode %q", name)
}

// MarshalText encodes m as "HQ" or "Eco".
func (m PerformanceMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid %s", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name accepted by ParsePerformanceMode.
func (m *PerformanceMode) UnmarshalText(text []byte) error {
	v, err := ParsePerformanceMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// LFOTarget selects what the voice LFO modulates.
type LFOTarget int

const (
	TargetPitch LFOTarget = iota
	TargetCutoff
	TargetAmplitude
)

var lfoTargetNames = [...]string{"pitch", "cutoff", "amp"}

func (t LFOTarget) String() string {
	if !t.Valid() {
		return fmt.Sprintf("LFOTarget(%d)", int(t))
	}
	return lfoTargetNames[t]
}

// Valid reports whether t is a known destination.
func (t LFOTarget) Valid() bool { return t >= TargetPitch && t <= TargetAmplitude }

// DepthScale converts the depth control into the destination's unit:
// cents for pitch, Hz for cutoff, linear gain for amplitude.
func (t LFOTarget) DepthScale() float64 {
	switch t {
	case TargetPitch:
		return 10
	case TargetCutoff:
		return 100
	case TargetAmplitude:
		return 0.5
	default:
		return 1
	}
}

// ParseLFOTarget converts "pitch", "cutoff" or "amp" into an LFOTarget.
func ParseLFOTarget(name string) (LFOTarget, error) {
	for i, n := range lfoTargetNames {
		if strings.EqualFold(name, n) {
			return LFOTarget(i), nil
		}
	}
	if strings.EqualFold(name, "amplitude") {
		return TargetAmplitude, nil
	}
	return TargetCutoff, fmt.Errorf("synth: unknown lfo target %q", name)
}

// MarshalText encodes t as "pitch", "cutoff" or "amp".
func (t LFOTarget) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid %s", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a target name accepted by ParseLFOTarget.
func (t *LFOTarget) UnmarshalText(text []byte) error {
	v, err := ParseLFOTarget(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// OscillatorParams selects the voice waveform and its detune.
type OscillatorParams struct {
	Waveform osc.Waveform `json:"type"`
	Detune   float64      `json:"detune"` // cents
}

// FilterParams configures the per-voice filter and its envelope sweep.
type FilterParams struct {
	Type      biquad.Kind `json:"type"`
	Cutoff    float64     `json:"cutoff"`    // Hz
	Resonance float64     `json:"resonance"` // dB for lowpass/highpass, Q otherwise
	EnvAmount float64     `json:"envAmount"` // Hz added at the envelope peak
}

// EnvelopeParams are in seconds except Sustain, a linear level.
type EnvelopeParams struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

// LFOParams configures the per-voice LFO.
type LFOParams struct {
	Rate   float64   `json:"rate"` // Hz
	Depth  float64   `json:"depth"`
	Target LFOTarget `json:"target"`
}

// GranularParams configures the granular stage of the effects chain.
type GranularParams struct {
	Enabled   bool    `json:"enabled"`
	Mix       float64 `json:"mix"`
	GrainSize float64 `json:"grainSize"` // seconds
	Density   float64 `json:"density"`
	Spread    float64 `json:"spread"`
	Feedback  float64 `json:"feedback"`
}

// Effect returns the processor settings for the granular stage.
func (g GranularParams) Effect() effects.GranularParams {
	return effects.GranularParams{
		Enabled:   g.Enabled,
		GrainSize: g.GrainSize,
		Density:   g.Density,
		Spread:    g.Spread,
		Feedback:  g.Feedback,
	}
}

// Levels returns the dry and wet gains of the granular stage.
func (g GranularParams) Levels() (dry, wet float64) { return stageLevels(g.Enabled, g.Mix) }

// DelayParams configures the quantized pitch delay.
type DelayParams struct {
	Enabled     bool          `json:"enabled"`
	Time        float64       `json:"time"` // seconds
	Feedback    float64       `json:"feedback"`
	Mix         float64       `json:"mix"`
	PitchRandom float64       `json:"pitchRandom"`
	RootKey     effects.Key   `json:"rootKey"`
	Scale       effects.Scale `json:"scale"`
}

// Effect returns the processor settings for the delay stage.
func (d DelayParams) Effect() effects.DelayParams {
	return effects.DelayParams{
		Enabled:     d.Enabled,
		Time:        d.Time,
		Feedback:    d.Feedback,
		PitchRandom: d.PitchRandom,
		RootKey:     d.RootKey,
		Scale:       d.Scale,
	}
}

// Levels returns the dry and wet gains of the delay stage.
func (d DelayParams) Levels() (dry, wet float64) { return stageLevels(d.Enabled, d.Mix) }

// MasterParams sets the output gain and the reverb bus.
type MasterParams struct {
	Gain       float64     `json:"gain"`
	ReverbMix  float64     `json:"reverbMix"`
	ReverbType reverb.Type `json:"reverbType"`
}

// Snapshot is a complete set of synth parameters. It is a value type;
// every update replaces it wholesale.
type Snapshot struct {
	Mode       PerformanceMode  `json:"performanceMode"`
	Oscillator OscillatorParams `json:"oscillator"`
	Filter     FilterParams     `json:"filter"`
	Envelope   EnvelopeParams   `json:"envelope"`
	LFO        LFOParams        `json:"lfo"`
	Granular   GranularParams   `json:"granular"`
	Delay      DelayParams      `json:"delay"`
	Master     MasterParams     `json:"master"`
}

// DefaultSnapshot returns the Init Saw patch.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Mode:       HQ,
		Oscillator: OscillatorParams{Waveform: osc.Sawtooth, Detune: 0},
		Filter:     FilterParams{Type: biquad.Lowpass, Cutoff: 2000, Resonance: 5, EnvAmount: 1000},
		Envelope:   EnvelopeParams{Attack: 0.1, Decay: 0.3, Sustain: 0.5, Release: 0.8},
		LFO:        LFOParams{Rate: 0, Depth: 0, Target: TargetCutoff},
		Granular: GranularParams{
			Enabled: false, Mix: 0.4, GrainSize: 0.1, Density: 0.5, Spread: 0.8, Feedback: 0.2,
		},
		Delay: DelayParams{
			Enabled: false, Time: 0.5, Feedback: 0.3, Mix: 0.4, PitchRandom: 0,
			RootKey: effects.KeyC, Scale: effects.Major,
		},
		Master: MasterParams{Gain: 0.4, ReverbMix: 0.3, ReverbType: reverb.Hall},
	}
}

// Sanitize returns s with every field clamped into its documented range.
// NaN falls back to the default patch and unknown enums to the default
// enum.
func (s Snapshot) Sanitize() Snapshot {
	d := DefaultSnapshot()

	if !s.Mode.Valid() {
		s.Mode = d.Mode
	}

	if !s.Oscillator.Waveform.Valid() {
		s.Oscillator.Waveform = d.Oscillator.Waveform
	}
	s.Oscillator.Detune = core.ClampFinite(s.Oscillator.Detune, -100, 100, d.Oscillator.Detune)

	if !s.Filter.Type.Valid() {
		s.Filter.Type = d.Filter.Type
	}
	s.Filter.Cutoff = core.ClampFinite(s.Filter.Cutoff, 20, 20000, d.Filter.Cutoff)
	s.Filter.Resonance = core.ClampFinite(s.Filter.Resonance, 0, 30, d.Filter.Resonance)
	s.Filter.EnvAmount = core.ClampFinite(s.Filter.EnvAmount, -5000, 5000, d.Filter.EnvAmount)

	s.Envelope.Attack = core.ClampFinite(s.Envelope.Attack, 0.001, 5, d.Envelope.Attack)
	s.Envelope.Decay = core.ClampFinite(s.Envelope.Decay, 0.001, 5, d.Envelope.Decay)
	s.Envelope.Sustain = core.ClampFinite(s.Envelope.Sustain, 0, 1, d.Envelope.Sustain)
	s.Envelope.Release = core.ClampFinite(s.Envelope.Release, 0.01, 10, d.Envelope.Release)

	s.LFO.Rate = core.ClampFinite(s.LFO.Rate, 0, 20, d.LFO.Rate)
	s.LFO.Depth = core.ClampFinite(s.LFO.Depth, 0, 100, d.LFO.Depth)
	if !s.LFO.Target.Valid() {
		s.LFO.Target = d.LFO.Target
	}

	s.Granular.Mix = core.ClampFinite(s.Granular.Mix, 0, 1, d.Granular.Mix)
	s.Granular.GrainSize = core.ClampFinite(s.Granular.GrainSize, 0.01, 0.5, d.Granular.GrainSize)
	s.Granular.Density = core.ClampFinite(s.Granular.Density, 0, 1, d.Granular.Density)
	s.Granular.Spread = core.ClampFinite(s.Granular.Spread, 0, 1, d.Granular.Spread)
	s.Granular.Feedback = core.ClampFinite(s.Granular.Feedback, 0, 0.95, d.Granular.Feedback)

	s.Delay.Time = core.ClampFinite(s.Delay.Time, 0.01, 1.5, d.Delay.Time)
	s.Delay.Feedback = core.ClampFinite(s.Delay.Feedback, 0, 0.95, d.Delay.Feedback)
	s.Delay.Mix = core.ClampFinite(s.Delay.Mix, 0, 1, d.Delay.Mix)
	s.Delay.PitchRandom = core.ClampFinite(s.Delay.PitchRandom, 0, 1, d.Delay.PitchRandom)
	if !s.Delay.RootKey.Valid() {
		s.Delay.RootKey = d.Delay.RootKey
	}
	if !s.Delay.Scale.Valid() {
		s.Delay.Scale = d.Delay.Scale
	}

	s.Master.Gain = core.ClampFinite(s.Master.Gain, 0, 1, d.Master.Gain)
	s.Master.ReverbMix = core.ClampFinite(s.Master.ReverbMix, 0, 1, d.Master.ReverbMix)
	if !s.Master.ReverbType.Valid() {
		s.Master.ReverbType = d.Master.ReverbType
	}

	return s
}

// ReverbLevels returns the dry and wet gains of the reverb bus.
func (s Snapshot) ReverbLevels() (dry, wet float64) {
	return reverb.MixLevels(s.Master.ReverbType, s.Master.ReverbMix)
}

// Dirty flags the subsections that differ between two snapshots.
type Dirty struct {
	Mode       bool
	Voice      bool // oscillator, filter, envelope or LFO
	Granular   bool
	Delay      bool
	Reverb     bool // type or mix
	MasterGain bool
}

// Any reports whether anything changed.
func (d Dirty) Any() bool {
	return d.Mode || d.Voice || d.Granular || d.Delay || d.Reverb || d.MasterGain
}

// Diff compares prev and next subsection by subsection.
func Diff(prev, next Snapshot) Dirty {
	return Dirty{
		Mode: prev.Mode != next.Mode,
		Voice: prev.Oscillator != next.Oscillator || prev.Filter != next.Filter ||
			prev.Envelope != next.Envelope || prev.LFO != next.LFO,
		Granular:   prev.Granular != next.Granular,
		Delay:      prev.Delay != next.Delay,
		Reverb:     prev.Master.ReverbType != next.Master.ReverbType || prev.Master.ReverbMix != next.Master.ReverbMix,
		MasterGain: prev.Master.Gain != next.Master.Gain,
	}
}

func stageLevels(enabled bool, mix float64) (dry, wet float64) {
	if !enabled {
		return 1, 0
	}
	return 1 - mix, mix
}
