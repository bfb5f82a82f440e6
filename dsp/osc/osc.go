// Package osc provides phase-accumulating oscillators for voices and LFOs.
package osc

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

var waveformNames = [...]string{"sine", "square", "sawtooth", "triangle"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
	return waveformNames[w]
}

// Valid reports whether w names a known waveform.
func (w Waveform) Valid() bool { return w >= Sine && w <= Triangle }

// ParseWaveform converts a waveform name into a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	for i, n := range waveformNames {
		if strings.EqualFold(name, n) {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("osc: unknown waveform %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (w Waveform) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid %s", w)
	}
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Waveform) UnmarshalText(text []byte) error {
	v, err := ParseWaveform(string(text))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Oscillator is a band-limited (PolyBLEP) oscillator. Frequency is passed per
// sample so that callers can apply modulation without extra state.
type Oscillator struct {
	sampleRate float64
	wave       Waveform
	phase      float64
}

// New creates an oscillator at phase 0.
func New(sampleRate float64, wave Waveform) (*Oscillator, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("oscillator sample rate must be > 0: %f", sampleRate)
	}
	if !wave.Valid() {
		wave = Sine
	}
	return &Oscillator{sampleRate: sampleRate, wave: wave}, nil
}

// Waveform returns the current shape.
func (o *Oscillator) Waveform() Waveform { return o.wave }

// SetWaveform switches the shape without resetting phase. Unknown
// waveforms are ignored.
func (o *Oscillator) SetWaveform(w Waveform) {
	if w.Valid() {
		o.wave = w
	}
}

// Phase returns the normalized phase in [0, 1).
func (o *Oscillator) Phase() float64 { return o.phase }

// Reset sets the normalized phase.
func (o *Oscillator) Reset(phase float64) {
	o.phase = phase - math.Floor(phase)
}

// Next returns one sample at freqHz and advances the phase.
func (o *Oscillator) Next(freqHz float64) float64 {
	inc := freqHz / o.sampleRate
	if !(inc > 0) {
		inc = 0
	} else if inc > 0.5 {
		inc = 0.5
	}

	t := o.phase
	var y float64
	switch o.wave {
	case Square:
		if t < 0.5 {
			y = 1
		} else {
			y = -1
		}
		y += polyBLEP(t, inc)
		y -= polyBLEP(math.Mod(t+0.5, 1), inc)
	case Sawtooth:
		y = 2*t - 1
		y -= polyBLEP(t, inc)
	case Triangle:
		if t < 0.5 {
			y = 4*t - 1
		} else {
			y = 3 - 4*t
		}
	default:
		y = math.Sin(2 * math.Pi * t)
	}

	o.phase += inc
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return y
}

// polyBLEP returns the band-limited step residual for a discontinuity at
// phase 0.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}
