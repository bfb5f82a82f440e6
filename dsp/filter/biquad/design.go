package biquad

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/drew1981/DrewPolySynth/dsp/core"
)

// Kind selects the filter response.
type Kind int

const (
	Lowpass Kind = iota
	Highpass
	Bandpass
	Notch
)

var kindNames = [...]string{"lowpass", "highpass", "bandpass", "notch"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k names a known response.
func (k Kind) Valid() bool { return k >= Lowpass && k <= Notch }

// ParseKind converts a response name into a Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(name, n) {
			return Kind(i), nil
		}
	}
	return Lowpass, fmt.Errorf("biquad: unknown filter type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid %s", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Design returns RBJ coefficients for kind at freq (Hz).
//
// For lowpass and highpass, q is the resonance in dB at the cutoff and the
// linear quality factor is 10^(q/20). For bandpass and notch, q is the
// linear quality factor. Frequencies at or beyond the band edges degrade
// to passthrough or silence the same way an ideal filter would.
func Design(kind Kind, freq, q, sampleRate float64) Coefficients {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return Coefficients{B0: 1}
	}
	if math.IsNaN(freq) {
		freq = 0
	}
	if math.IsNaN(q) {
		q = 0
	}

	nyquist := sampleRate / 2
	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	sw := math.Sin(w0)

	switch kind {
	case Highpass:
		switch {
		case freq >= nyquist:
			return Coefficients{}
		case freq <= 0:
			return Coefficients{B0: 1}
		}
		alpha := sw / (2 * core.DBToLinear(q))
		return normalizeBiquad((1+cw)/2, -(1 + cw), (1+cw)/2, 1+alpha, -2*cw, 1-alpha)
	case Bandpass:
		if freq <= 0 || freq >= nyquist {
			return Coefficients{}
		}
		if q <= 0 {
			return Coefficients{B0: 1}
		}
		alpha := sw / (2 * q)
		return normalizeBiquad(alpha, 0, -alpha, 1+alpha, -2*cw, 1-alpha)
	case Notch:
		if freq <= 0 || freq >= nyquist {
			return Coefficients{B0: 1}
		}
		if q <= 0 {
			return Coefficients{}
		}
		alpha := sw / (2 * q)
		return normalizeBiquad(1, -2*cw, 1, 1+alpha, -2*cw, 1-alpha)
	default:
		switch {
		case freq >= nyquist:
			return Coefficients{B0: 1}
		case freq <= 0:
			return Coefficients{}
		}
		alpha := sw / (2 * core.DBToLinear(q))
		return normalizeBiquad((1-cw)/2, 1-cw, (1-cw)/2, 1+alpha, -2*cw, 1-alpha)
	}
}

func normalizeBiquad(b0, b1, b2, a0, a1, a2 float64) Coefficients {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return Coefficients{}
	}

	return Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// MagnitudeAt evaluates |H(e^jw)| of c at freq (Hz).
func (c Coefficients) MagnitudeAt(freq, sampleRate float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	z1 := complex(math.Cos(w), -math.Sin(w))
	z2 := z1 * z1
	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := 1 + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	return cmplx.Abs(num / den)
}
