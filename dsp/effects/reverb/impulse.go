package reverb

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Type selects the reverb character.
type Type int

const (
	Off Type = iota
	Hall
	Shimmer
)

var typeNames = [...]string{"off", "hall", "shimmer"}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Valid reports whether t names a known reverb type.
func (t Type) Valid() bool { return t >= Off && t <= Shimmer }

// ParseType converts a reverb type name into a Type.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if strings.EqualFold(name, n) {
			return Type(i), nil
		}
	}
	return Hall, fmt.Errorf("reverb: unknown type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid %s", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Profile is the shape of a generated impulse response.
type Profile struct {
	Duration float64 // seconds
	Decay    float64 // envelope exponent
	Shimmer  bool
}

const (
	shimmerRippleRate  = 0.3
	shimmerOnsetLength = 500
	shimmerOnsetGain   = 0.1

	// Loudness normalization applied to convolution kernels.
	normGainCalibration = 0.00125
	normMinPower        = 0.000125
	normReferenceRate   = 44100.0
)

// ProfileFor returns the impulse shape of t. Eco shortens both tails to
// bound convolution cost. Off has no profile.
func ProfileFor(t Type, eco bool) (Profile, bool) {
	switch t {
	case Hall:
		if eco {
			return Profile{Duration: 1.2, Decay: 1.2}, true
		}
		return Profile{Duration: 2.5, Decay: 2.5}, true
	case Shimmer:
		if eco {
			return Profile{Duration: 2.0, Decay: 1.2, Shimmer: true}, true
		}
		return Profile{Duration: 4.0, Decay: 1.2, Shimmer: true}, true
	default:
		return Profile{}, false
	}
}

// Impulse is a stereo impulse response.
type Impulse struct {
	SampleRate  float64
	Left, Right []float64
}

// Len returns the response length in samples.
func (im *Impulse) Len() int { return len(im.Left) }

// GenerateImpulse renders p as stereo noise shaped by (1-n)^decay, where n
// is the normalized position. The channels use independent noise.
func GenerateImpulse(p Profile, sampleRate float64, seed uint64) (*Impulse, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("reverb sample rate must be > 0: %f", sampleRate)
	}
	length := int(sampleRate * p.Duration)
	if length <= 0 {
		return nil, fmt.Errorf("reverb impulse duration must be > 0: %f", p.Duration)
	}

	im := &Impulse{
		SampleRate: sampleRate,
		Left:       make([]float64, length),
		Right:      make([]float64, length),
	}
	rngL := rand.New(rand.NewPCG(seed, 0x6c))
	rngR := rand.New(rand.NewPCG(seed, 0x72))

	for i := range length {
		n := float64(i) / float64(length)
		env := math.Pow(1-n, p.Decay)
		l := rngL.Float64()*2 - 1
		r := rngR.Float64()*2 - 1
		if p.Shimmer {
			ripple := 1 + math.Sin(float64(i)*shimmerRippleRate)
			l *= ripple
			r *= ripple
			if i < shimmerOnsetLength {
				l *= shimmerOnsetGain
				r *= shimmerOnsetGain
			}
		}
		im.Left[i] = l * env
		im.Right[i] = r * env
	}

	return im, nil
}

// NormalizationScale returns the gain that brings the response to a
// standard loudness: 0.00125 / max(rms, 0.000125), with the RMS taken over
// both channels, scaled by 44100 / sampleRate so longer kernels at higher
// rates do not come out louder.
func (im *Impulse) NormalizationScale() float64 {
	n := len(im.Left) + len(im.Right)
	if n == 0 {
		return 1
	}
	power := vecmath.DotProduct(im.Left, im.Left) + vecmath.DotProduct(im.Right, im.Right)
	rms := math.Sqrt(power / float64(n))
	if math.IsNaN(rms) || math.IsInf(rms, 0) || rms < normMinPower {
		rms = normMinPower
	}
	scale := normGainCalibration / rms
	if im.SampleRate > 0 {
		scale *= normReferenceRate / im.SampleRate
	}
	return scale
}

// Normalize scales both channels by NormalizationScale in place.
func (im *Impulse) Normalize() {
	s := im.NormalizationScale()
	vecmath.ScaleBlockInPlace(im.Left, s)
	vecmath.ScaleBlockInPlace(im.Right, s)
}

// MixLevels returns the dry and wet gains for t at mix. The dry path is
// attenuated as the wet send rises so total loudness stays roughly level.
func MixLevels(t Type, mix float64) (dry, wet float64) {
	if t == Off || !t.Valid() {
		return 1, 0
	}
	if math.IsNaN(mix) {
		mix = 0
	}
	mix = math.Max(0, math.Min(1, mix))
	return 1 - 0.4*mix, mix
}
