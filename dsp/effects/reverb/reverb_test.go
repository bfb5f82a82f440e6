package reverb

import (
	"math"
	"testing"

	"github.com/drew1981/DrewPolySynth/internal/testutil"
)

const sr = 48000.0

func TestProfiles(t *testing.T) {
	cases := []struct {
		typ      Type
		eco      bool
		duration float64
		decay    float64
	}{
		{Hall, false, 2.5, 2.5},
		{Hall, true, 1.2, 1.2},
		{Shimmer, false, 4.0, 1.2},
		{Shimmer, true, 2.0, 1.2},
	}
	for _, c := range cases {
		p, ok := ProfileFor(c.typ, c.eco)
		if !ok || p.Duration != c.duration || p.Decay != c.decay || p.Shimmer != (c.typ == Shimmer) {
			t.Fatalf("%v eco=%v: got %+v", c.typ, c.eco, p)
		}
	}
	if _, ok := ProfileFor(Off, false); ok {
		t.Fatal("off must not have a profile")
	}
}

func TestGenerateImpulseShape(t *testing.T) {
	p, _ := ProfileFor(Hall, true)
	im, err := GenerateImpulse(p, 8000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if im.Len() != int(8000*p.Duration) {
		t.Fatalf("len=%d want=%d", im.Len(), int(8000*p.Duration))
	}
	testutil.RequireFinite(t, im.Left)
	testutil.RequireFinite(t, im.Right)

	quarter := im.Len() / 4
	early := testutil.RMS(im.Left[:quarter])
	late := testutil.RMS(im.Left[3*quarter:])
	if late >= early {
		t.Fatalf("tail does not decay: early=%g late=%g", early, late)
	}

	same := true
	for i := range im.Left {
		if im.Left[i] != im.Right[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("channels are identical, want decorrelated noise")
	}
}

func TestShimmerOnsetIsSoftened(t *testing.T) {
	p, _ := ProfileFor(Shimmer, true)
	im, err := GenerateImpulse(p, sr, 3)
	if err != nil {
		t.Fatal(err)
	}
	if peak := testutil.Peak(im.Left[:shimmerOnsetLength]); peak > 2*shimmerOnsetGain {
		t.Fatalf("onset peak=%g want <= %g", peak, 2*shimmerOnsetGain)
	}
	if peak := testutil.Peak(im.Left[shimmerOnsetLength : 2*shimmerOnsetLength]); peak < 0.5 {
		t.Fatalf("body peak=%g, expected full-scale noise after the onset", peak)
	}
}

func TestGenerateImpulseValidation(t *testing.T) {
	if _, err := GenerateImpulse(Profile{Duration: 1, Decay: 1}, 0, 1); err == nil {
		t.Fatal("expected sample rate error")
	}
	if _, err := GenerateImpulse(Profile{Duration: 0, Decay: 1}, sr, 1); err == nil {
		t.Fatal("expected duration error")
	}
}

func TestNormalizationScale(t *testing.T) {
	im := &Impulse{SampleRate: normReferenceRate, Left: testutil.DC(0.5, 100), Right: testutil.DC(0.5, 100)}
	if got, want := im.NormalizationScale(), normGainCalibration/0.5; math.Abs(got-want) > 1e-15 {
		t.Fatalf("scale=%g want=%g", got, want)
	}

	quiet := &Impulse{SampleRate: normReferenceRate, Left: make([]float64, 10), Right: make([]float64, 10)}
	if got := quiet.NormalizationScale(); got != normGainCalibration/normMinPower {
		t.Fatalf("silent scale=%g want=%g", got, normGainCalibration/normMinPower)
	}

	im.SampleRate = 2 * normReferenceRate
	im.Normalize()
	if math.Abs(im.Left[0]-0.5*normGainCalibration/0.5/2) > 1e-15 {
		t.Fatalf("normalized sample=%g", im.Left[0])
	}
}

func TestMixLevelsLoudnessCompensation(t *testing.T) {
	prev := math.Inf(1)
	for i := 0; i <= 100; i++ {
		mix := float64(i) / 100
		dry, wet := MixLevels(Hall, mix)
		if wet != mix {
			t.Fatalf("wet=%g want=%g", wet, mix)
		}
		// Dry level plus the wet level rescaled by 0.4 never increases.
		total := dry + wet*0.4
		if total > prev+1e-12 {
			t.Fatalf("mix=%g total=%g rose above %g", mix, total, prev)
		}
		prev = total
	}
	if dry, wet := MixLevels(Off, 0.8); dry != 1 || wet != 0 {
		t.Fatalf("off: dry=%g wet=%g", dry, wet)
	}
	if dry, wet := MixLevels(Shimmer, 7); dry != 0.6 || wet != 1 {
		t.Fatalf("clamped: dry=%g wet=%g", dry, wet)
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("Shimmer")
	if err != nil || typ != Shimmer {
		t.Fatalf("got=%v err=%v", typ, err)
	}
	if _, err := ParseType("plate"); err == nil {
		t.Fatal("expected error")
	}
}
