package dynamics

import (
	"math"
	"testing"
)

func TestNewCompressor(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		wantErr    bool
	}{
		{"valid 44100", 44100, false},
		{"valid 48000", 48000, false},
		{"invalid zero", 0, true},
		{"invalid negative", -1, true},
		{"invalid NaN", math.NaN(), true},
		{"invalid +Inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompressor(tt.sampleRate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCompressor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c == nil {
				t.Fatal("NewCompressor() returned nil without error")
			}
		})
	}
}

func TestCompressorDefaults(t *testing.T) {
	c, err := NewCompressor(48000)
	if err != nil {
		t.Fatalf("NewCompressor() error = %v", err)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"Threshold", c.Threshold(), -20},
		{"Ratio", c.Ratio(), 4},
		{"Knee", c.Knee(), 30},
		{"Attack", c.Attack(), 3},
		{"Release", c.Release(), 250},
		{"SampleRate", c.SampleRate(), 48000},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %f, want %f", tt.name, tt.got, tt.want)
		}
	}
	if !c.AutoMakeup() || c.MakeupGain() <= 1 {
		t.Fatalf("auto makeup: enabled=%v gain=%g", c.AutoMakeup(), c.MakeupGain())
	}
}

func TestCompressorSetterValidation(t *testing.T) {
	c, _ := NewCompressor(48000)

	if err := c.SetRatio(0.5); err == nil {
		t.Error("SetRatio(0.5) should fail")
	}
	if err := c.SetKnee(41); err == nil {
		t.Error("SetKnee(41) should fail")
	}
	if err := c.SetAttack(-1); err == nil {
		t.Error("SetAttack(-1) should fail")
	}
	if err := c.SetRelease(math.NaN()); err == nil {
		t.Error("SetRelease(NaN) should fail")
	}
	if err := c.SetThreshold(math.Inf(-1)); err == nil {
		t.Error("SetThreshold(-Inf) should fail")
	}
	if err := c.SetAttack(0); err != nil {
		t.Errorf("SetAttack(0) error = %v", err)
	}
}

func TestCompressorStaticCurve(t *testing.T) {
	c, _ := NewCompressor(48000)
	c.SetAutoMakeup(false)

	// Far below threshold and knee: unity.
	if got := c.CalculateOutputLevel(0.001); math.Abs(got-0.001) > 1e-12 {
		t.Fatalf("below knee: got=%g want=0.001", got)
	}

	// Well above the knee the slope is 1/ratio.
	_ = c.SetKnee(0)
	for _, inDB := range []float64{-10, 0, 6} {
		out := 20 * math.Log10(c.CalculateOutputLevel(math.Pow(10, inDB/20)))
		want := -20 + (inDB+20)/4
		if math.Abs(out-want) > 1e-6 {
			t.Fatalf("in=%g dB: out=%g want=%g", inDB, out, want)
		}
	}
}

func TestCompressorCurveIsMonotonic(t *testing.T) {
	c, _ := NewCompressor(48000)
	prev := 0.0
	for db := -80.0; db <= 12; db += 0.5 {
		out := c.CalculateOutputLevel(math.Pow(10, db/20))
		if out < prev {
			t.Fatalf("output fell at %g dB: %g < %g", db, out, prev)
		}
		prev = out
	}
}

func TestCompressorStereoLinked(t *testing.T) {
	c, _ := NewCompressor(48000)
	n := 4800
	left := make([]float64, n)
	right := make([]float64, n)
	for i := range left {
		left[i] = 1.0
		right[i] = 0.1
	}
	c.ProcessStereo(left, right)

	for i := range n {
		if math.Abs(left[i]/right[i]-10) > 1e-9 {
			t.Fatalf("sample %d: ratio=%g, channels must share one gain", i, left[i]/right[i])
		}
	}
	if c.Reduction() >= -3 {
		t.Fatalf("expected substantial reduction, got %g dB", c.Reduction())
	}
	m := c.Metrics()
	if m.InputPeak != 1 || m.GainReduction >= 1 {
		t.Fatalf("metrics=%+v", m)
	}
}

func TestCompressorAttackAndRelease(t *testing.T) {
	c, _ := NewCompressor(48000)
	c.SetAutoMakeup(false)

	loud := make([]float64, 48000/10)
	for i := range loud {
		loud[i] = 1
	}
	quiet := make([]float64, len(loud))
	c.ProcessStereo(loud, quiet)
	if c.Reduction() > -6 {
		t.Fatalf("after 100 ms of full scale: reduction=%g dB", c.Reduction())
	}

	// 250 ms half-life release: after one second of silence the envelope
	// sits near -24 dB, inside the knee, and only a dB or two remains.
	silence := make([]float64, 48000)
	silence2 := make([]float64, 48000)
	c.ProcessStereo(silence, silence2)
	if c.Reduction() < -2.5 {
		t.Fatalf("after release: reduction=%g dB", c.Reduction())
	}
}

func TestCompressorReset(t *testing.T) {
	c, _ := NewCompressor(48000)
	for range 1000 {
		c.ProcessSample(1)
	}
	c.Reset()
	if c.Reduction() != 0 {
		t.Fatalf("reduction after reset=%g", c.Reduction())
	}
	if m := c.Metrics(); m.InputPeak != 0 || m.GainReduction != 1 {
		t.Fatalf("metrics after reset=%+v", m)
	}
	if got := c.ProcessSample(0); got != 0 {
		t.Fatalf("silence in gives %g", got)
	}
}

func TestGainMathWrappers(t *testing.T) {
	// Loose enough for the fastmath approximations.
	const tol = 1e-3
	for _, x := range []float64{0.01, 0.1, 0.5, 1, 2, 8} {
		if got, want := mathLog2(x), math.Log2(x); math.Abs(got-want) > tol {
			t.Fatalf("mathLog2(%g) got=%g want=%g", x, got, want)
		}
	}
	for _, x := range []float64{-6, -1.5, 0, 0.75, 3} {
		if got, want := mathPower2(x), math.Exp2(x); math.Abs(got-want) > tol*want {
			t.Fatalf("mathPower2(%g) got=%g want=%g", x, got, want)
		}
	}
}
