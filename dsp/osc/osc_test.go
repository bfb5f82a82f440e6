package osc

import (
	"math"
	"testing"
)

func TestNewRejectsInvalidSampleRate(t *testing.T) {
	for _, sr := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := New(sr, Sine); err == nil {
			t.Fatalf("expected error for sample rate %v", sr)
		}
	}
}

func TestSineMatchesReference(t *testing.T) {
	o, err := New(48000, Sine)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 480; i++ {
		got := o.Next(1000)
		want := math.Sin(2 * math.Pi * 1000 * float64(i) / 48000)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("sample %d: got=%g want=%g", i, got, want)
		}
	}
}

func TestWaveformsStayBounded(t *testing.T) {
	for _, w := range []Waveform{Sine, Square, Sawtooth, Triangle} {
		t.Run(w.String(), func(t *testing.T) {
			o, _ := New(48000, w)
			mean := 0.0
			n := 48000
			for i := 0; i < n; i++ {
				y := o.Next(220)
				if math.IsNaN(y) || math.Abs(y) > 1.1 {
					t.Fatalf("sample %d out of range: %g", i, y)
				}
				mean += y
			}
			if mean /= float64(n); math.Abs(mean) > 0.01 {
				t.Fatalf("dc offset %g", mean)
			}
		})
	}
}

func TestPhaseAdvance(t *testing.T) {
	o, _ := New(1000, Sawtooth)
	for i := 0; i < 5; i++ {
		o.Next(100)
	}
	if math.Abs(o.Phase()-0.5) > 1e-12 {
		t.Fatalf("phase=%g want=0.5", o.Phase())
	}
	o.Next(-50)
	if math.Abs(o.Phase()-0.5) > 1e-12 {
		t.Fatalf("negative frequency must not move phase, got %g", o.Phase())
	}
}

func TestParseWaveform(t *testing.T) {
	w, err := ParseWaveform("SawTooth")
	if err != nil || w != Sawtooth {
		t.Fatalf("got=%v err=%v", w, err)
	}
	if _, err := ParseWaveform("noise"); err == nil {
		t.Fatal("expected error for unknown waveform")
	}
	if Waveform(9).Valid() {
		t.Fatal("out-of-range waveform reported valid")
	}
}
