package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "inside", value: 0.5, min: 0, max: 1, expected: 0.5},
		{name: "below", value: -1, min: 0, max: 1, expected: 0},
		{name: "above", value: 2, min: 0, max: 1, expected: 1},
		{name: "swapped", value: 2, min: 1, max: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClampFinite(t *testing.T) {
	if got := ClampFinite(math.NaN(), 0, 1, 0.3); got != 0.3 {
		t.Fatalf("NaN: got=%v want=0.3", got)
	}
	if got := ClampFinite(math.Inf(1), 0, 1, 0.3); got != 1 {
		t.Fatalf("+Inf: got=%v want=1", got)
	}
	if got := ClampFinite(math.Inf(-1), 0, 1, 0.3); got != 0 {
		t.Fatalf("-Inf: got=%v want=0", got)
	}
	if got := ClampFinite(math.NaN(), 0, 1, 5); got != 1 {
		t.Fatalf("fallback outside range: got=%v want=1", got)
	}
}

func TestDBConversions(t *testing.T) {
	linear := DBToLinear(-6)
	db := LinearToDB(linear)
	if math.Abs(db+6) > 1e-10 {
		t.Fatalf("LinearToDB(DBToLinear(-6)) = %v, want -6", db)
	}
	if !math.IsInf(LinearToDB(0), -1) {
		t.Fatal("expected -Inf for zero")
	}
	if !math.IsNaN(LinearToDB(-1)) {
		t.Fatal("expected NaN for negative amplitude")
	}
}

func TestPitchRatios(t *testing.T) {
	if got := SemitonesToRatio(12); math.Abs(got-2) > 1e-12 {
		t.Fatalf("octave up: got=%v want=2", got)
	}
	if got := SemitonesToRatio(-12); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("octave down: got=%v want=0.5", got)
	}
	if got := CentsToRatio(1200); math.Abs(got-2) > 1e-12 {
		t.Fatalf("1200 cents: got=%v want=2", got)
	}
	if got := CentsToRatio(0); got != 1 {
		t.Fatalf("0 cents: got=%v want=1", got)
	}
}
