package interp

import "testing"

func TestHermite4IdentityOnLinearRamp(t *testing.T) {
	xm1, x0, x1, x2 := -1.0, 0.0, 1.0, 2.0
	for _, tc := range []struct {
		t float64
		w float64
	}{
		{t: 0.0, w: 0.0},
		{t: 0.25, w: 0.25},
		{t: 0.5, w: 0.5},
		{t: 1.0, w: 1.0},
	} {
		got := Hermite4(tc.t, xm1, x0, x1, x2)
		if diff := got - tc.w; diff < -1e-12 || diff > 1e-12 {
			t.Fatalf("t=%v: got %v want %v", tc.t, got, tc.w)
		}
	}
}

func TestRingIntegerPositionsAreExact(t *testing.T) {
	buf := []float64{3, -1, 4, 1, -5}
	for i := range 12 {
		if got, want := Ring(buf, float64(i)), buf[i%len(buf)]; got != want {
			t.Fatalf("Ring(%d)=%g want=%g", i, got, want)
		}
	}
}

func TestRingWrapsAroundEnd(t *testing.T) {
	// A ramp stored with its start at index 3, so reads cross the end.
	buf := []float64{2, 3, 4, -1, 0, 1}
	for _, tc := range []struct{ pos, want float64 }{
		{4.5, 0.5},
		{5.5, 1.5},
		{6.25, 2.25},
	} {
		got := Ring(buf, tc.pos)
		if diff := got - tc.want; diff < -1e-12 || diff > 1e-12 {
			t.Fatalf("Ring(%g)=%g want=%g", tc.pos, got, tc.want)
		}
	}
	if Ring(nil, 1.5) != 0 {
		t.Fatal("empty buffer should read as silence")
	}
}
