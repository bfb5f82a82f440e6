package param

import (
	"math"
	"testing"
)

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestSetValueAtTime(t *testing.T) {
	p := New(0, 0, 10)
	p.SetValueAtTime(3, 1)

	if got := p.Advance(0.5); got != 0 {
		t.Fatalf("before event: got=%g want=0", got)
	}
	if got := p.Advance(1); got != 3 {
		t.Fatalf("at event: got=%g want=3", got)
	}
	if !p.Settled() {
		t.Fatal("expected param to be settled after last event")
	}
}

func TestLinearRamp(t *testing.T) {
	p := New(0, -1, 1)
	p.SetValueAtTime(0, 0)
	p.LinearRampToValueAtTime(1, 2)

	for _, tc := range []struct{ t, want float64 }{{0, 0}, {0.5, 0.25}, {1, 0.5}, {2, 1}, {3, 1}} {
		if got := p.Advance(tc.t); !near(got, tc.want, 1e-12) {
			t.Fatalf("t=%g: got=%g want=%g", tc.t, got, tc.want)
		}
	}
}

func TestLinearRampMayReachZero(t *testing.T) {
	p := New(1, 0, 1)
	p.SetValueAtTime(1, 0)
	p.LinearRampToValueAtTime(0, 1)
	if got := p.Advance(1); got != 0 {
		t.Fatalf("got=%g want=0", got)
	}
}

func TestExponentialRamp(t *testing.T) {
	p := New(1, 0, 1)
	p.SetValueAtTime(1, 0)
	p.ExponentialRampToValueAtTime(0.01, 1)

	if got := p.Advance(0.5); !near(got, 0.1, 1e-12) {
		t.Fatalf("midpoint: got=%g want=0.1", got)
	}
	if got := p.Advance(1); !near(got, 0.01, 1e-15) {
		t.Fatalf("end: got=%g want=0.01", got)
	}
}

func TestExponentialRampToZeroHoldsThenJumps(t *testing.T) {
	p := New(0.5, 0, 1)
	p.SetValueAtTime(0.5, 0)
	p.ExponentialRampToValueAtTime(0, 1)

	if got := p.Advance(0.99); got != 0.5 {
		t.Fatalf("before end: got=%g want=0.5", got)
	}
	if got := p.Advance(1); got != 0 {
		t.Fatalf("at end: got=%g want=0", got)
	}
}

func TestSetTargetApproach(t *testing.T) {
	p := New(1, 0, 1)
	p.SetTargetAtTime(0, 0, 0.1)

	p.Advance(0)
	got := p.Advance(0.1)
	if want := math.Exp(-1); !near(got, want, 1e-12) {
		t.Fatalf("after one tau: got=%g want=%g", got, want)
	}
	if got := p.Advance(2); got > 1e-6 {
		t.Fatalf("after 20 tau: got=%g want~0", got)
	}
}

func TestSetTargetRetargetsRampSmoothly(t *testing.T) {
	p := New(0, 0, 1)
	p.SetValueAtTime(0, 0)
	p.LinearRampToValueAtTime(1, 1)

	if got := p.Advance(0.5); !near(got, 0.5, 1e-12) {
		t.Fatalf("ramp midpoint: got=%g want=0.5", got)
	}

	p.SetTargetAtTime(0, 0.5, 0.1)
	if got := p.Advance(0.5); !near(got, 0.5, 1e-12) {
		t.Fatalf("retarget start: got=%g want=0.5 (no jump)", got)
	}
	if got := p.Advance(0.6); !near(got, 0.5*math.Exp(-1), 1e-12) {
		t.Fatalf("one tau later: got=%g want=%g", got, 0.5*math.Exp(-1))
	}
}

func TestRampAfterTargetStartsFromCurrentValue(t *testing.T) {
	p := New(1, 0, 1)
	p.SetTargetAtTime(0, 0, 0.1)
	p.Advance(0)
	v := p.Advance(0.1)

	p.LinearRampToValueAtTime(1, 0.2)
	if got := p.Advance(0.15); !near(got, v+(1-v)*0.5, 1e-12) {
		t.Fatalf("ramp midpoint: got=%g want=%g", got, v+(1-v)*0.5)
	}
}

func TestCancelScheduledValues(t *testing.T) {
	p := New(0.2, 0, 1)
	p.SetValueAtTime(0.2, 0)
	p.LinearRampToValueAtTime(1, 1)
	p.Advance(0.5)

	p.CancelScheduledValues(0.5)
	if p.Pending() != 0 {
		t.Fatalf("pending=%d want=0", p.Pending())
	}
	cur := p.Value()
	p.SetValueAtTime(cur, 0.5)
	if got := p.Advance(0.75); !near(got, 0.6, 1e-12) {
		t.Fatalf("after cancel: got=%g want=0.6", got)
	}
}

func TestClampAndNaN(t *testing.T) {
	p := New(5, 0, 1)
	if p.Value() != 1 {
		t.Fatalf("initial clamp: got=%g want=1", p.Value())
	}
	p.SetValueAtTime(math.NaN(), 0)
	p.SetValueAtTime(-3, 0.5)
	if got := p.Advance(1); got != 0 {
		t.Fatalf("got=%g want=0", got)
	}
}

func TestTimelineOverflowAppliesEarliestEvent(t *testing.T) {
	p := New(0, 0, 100)
	for i := 0; i < MaxEvents+4; i++ {
		p.SetValueAtTime(float64(i), float64(i))
	}
	if p.Pending() != MaxEvents {
		t.Fatalf("pending=%d want=%d", p.Pending(), MaxEvents)
	}
	if got := p.Advance(100); got != float64(MaxEvents+3) {
		t.Fatalf("got=%g want=%d", got, MaxEvents+3)
	}
}

func TestFill(t *testing.T) {
	p := New(0, 0, 1)
	p.SetValueAtTime(0, 0)
	p.LinearRampToValueAtTime(1, 4.0/8)

	dst := make([]float64, 8)
	p.Fill(dst, 0, 8)
	want := []float64{0, 0.25, 0.5, 0.75, 1, 1, 1, 1}
	for i := range want {
		if !near(dst[i], want[i], 1e-12) {
			t.Fatalf("dst[%d]=%g want=%g", i, dst[i], want[i])
		}
	}
}

func TestSchedulingDoesNotAllocate(t *testing.T) {
	p := New(0, 0, 1)
	now := 0.0
	allocs := testing.AllocsPerRun(100, func() {
		p.CancelScheduledValues(now)
		p.SetValueAtTime(p.Value(), now)
		p.ExponentialRampToValueAtTime(0.5, now+0.01)
		p.SetTargetAtTime(0.2, now+0.02, 0.1)
		for i := 0; i < 64; i++ {
			p.Advance(now)
			now += 1.0 / 48000
		}
	})
	if allocs != 0 {
		t.Fatalf("allocs=%v want=0", allocs)
	}
}
