package synth

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func newManagerVoice(t *testing.T, t0 float64) *Voice {
	t.Helper()
	return newTestVoice(t, testPatch(), t0)
}

func TestNoteOnSameSlotReplaces(t *testing.T) {
	m := NewManager(testRate, HQMaxVoices)
	first := newManagerVoice(t, 0)
	second := newManagerVoice(t, 0)

	m.NoteOn(3, first, 0)
	m.NoteOn(3, second, 0.01)

	if m.Sounding() != 1 || m.Voice(3) != second {
		t.Fatalf("sounding=%d voice replaced=%v", m.Sounding(), m.Voice(3) == second)
	}
	if !first.Stopped() || first.StopTime() > 0.01+forceStopFade+1e-12 {
		t.Fatalf("replaced voice stop time=%g", first.StopTime())
	}
	if m.Releasing() != 1 {
		t.Fatalf("releasing=%d want=1", m.Releasing())
	}
}

func TestPolyphonyCeilingStealsOldest(t *testing.T) {
	for _, mode := range []PerformanceMode{Eco, HQ} {
		n := mode.MaxVoices()
		m := NewManager(testRate, n)
		voices := make([]*Voice, n+1)
		for i := range voices {
			voices[i] = newManagerVoice(t, 0)
			m.NoteOn(i, voices[i], float64(i)*0.001)
			if m.Sounding() > n {
				t.Fatalf("%v: sounding=%d exceeds %d", mode, m.Sounding(), n)
			}
		}

		if m.Voice(0) != nil || !voices[0].Stopped() {
			t.Fatalf("%v: oldest voice was not evicted", mode)
		}
		want := make([]int, n)
		for i := range want {
			want[i] = i + 1
		}
		if got := m.Slots(); !slices.Equal(got, want) {
			t.Fatalf("%v: slots=%v want=%v", mode, got, want)
		}
		if m.Steals() != 1 {
			t.Fatalf("%v: steals=%d", mode, m.Steals())
		}
	}
}

func TestStealOrderFollowsNoteOnNotSoundingTime(t *testing.T) {
	m := NewManager(testRate, 3)
	for slot := range 3 {
		m.NoteOn(slot, newManagerVoice(t, 0), 0)
	}
	// Re-striking slot 0 makes it the newest.
	m.NoteOn(0, newManagerVoice(t, 0), 0.1)
	m.NoteOn(7, newManagerVoice(t, 0), 0.2)

	if got := m.Slots(); !slices.Equal(got, []int{2, 0, 7}) {
		t.Fatalf("slots=%v want=[2 0 7]", got)
	}
}

func TestRetriggerAtCeilingStealsOldestFirst(t *testing.T) {
	n := Eco.MaxVoices()
	m := NewManager(testRate, n)
	voices := make([]*Voice, n)
	for slot := range n {
		voices[slot] = newManagerVoice(t, 0)
		m.NoteOn(slot, voices[slot], 0)
	}
	retrigger := newManagerVoice(t, 0)
	m.NoteOn(3, retrigger, 0.1)

	if m.Steals() != 1 {
		t.Fatalf("steals=%d want=1", m.Steals())
	}
	if m.Voice(0) != nil || !voices[0].Stopped() {
		t.Fatal("oldest voice was not evicted on retrigger at the ceiling")
	}
	if !voices[3].Stopped() || m.Voice(3) != retrigger {
		t.Fatal("retriggered slot was not replaced")
	}
	if got, want := m.Slots(), []int{1, 2, 4, 5, 3}; !slices.Equal(got, want) {
		t.Fatalf("slots=%v want=%v", got, want)
	}
	if m.Sounding() != n-1 {
		t.Fatalf("sounding=%d want=%d", m.Sounding(), n-1)
	}
}

func TestNoteOffReleasesImmediately(t *testing.T) {
	m := NewManager(testRate, HQMaxVoices)
	var released []*Voice
	m.OnRelease = func(v *Voice) { released = append(released, v) }

	v := newManagerVoice(t, 0)
	m.NoteOn(1, v, 0)
	m.NoteOff(1, 0.1)
	m.NoteOff(1, 0.2)
	m.NoteOff(42, 0.2)

	if m.Sounding() != 0 || m.Releasing() != 1 {
		t.Fatalf("sounding=%d releasing=%d", m.Sounding(), m.Releasing())
	}
	if len(released) != 1 || released[0] != v {
		t.Fatalf("OnRelease calls=%d", len(released))
	}
}

func TestHoldDefersRelease(t *testing.T) {
	m := NewManager(testRate, HQMaxVoices)
	m.SetHold(true, 0)
	for slot := range 3 {
		m.NoteOn(slot, newManagerVoice(t, 0), 0)
		m.NoteOff(slot, 0.1)
	}
	if m.Sounding() != 3 || m.Held() != 3 {
		t.Fatalf("sounding=%d held=%d", m.Sounding(), m.Held())
	}

	// Re-striking a held slot clears its pending release.
	m.NoteOn(1, newManagerVoice(t, 0), 0.2)
	if m.Held() != 2 {
		t.Fatalf("held=%d want=2", m.Held())
	}

	m.SetHold(false, 0.3)
	if m.Sounding() != 1 || m.Voice(1) == nil || m.Held() != 0 {
		t.Fatalf("sounding=%d held=%d slots=%v", m.Sounding(), m.Held(), m.Slots())
	}
}

func TestDisposeWaitsForTail(t *testing.T) {
	m := NewManager(testRate, HQMaxVoices)
	v := newManagerVoice(t, 0)
	m.NoteOn(0, v, 0)
	m.NoteOff(0, 0)

	m.Dispose(v, 0.1)
	if m.Releasing() != 1 {
		t.Fatal("voice disposed before its stop time")
	}

	buf := make([]float64, 64)
	for start := 0.0; start < 0.5; start += 64 / testRate {
		clear(buf)
		m.Render(buf, start)
	}
	if m.Releasing() != 0 {
		t.Fatalf("releasing=%d after tail ended", m.Releasing())
	}

	w := newManagerVoice(t, 0)
	m.NoteOn(0, w, 0)
	m.NoteOff(0, 0)
	m.Dispose(w, w.StopTime())
	if m.Releasing() != 0 {
		t.Fatal("finished voice not disposed")
	}
}

func TestSetPolyphonyReleasesExcess(t *testing.T) {
	m := NewManager(testRate, HQMaxVoices)
	for slot := range 10 {
		m.NoteOn(slot, newManagerVoice(t, 0), 0)
	}
	m.SetPolyphony(EcoMaxVoices, 0.1)
	if m.Sounding() != EcoMaxVoices {
		t.Fatalf("sounding=%d want=%d", m.Sounding(), EcoMaxVoices)
	}
	if got := m.Slots(); !slices.Equal(got, []int{4, 5, 6, 7, 8, 9}) {
		t.Fatalf("slots=%v", got)
	}
	if m.Polyphony() != EcoMaxVoices {
		t.Fatalf("polyphony=%d", m.Polyphony())
	}
}

func TestRandomOperationsRespectInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	m := NewManager(testRate, EcoMaxVoices)
	now := 0.0
	for range 2000 {
		now += 0.001
		slot := rng.IntN(24)
		switch rng.IntN(5) {
		case 0, 1:
			m.NoteOn(slot, newManagerVoice(t, now), now)
		case 2:
			m.NoteOff(slot, now)
		case 3:
			m.SetHold(rng.IntN(2) == 0, now)
		case 4:
			m.SetPolyphony([]int{EcoMaxVoices, HQMaxVoices}[rng.IntN(2)], now)
		}

		if m.Sounding() > m.Polyphony() {
			t.Fatalf("sounding=%d exceeds %d", m.Sounding(), m.Polyphony())
		}
		slots := m.Slots()
		seen := map[int]bool{}
		for _, s := range slots {
			if seen[s] {
				t.Fatalf("slot %d sounding twice: %v", s, slots)
			}
			seen[s] = true
		}
		if m.Held() > m.Sounding() {
			t.Fatalf("held=%d sounding=%d", m.Held(), m.Sounding())
		}
		if m.Releasing() > MaxReleasing {
			t.Fatalf("releasing=%d", m.Releasing())
		}
	}
}

func TestManagerRenderDoesNotAllocate(t *testing.T) {
	m := NewManager(testRate, HQMaxVoices)
	for slot := range 4 {
		m.NoteOn(slot, newManagerVoice(t, 0), 0)
	}
	m.NoteOff(0, 0)
	buf := make([]float64, 128)
	start := 0.0
	allocs := testing.AllocsPerRun(50, func() {
		m.Render(buf, start)
		start += 128 / testRate
	})
	if allocs != 0 {
		t.Fatalf("allocs=%g want=0", allocs)
	}
}
