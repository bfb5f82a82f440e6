package main

import (
	"math"
	"testing"
)

func TestParseNotes(t *testing.T) {
	slots, err := parseNotes(" C3, e4 ,A#4,")
	if err != nil {
		t.Fatalf("parseNotes() error = %v", err)
	}
	want := []int{0, 16, 22}
	if len(slots) != len(want) {
		t.Fatalf("slots=%v want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("slots=%v want %v", slots, want)
		}
	}

	for _, bad := range []string{"", " , ", "C5", "X4"} {
		if _, err := parseNotes(bad); err == nil {
			t.Fatalf("parseNotes(%q) expected error", bad)
		}
	}
}

func TestScheduleArpeggio(t *testing.T) {
	events := schedule([]int{0, 4, 7}, 0.5, 0.3, false)
	if len(events) != 6 {
		t.Fatalf("events=%d want 6", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].at < events[i-1].at {
			t.Fatalf("events not ordered: %+v", events)
		}
	}
	if !events[0].on || events[0].slot != 0 || events[0].at != 0 {
		t.Fatalf("first event=%+v", events[0])
	}
	// note-off of the first key lands before the second note-on
	if events[1].on || events[1].slot != 0 || math.Abs(events[1].at-0.3) > 1e-12 {
		t.Fatalf("second event=%+v", events[1])
	}
	if got := lastEvent(events); math.Abs(got-1.3) > 1e-12 {
		t.Fatalf("lastEvent=%g want 1.3", got)
	}
}

func TestScheduleChord(t *testing.T) {
	events := schedule([]int{0, 4, 7}, 0.5, 1, true)
	for i, ev := range events[:3] {
		if !ev.on || ev.at != 0 {
			t.Fatalf("event %d=%+v want note-on at 0", i, ev)
		}
	}
	for i, ev := range events[3:] {
		if ev.on || ev.at != 1 {
			t.Fatalf("event %d=%+v want note-off at 1", i+3, ev)
		}
	}
}

func TestPresetPath(t *testing.T) {
	cases := []struct{ base, preset, want string }{
		{"demo.wav", "Soft Pad", "demo-soft-pad.wav"},
		{"out/render.wav", "Init Saw", "out/render-init-saw.wav"},
		{"noext", "Granular Cloud", "noext-granular-cloud"},
	}
	for _, c := range cases {
		if got := presetPath(c.base, c.preset); got != c.want {
			t.Fatalf("presetPath(%q, %q)=%q want=%q", c.base, c.preset, got, c.want)
		}
	}
}
