package synth

import (
	"testing"

	"github.com/drew1981/DrewPolySynth/dsp/effects"
	"github.com/drew1981/DrewPolySynth/dsp/effects/reverb"
)

func TestPresets(t *testing.T) {
	ps := Presets()
	names := []string{"Init Saw", "Soft Pad", "Granular Cloud", "Rhythmic Delay"}
	if len(ps) != len(names) {
		t.Fatalf("presets=%d want=%d", len(ps), len(names))
	}
	for i, p := range ps {
		if p.Name != names[i] {
			t.Fatalf("preset %d: got=%q want=%q", i, p.Name, names[i])
		}
	}
	if ps[0].Params != DefaultSnapshot() {
		t.Fatal("Init Saw must equal the default snapshot")
	}

	cloud, err := PresetByName("granular cloud")
	if err != nil {
		t.Fatalf("PresetByName() error = %v", err)
	}
	if !cloud.Params.Granular.Enabled || cloud.Params.Master.ReverbType != reverb.Shimmer {
		t.Fatalf("cloud=%+v", cloud.Params)
	}

	rd, _ := PresetByName("Rhythmic Delay")
	if rd.Params.Delay.Scale != effects.Minor || rd.Params.Delay.PitchRandom != 0.8 {
		t.Fatalf("rhythmic delay=%+v", rd.Params.Delay)
	}

	if _, err := PresetByName("nope"); err == nil {
		t.Fatal("expected unknown preset error")
	}
}

func TestKeyboardLayout(t *testing.T) {
	if len(Keyboard) != 24 {
		t.Fatalf("keys=%d", len(Keyboard))
	}
	if Keyboard[21].String() != "A4" || Keyboard[21].Frequency != 440 {
		t.Fatalf("A4 slot=%+v", Keyboard[21])
	}
	for i := 1; i < len(Keyboard); i++ {
		if Keyboard[i].Frequency <= Keyboard[i-1].Frequency {
			t.Fatalf("keyboard not ascending at %d", i)
		}
	}
	for r, slot := range KeyMap {
		if slot < 0 || slot >= len(Keyboard) {
			t.Fatalf("key %q maps to slot %d", r, slot)
		}
	}
}

func TestSlotByName(t *testing.T) {
	tests := []struct {
		name string
		slot int
		ok   bool
	}{
		{"C3", 0, true},
		{"a4", 21, true},
		{"C#4", 13, true},
		{"H2", 0, false},
	}
	for _, tt := range tests {
		slot, ok := SlotByName(tt.name)
		if slot != tt.slot || ok != tt.ok {
			t.Fatalf("%s: got=(%d,%v) want=(%d,%v)", tt.name, slot, ok, tt.slot, tt.ok)
		}
	}
}
