package synth

import (
	"math"
	"testing"

	"github.com/drew1981/DrewPolySynth/dsp/osc"
	"github.com/drew1981/DrewPolySynth/internal/testutil"
)

const testRate = 8000.0

func testPatch() Snapshot {
	p := DefaultSnapshot()
	p.Envelope = EnvelopeParams{Attack: 0.01, Decay: 0.05, Sustain: 0.5, Release: 0.2}
	return p
}

func newTestVoice(t *testing.T, p Snapshot, t0 float64) *Voice {
	t.Helper()
	v, err := NewVoice(testRate, 220, p, t0)
	if err != nil {
		t.Fatalf("NewVoice() error = %v", err)
	}
	return v
}

// renderUntil renders v in 64-sample blocks from start up to end and
// returns the concatenated output.
func renderUntil(v *Voice, start, end float64) []float64 {
	n := int(math.Round((end - start) * testRate))
	out := make([]float64, n)
	for i := 0; i < n; i += 64 {
		j := min(i+64, n)
		v.Render(out[i:j], start+float64(i)/testRate)
	}
	return out
}

func TestNewVoiceValidation(t *testing.T) {
	if _, err := NewVoice(0, 220, DefaultSnapshot(), 0); err == nil {
		t.Fatal("expected sample rate error")
	}
	if _, err := NewVoice(testRate, 0, DefaultSnapshot(), 0); err == nil {
		t.Fatal("expected frequency error")
	}
	if _, err := NewVoice(testRate, math.NaN(), DefaultSnapshot(), 0); err == nil {
		t.Fatal("expected NaN frequency error")
	}
}

func TestVoiceEnvelopeReachesSustain(t *testing.T) {
	v := newTestVoice(t, testPatch(), 0)

	renderUntil(v, 0, 0.01)
	if g := v.Gain(); g < 0.95 {
		t.Fatalf("gain at end of attack=%g want ~1", g)
	}

	renderUntil(v, 0.01, 0.2)
	if g := v.Gain(); math.Abs(g-0.5) > 1e-9 {
		t.Fatalf("sustain gain=%g want=0.5", g)
	}
}

func TestVoiceSilentBeforeStart(t *testing.T) {
	v := newTestVoice(t, testPatch(), 0.05)
	out := renderUntil(v, 0, 0.05)
	testutil.RequireSilent(t, out, 0)

	out = renderUntil(v, 0.05, 0.1)
	if testutil.Peak(out) == 0 {
		t.Fatal("voice did not start")
	}
}

func TestVoiceStopReleasesAndFinishes(t *testing.T) {
	v := newTestVoice(t, testPatch(), 0)
	renderUntil(v, 0, 0.2)

	v.Stop(0.2)
	if got, want := v.StopTime(), 0.2+0.2+stopTail; math.Abs(got-want) > 1e-12 {
		t.Fatalf("stop time=%g want=%g", got, want)
	}
	v.Stop(0.3)
	if got := v.StopTime(); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("second Stop moved stop time to %g", got)
	}

	renderUntil(v, 0.2, 0.4)
	if g := v.Gain(); math.Abs(g-ampFloor) > 1e-4 {
		t.Fatalf("gain after release=%g want=%g", g, ampFloor)
	}
	if v.Done(0.45) {
		t.Fatal("voice done before its tail ended")
	}
	if !v.Done(0.51) {
		t.Fatal("voice not done after stop time")
	}

	tail := renderUntil(v, 0.51, 0.6)
	testutil.RequireSilent(t, tail, 0)
}

func TestVoiceReleaseIsMonotonic(t *testing.T) {
	v := newTestVoice(t, testPatch(), 0)
	renderUntil(v, 0, 0.2)
	v.Stop(0.2)

	prev := v.Gain()
	buf := make([]float64, 1)
	for i := range 1600 {
		v.Render(buf, 0.2+float64(i)/testRate)
		if g := v.Gain(); g > prev+1e-12 {
			t.Fatalf("gain rose during release at sample %d: %g > %g", i, g, prev)
		}
		prev = v.Gain()
	}
}

func TestVoiceForceStop(t *testing.T) {
	v := newTestVoice(t, testPatch(), 0)
	renderUntil(v, 0, 0.1)
	v.ForceStop(0.1)
	if !v.Done(0.1 + forceStopFade) {
		t.Fatal("force-stopped voice not done after the fade")
	}
	out := renderUntil(v, 0.1, 0.2)
	testutil.RequireSilent(t, out[int(forceStopFade*testRate)+1:], 0)

	// A force stop overrides a long release.
	w := newTestVoice(t, testPatch(), 0)
	w.Stop(0)
	w.ForceStop(0.01)
	if got := w.StopTime(); math.Abs(got-0.015) > 1e-12 {
		t.Fatalf("stop time=%g want=0.015", got)
	}
}

func TestVoiceUpdateKeepsAmplitudeEnvelope(t *testing.T) {
	p := testPatch()
	v := newTestVoice(t, p, 0)
	renderUntil(v, 0, 0.2)

	q := p
	q.Envelope.Sustain = 1
	q.Oscillator.Waveform = osc.Square
	q.Filter.Cutoff = 500
	q.LFO = LFOParams{Rate: 3, Depth: 10, Target: TargetCutoff}
	v.UpdateParameters(q, 0.2)

	out := renderUntil(v, 0.2, 1.2)
	if g := v.Gain(); math.Abs(g-0.5) > 1e-9 {
		t.Fatalf("gain after update=%g want=0.5", g)
	}
	if v.osc.Waveform() != osc.Square {
		t.Fatal("waveform not switched")
	}
	if c := v.cutoff.Value(); math.Abs(c-500) > 1 {
		t.Fatalf("cutoff=%g want ~500", c)
	}
	testutil.RequireFinite(t, out)
}

func TestVoiceOutputFiniteForAllShapes(t *testing.T) {
	for _, w := range []osc.Waveform{osc.Sine, osc.Square, osc.Sawtooth, osc.Triangle} {
		for _, target := range []LFOTarget{TargetPitch, TargetCutoff, TargetAmplitude} {
			p := testPatch()
			p.Oscillator.Waveform = w
			p.Filter.Resonance = 30
			p.LFO = LFOParams{Rate: 6, Depth: 100, Target: target}
			v := newTestVoice(t, p, 0)
			out := renderUntil(v, 0, 0.5)
			testutil.RequireFinite(t, out)
			if testutil.Peak(out) == 0 {
				t.Fatalf("%v/%v: silent voice", w, target)
			}
		}
	}
}
