package effects

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/drew1981/DrewPolySynth/dsp/core"
	"github.com/drew1981/DrewPolySynth/dsp/interp"
)

const (
	minDelayTimeSeconds = 0.01
	maxDelayTimeSeconds = 1.5

	delayFadeFraction = 0.1
	delayPanSpread    = 0.2
	delayOctaveChance = 0.3

	// Largest interval a grain can be shifted up: a major seventh plus an
	// octave.
	maxDelayShiftSemitones = 23
)

// DelayParams configures the pitch-quantized delay. Values outside their
// ranges are clamped by SetParams.
type DelayParams struct {
	Enabled     bool
	Time        float64 // seconds, [0.01, 1.5]
	Feedback    float64 // [0, 0.95]
	PitchRandom float64 // probability of a shifted echo, [0, 1]
	RootKey     Key
	Scale       Scale
}

// DefaultDelayParams mirrors the synth's init patch.
func DefaultDelayParams() DelayParams {
	return DelayParams{Time: 0.5, Feedback: 0.3, RootKey: KeyC, Scale: Major}
}

// QuantizedDelay is a rhythmic echo made of grains one delay time long,
// spawned once per delay time. Each grain replays the last delay time of
// input at a speed drawn from a musical scale, so repeats step through
// scale degrees instead of drifting.
type QuantizedDelay struct {
	sampleRate float64
	params     DelayParams

	buf   []float64
	write int

	delaySamples int
	countdown    int
	grains       [MaxGrains]grain
	live         int

	spawned   uint64
	lastSpeed float64

	seed uint64
	rng  *rand.Rand
}

// NewQuantizedDelay creates a disabled delay with default parameters.
func NewQuantizedDelay(sampleRate float64) (*QuantizedDelay, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("delay sample rate must be > 0: %f", sampleRate)
	}

	maxSpeed := core.SemitonesToRatio(maxDelayShiftSemitones)
	size := int(math.Ceil(maxDelayTimeSeconds*maxSpeed*sampleRate)) + 2

	d := &QuantizedDelay{
		sampleRate: sampleRate,
		buf:        make([]float64, size),
		seed:       1,
		lastSpeed:  1,
	}
	d.rng = rand.New(rand.NewPCG(d.seed, d.seed))
	d.SetParams(DefaultDelayParams())
	d.countdown = d.delaySamples

	return d, nil
}

// SetParams applies p after clamping each field into range. Enabling a
// disabled delay restarts the spawn countdown, so the first echo follows
// one full delay time later.
func (d *QuantizedDelay) SetParams(p DelayParams) {
	p.Time = core.ClampFinite(p.Time, minDelayTimeSeconds, maxDelayTimeSeconds, 0.5)
	p.Feedback = core.ClampFinite(p.Feedback, 0, maxFeedback, 0)
	p.PitchRandom = core.ClampFinite(p.PitchRandom, 0, 1, 0)
	if !p.RootKey.Valid() {
		p.RootKey = KeyC
	}
	if !p.Scale.Valid() {
		p.Scale = Major
	}

	wasEnabled := d.params.Enabled
	d.params = p
	d.delaySamples = max(1, int(math.Floor(p.Time*d.sampleRate)))

	if p.Enabled && !wasEnabled {
		d.countdown = d.delaySamples
	}
	if d.countdown > d.delaySamples {
		d.countdown = d.delaySamples
	}
}

// Params returns the clamped parameters in use.
func (d *QuantizedDelay) Params() DelayParams { return d.params }

// DelaySamples returns the current delay time in samples.
func (d *QuantizedDelay) DelaySamples() int { return d.delaySamples }

// ActiveGrains returns the number of live echo grains.
func (d *QuantizedDelay) ActiveGrains() int { return d.live }

// Spawned returns the number of echo grains started since the last Reset.
func (d *QuantizedDelay) Spawned() uint64 { return d.spawned }

// LastSpeed returns the playback ratio of the most recent echo grain.
func (d *QuantizedDelay) LastSpeed() float64 { return d.lastSpeed }

// SetRandomSeed sets the RNG seed and resets the processor.
func (d *QuantizedDelay) SetRandomSeed(seed uint64) {
	d.seed = seed
	d.Reset()
}

// Reset clears history and grains, rewinds the random state and restarts
// the spawn countdown.
func (d *QuantizedDelay) Reset() {
	clear(d.buf)
	d.write = 0
	d.live = 0
	d.spawned = 0
	d.lastSpeed = 1
	d.countdown = d.delaySamples
	d.rng = rand.New(rand.NewPCG(d.seed, d.seed))
}

// DelayWindow is the echo envelope: linear fades over the first and last
// tenth of the grain.
func DelayWindow(p float64) float64 {
	switch {
	case p <= 0 || p >= 1:
		return 0
	case p < delayFadeFraction:
		return p / delayFadeFraction
	case p > 1-delayFadeFraction:
		return (1 - p) / delayFadeFraction
	default:
		return 1
	}
}

// Process consumes len(in) mono samples and writes the wet stereo echoes to
// outL and outR. When disabled the outputs are zeroed and no state changes.
func (d *QuantizedDelay) Process(in, outL, outR []float64) {
	n := min(len(in), len(outL), len(outR))
	if !d.params.Enabled {
		core.Zero(outL[:n])
		core.Zero(outR[:n])
		return
	}

	size := len(d.buf)
	feedback := d.params.Feedback

	for i := range n {
		d.buf[d.write] = in[i]

		l, r := 0.0, 0.0
		for k := d.live - 1; k >= 0; k-- {
			gr := &d.grains[k]
			if gr.pos >= gr.dur {
				d.live--
				d.grains[k] = d.grains[d.live]
				continue
			}

			s := interp.Ring(d.buf, float64(gr.start)+gr.pos) * DelayWindow(gr.pos/gr.dur) * gr.gain
			l += s * (1 - math.Max(0, gr.pan))
			r += s * (1 + math.Min(0, gr.pan))
			gr.pos += gr.speed
		}

		if feedback > 0 {
			// Runaway feedback saturates instead of overflowing.
			fb := d.buf[d.write] + (l+r)*0.5*feedback
			d.buf[d.write] = core.FlushDenormals(core.Clamp(fb, -feedbackCeiling, feedbackCeiling))
		}

		outL[i] = l
		outR[i] = r

		d.write++
		if d.write == size {
			d.write = 0
		}

		d.countdown--
		if d.countdown <= 0 {
			d.countdown = d.delaySamples
			if d.live < MaxGrains {
				d.spawn()
			}
		}
	}
}

func (d *QuantizedDelay) spawn() {
	dur := d.delaySamples
	speed := d.drawSpeed()

	// Faster grains start further back so they finish exactly at the
	// write pointer instead of reading past it.
	offset := dur
	if speed > 1 {
		offset = int(math.Ceil(float64(dur) * speed))
	}
	offset = min(offset, len(d.buf)-1)

	start := d.write - offset
	if start < 0 {
		start += len(d.buf)
	}

	d.grains[d.live] = grain{
		start: start,
		speed: speed,
		dur:   float64(dur),
		pan:   d.rng.Float64()*2*delayPanSpread - delayPanSpread,
		gain:  1,
	}
	d.live++
	d.spawned++
	d.lastSpeed = speed
}

func (d *QuantizedDelay) drawSpeed() float64 {
	st, shifted := d.drawSemitones()
	if !shifted {
		return 1
	}
	return core.SemitonesToRatio(float64(st))
}

// drawSemitones picks the echo's pitch offset. With probability
// 1-PitchRandom the echo is unshifted.
func (d *QuantizedDelay) drawSemitones() (int, bool) {
	if d.rng.Float64() >= d.params.PitchRandom {
		return 0, false
	}

	intervals := d.params.Scale.Intervals()
	st := intervals[d.rng.IntN(len(intervals))]
	if d.rng.Float64() < delayOctaveChance {
		if d.rng.Float64() < 0.5 {
			st += 12
		} else {
			st -= 12
		}
	}
	return st, true
}
