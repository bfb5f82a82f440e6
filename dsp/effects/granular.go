package effects

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/drew1981/DrewPolySynth/dsp/core"
	"github.com/drew1981/DrewPolySynth/dsp/interp"
)

// MaxGrains is the hard cap on live grains per processor.
const MaxGrains = 40

const (
	granularBufferSeconds = 2.0
	granularMinInterval   = 0.001
	granularMaxInterval   = 0.2
	granularMaxSpray      = 0.5
	granularPitchJitter   = 0.025
	maxFeedback           = 0.95
	feedbackCeiling       = 8.0

	// Samples read past the integer position by interp.Ring.
	interpReach = 2

	minGrainSeconds = 0.01
	maxGrainSeconds = 0.5
)

// GranularParams configures the grain cloud. Values outside their ranges
// are clamped by SetParams.
type GranularParams struct {
	Enabled   bool
	GrainSize float64 // seconds, [0.01, 0.5]
	Density   float64 // [0, 1]
	Spread    float64 // [0, 1]
	Feedback  float64 // [0, 0.95]
}

// DefaultGranularParams mirrors the synth's init patch.
func DefaultGranularParams() GranularParams {
	return GranularParams{GrainSize: 0.1, Density: 0.5, Spread: 0.8, Feedback: 0.2}
}

type grain struct {
	start int
	pos   float64
	speed float64
	dur   float64
	pan   float64
	gain  float64
}

// Granular writes its mono input into a circular history and plays it back
// as a cloud of short, parabolically windowed, randomly panned grains. The
// output is wet only; dry/wet balance belongs to the caller.
type Granular struct {
	sampleRate float64
	params     GranularParams

	buf   []float64
	write int

	countdown float64
	grains    [MaxGrains]grain
	live      int

	spawned uint64
	expired uint64

	seed uint64
	rng  *rand.Rand
}

// NewGranular creates a disabled grain cloud with default parameters.
func NewGranular(sampleRate float64) (*Granular, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("granular sample rate must be > 0: %f", sampleRate)
	}

	g := &Granular{
		sampleRate: sampleRate,
		buf:        make([]float64, int(granularBufferSeconds*sampleRate)),
		seed:       1,
	}
	g.rng = rand.New(rand.NewPCG(g.seed, g.seed))
	g.SetParams(DefaultGranularParams())

	return g, nil
}

// SetParams applies p after clamping each field into range.
func (g *Granular) SetParams(p GranularParams) {
	p.GrainSize = core.ClampFinite(p.GrainSize, minGrainSeconds, maxGrainSeconds, 0.1)
	p.Density = core.ClampFinite(p.Density, 0, 1, 0.5)
	p.Spread = core.ClampFinite(p.Spread, 0, 1, 0)
	p.Feedback = core.ClampFinite(p.Feedback, 0, maxFeedback, 0)
	g.params = p
}

// Params returns the clamped parameters in use.
func (g *Granular) Params() GranularParams { return g.params }

// SampleRate returns sample rate in Hz.
func (g *Granular) SampleRate() float64 { return g.sampleRate }

// ActiveGrains returns the number of live grains.
func (g *Granular) ActiveGrains() int { return g.live }

// Spawned returns the number of grains started since the last Reset.
func (g *Granular) Spawned() uint64 { return g.spawned }

// Expired returns the number of grains that reached their duration since the
// last Reset.
func (g *Granular) Expired() uint64 { return g.expired }

// SetRandomSeed sets the RNG seed and resets the processor.
func (g *Granular) SetRandomSeed(seed uint64) {
	g.seed = seed
	g.Reset()
}

// Reset clears history and grains and rewinds the random state.
func (g *Granular) Reset() {
	clear(g.buf)
	g.write = 0
	g.countdown = 0
	g.live = 0
	g.spawned = 0
	g.expired = 0
	g.rng = rand.New(rand.NewPCG(g.seed, g.seed))
}

// GrainWindow is the parabolic grain envelope 4p(1-p) for progress p.
func GrainWindow(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return 4 * p * (1 - p)
}

// Process consumes len(in) mono samples and writes the wet stereo cloud to
// outL and outR. When disabled the outputs are zeroed and no state changes.
func (g *Granular) Process(in, outL, outR []float64) {
	n := min(len(in), len(outL), len(outR))
	if !g.params.Enabled {
		core.Zero(outL[:n])
		core.Zero(outR[:n])
		return
	}

	size := len(g.buf)
	durSamples := math.Floor(g.params.GrainSize * g.sampleRate)
	interval := g.spawnInterval()
	feedback := g.params.Feedback

	for i := range n {
		g.buf[g.write] = in[i]

		l, r := 0.0, 0.0
		for k := g.live - 1; k >= 0; k-- {
			gr := &g.grains[k]
			if gr.pos >= gr.dur {
				g.removeGrain(k)
				continue
			}

			s := interp.Ring(g.buf, float64(gr.start)+gr.pos) * GrainWindow(gr.pos/gr.dur)
			l += s * (1 - math.Max(0, gr.pan))
			r += s * (1 + math.Min(0, gr.pan))
			gr.pos += gr.speed
		}

		if feedback > 0 {
			// Runaway feedback saturates instead of overflowing.
			fb := g.buf[g.write] + (l+r)*0.5*feedback
			g.buf[g.write] = core.FlushDenormals(core.Clamp(fb, -feedbackCeiling, feedbackCeiling))
		}

		outL[i] = l
		outR[i] = r

		g.write++
		if g.write == size {
			g.write = 0
		}

		g.countdown--
		if g.countdown <= 0 {
			g.countdown = interval * (0.5 + g.rng.Float64())
			if g.live < MaxGrains {
				g.spawn(durSamples)
			}
		}
	}
}

// spawnInterval maps density to samples between spawns; the square root
// biases the control toward denser clouds.
func (g *Granular) spawnInterval() float64 {
	minI := g.sampleRate * granularMinInterval
	maxI := g.sampleRate * granularMaxInterval
	return maxI - math.Sqrt(g.params.Density)*(maxI-minI)
}

func (g *Granular) spawn(dur float64) {
	spread := g.params.Spread
	offset := int(g.rng.Float64() * spread * g.sampleRate * granularMaxSpray)
	speed := 1 + (g.rng.Float64()*2*granularPitchJitter-granularPitchJitter)*spread
	pan := (g.rng.Float64()*2 - 1) * spread

	// Interpolated reads look interpReach samples past the read position,
	// and a grain faster than real time gains on the write pointer as it
	// plays. Start far enough back that neither reaches unwritten samples.
	offset = max(offset, interpReach+int(math.Ceil(math.Max(0, speed-1)*dur)))
	offset = min(offset, len(g.buf)-1)

	start := g.write - offset
	if start < 0 {
		start += len(g.buf)
	}

	g.grains[g.live] = grain{start: start, speed: speed, dur: dur, pan: pan, gain: 1}
	g.live++
	g.spawned++
}

func (g *Granular) removeGrain(k int) {
	g.live--
	g.grains[k] = g.grains[g.live]
	g.expired++
}
