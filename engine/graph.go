package engine

import (
	"fmt"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/drew1981/DrewPolySynth/dsp/core"
	"github.com/drew1981/DrewPolySynth/dsp/effects"
	"github.com/drew1981/DrewPolySynth/dsp/effects/dynamics"
	"github.com/drew1981/DrewPolySynth/dsp/effects/reverb"
	"github.com/drew1981/DrewPolySynth/dsp/param"
	"github.com/drew1981/DrewPolySynth/dsp/spectrum"
	"github.com/drew1981/DrewPolySynth/synth"
)

// Bus settings that are not exposed as parameters.
const (
	gainTau          = 0.1 // seconds, approach time of every bus gain
	compThresholdDB  = -20
	compRatio        = 4
	maxInputGain     = 2
	defaultInputGain = 0
	defaultInputSend = 1
	reverbSeedMix    = 0x9e3779b97f4a7c15
)

// GraphConfig describes a Graph. Zero SampleRate and BlockSize take the
// real-time defaults.
type GraphConfig struct {
	SampleRate float64
	BlockSize  int
	Seed       uint64
	Params     synth.Snapshot
	// Kernels is the initial reverb kernel set. When nil one is built for
	// Params.Mode.
	Kernels  *reverb.KernelSet
	Analyser []spectrum.Option
}

// dryWet is a pair of smoothed stage gains.
type dryWet struct {
	dry, wet *param.Param
}

func newDryWet(dry, wet float64) dryWet {
	return dryWet{dry: param.New(dry, 0, 1), wet: param.New(wet, 0, 1)}
}

func (g dryWet) target(dry, wet, t float64) {
	g.dry.SetTargetAtTime(dry, t, gainTau)
	g.wet.SetTargetAtTime(wet, t, gainTau)
}

func (g dryWet) fill(dry, wet []float64, t, sampleRate float64) {
	g.dry.Fill(dry, t, sampleRate)
	g.wet.Fill(wet, t, sampleRate)
}

// Graph is the effect chain after the voice sum. Every stage owns its
// state; Process must be called from a single goroutine.
type Graph struct {
	sampleRate float64
	block      int

	granular *effects.Granular
	delay    *effects.QuantizedDelay
	reverb   *reverb.ConvolutionReverb
	comp     *dynamics.Compressor
	analyser *spectrum.Analyser

	granularMix dryWet
	delayMix    dryWet
	reverbMix   dryWet
	inputGain   *param.Param
	inputSend   *param.Param
	master      *param.Param

	dryGain, wetGain, gain, prod []float64
	granL, granR                 []float64
	stageL, stageR               []float64
	mono                         []float64
	echoL, echoR                 []float64
	fxL, fxR                     []float64
	liveIn, send                 []float64
	silence                      []float64
}

// NewGraph builds and wires every stage.
func NewGraph(cfg GraphConfig) (*Graph, error) {
	def := core.DefaultProcessorConfig()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = def.BlockSize
	}
	if cfg.SampleRate < 0 {
		return nil, fmt.Errorf("graph sample rate must be > 0: %f", cfg.SampleRate)
	}
	if cfg.BlockSize < 0 {
		return nil, fmt.Errorf("graph block size must be > 0: %d", cfg.BlockSize)
	}
	p := cfg.Params.Sanitize()

	granular, err := effects.NewGranular(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("graph granular: %w", err)
	}
	granular.SetRandomSeed(cfg.Seed)

	delay, err := effects.NewQuantizedDelay(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("graph delay: %w", err)
	}
	delay.SetRandomSeed(cfg.Seed + 1)

	kernels := cfg.Kernels
	if kernels == nil {
		kernels, err = reverb.NewKernelSet(cfg.SampleRate, p.Mode == synth.Eco, ReverbSeed(cfg.Seed))
		if err != nil {
			return nil, fmt.Errorf("graph reverb: %w", err)
		}
	}

	comp, err := dynamics.NewCompressor(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("graph compressor: %w", err)
	}
	if err := comp.SetThreshold(compThresholdDB); err != nil {
		return nil, err
	}
	if err := comp.SetRatio(compRatio); err != nil {
		return nil, err
	}

	analyser, err := spectrum.NewAnalyser(cfg.Analyser...)
	if err != nil {
		return nil, fmt.Errorf("graph analyser: %w", err)
	}

	g := &Graph{
		sampleRate: cfg.SampleRate,
		block:      cfg.BlockSize,
		granular:   granular,
		delay:      delay,
		reverb:     reverb.NewConvolutionReverb(kernels),
		comp:       comp,
		analyser:   analyser,
		inputGain:  param.New(defaultInputGain, 0, maxInputGain),
		inputSend:  param.New(defaultInputSend, 0, 1),
		master:     param.New(p.Master.Gain, 0, 1),
	}

	granular.SetParams(p.Granular.Effect())
	delay.SetParams(p.Delay.Effect())
	g.reverb.SetType(p.Master.ReverbType)
	g.granularMix = newDryWet(p.Granular.Levels())
	g.delayMix = newDryWet(p.Delay.Levels())
	g.reverbMix = newDryWet(p.ReverbLevels())

	n := cfg.BlockSize
	for _, buf := range []*[]float64{
		&g.dryGain, &g.wetGain, &g.gain, &g.prod,
		&g.granL, &g.granR, &g.stageL, &g.stageR, &g.mono,
		&g.echoL, &g.echoR, &g.fxL, &g.fxR, &g.liveIn, &g.send, &g.silence,
	} {
		*buf = make([]float64, n)
	}

	return g, nil
}

// ReverbSeed derives the impulse-response noise seed from an engine seed.
func ReverbSeed(seed uint64) uint64 { return seed ^ reverbSeedMix }

// SampleRate returns the processing rate.
func (g *Graph) SampleRate() float64 { return g.sampleRate }

// BlockSize returns the largest block Process accepts.
func (g *Graph) BlockSize() int { return g.block }

// Analyser returns the analysis tap fed with the master output.
func (g *Graph) Analyser() *spectrum.Analyser { return g.analyser }

// Compressor returns the bus compressor.
func (g *Graph) Compressor() *dynamics.Compressor { return g.comp }

// Granular returns the granular stage.
func (g *Graph) Granular() *effects.Granular { return g.granular }

// Delay returns the delay stage.
func (g *Graph) Delay() *effects.QuantizedDelay { return g.delay }

// Reverb returns the convolution stage.
func (g *Graph) Reverb() *reverb.ConvolutionReverb { return g.reverb }

// InstallKernels hands a new kernel set to the reverb. It is safe to call
// from any goroutine.
func (g *Graph) InstallKernels(ks *reverb.KernelSet) { g.reverb.Install(ks) }

// Apply retargets the stages whose subsection changed. Gains glide toward
// their new values from time t.
func (g *Graph) Apply(p synth.Snapshot, d synth.Dirty, t float64) {
	if d.Granular {
		g.granular.SetParams(p.Granular.Effect())
		dry, wet := p.Granular.Levels()
		g.granularMix.target(dry, wet, t)
	}
	if d.Delay {
		g.delay.SetParams(p.Delay.Effect())
		dry, wet := p.Delay.Levels()
		g.delayMix.target(dry, wet, t)
	}
	if d.Reverb {
		g.reverb.SetType(p.Master.ReverbType)
		dry, wet := p.ReverbLevels()
		g.reverbMix.target(dry, wet, t)
	}
	if d.MasterGain {
		g.master.SetTargetAtTime(p.Master.Gain, t, gainTau)
	}
}

// SetInputGain glides the live-input gain toward v, clamped to [0, 2].
func (g *Graph) SetInputGain(v, t float64) {
	g.inputGain.SetTargetAtTime(core.ClampFinite(v, 0, maxInputGain, 0), t, gainTau)
}

// SetInputSend routes the live input into the reverb or stops doing so.
func (g *Graph) SetInputSend(enabled bool, t float64) {
	v := 0.0
	if enabled {
		v = 1
	}
	g.inputSend.SetTargetAtTime(v, t, gainTau)
}

// Process runs one block starting at time t. voices is the mono voice sum
// and live the mono live input, which may be nil. len(voices) frames are
// written to outL and outR; it must not exceed BlockSize. The output is
// also written to the analysis tap.
func (g *Graph) Process(t float64, voices, live, outL, outR []float64) {
	n := min(len(voices), len(outL), len(outR), g.block)
	if n == 0 {
		return
	}
	voices, outL, outR = voices[:n], outL[:n], outR[:n]
	sr := g.sampleRate
	dry, wet, gain := g.dryGain[:n], g.wetGain[:n], g.gain[:n]

	// Granular: mono in, stereo cloud out.
	granL, granR := g.granL[:n], g.granR[:n]
	stageL, stageR := g.stageL[:n], g.stageR[:n]
	g.granular.Process(voices, granL, granR)
	g.granularMix.fill(dry, wet, t, sr)
	g.mix(stageL, voices, dry, granL, wet)
	g.mix(stageR, voices, dry, granR, wet)

	// Delay reads the mono fold of the granular bus.
	mono := g.mono[:n]
	echoL, echoR := g.echoL[:n], g.echoR[:n]
	fxL, fxR := g.fxL[:n], g.fxR[:n]
	vecmath.AddMulBlock(mono, stageL, stageR, 0.5)
	g.delay.Process(mono, echoL, echoR)
	g.delayMix.fill(dry, wet, t, sr)
	g.mix(fxL, stageL, dry, echoL, wet)
	g.mix(fxR, stageR, dry, echoR, wet)

	// Live input bypasses granular and delay.
	liveIn, send := g.liveIn[:n], g.send[:n]
	if len(live) < n {
		live = g.silence[:n]
	}
	g.inputGain.Fill(gain, t, sr)
	vecmath.MulBlock(liveIn, live[:n], gain)
	g.inputSend.Fill(gain, t, sr)
	vecmath.MulBlock(send, liveIn, gain)

	// Reverb input is the effect bus plus the send; the wet signal lands
	// in the echo buffers, which are free again.
	copy(echoL, fxL)
	copy(echoR, fxR)
	vecmath.AddBlockInPlace(echoL, send)
	vecmath.AddBlockInPlace(echoR, send)
	g.reverb.Process(echoL, echoR, echoL, echoR)
	g.reverbMix.fill(dry, wet, t, sr)
	g.mix(outL, fxL, dry, echoL, wet)
	g.mix(outR, fxR, dry, echoR, wet)
	vecmath.AddBlockInPlace(outL, liveIn)
	vecmath.AddBlockInPlace(outR, liveIn)

	g.comp.ProcessStereo(outL, outR)

	g.master.Fill(gain, t, sr)
	vecmath.MulBlockInPlace(outL, gain)
	vecmath.MulBlockInPlace(outR, gain)

	g.analyser.WriteStereo(outL, outR)
}

// Reset clears the history of every stage. Gains keep their values.
func (g *Graph) Reset() {
	g.granular.Reset()
	g.delay.Reset()
	g.reverb.Reset()
	g.comp.Reset()
	g.analyser.Reset()
}

// mix writes a*ga + b*gb to dst.
func (g *Graph) mix(dst, a, ga, b, gb []float64) {
	prod := g.prod[:len(dst)]
	vecmath.MulBlock(prod, b, gb)
	vecmath.MulAddBlock(dst, a, ga, prod)
}
