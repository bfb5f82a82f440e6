package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drew1981/DrewPolySynth/dsp/core"
	"github.com/drew1981/DrewPolySynth/dsp/effects/reverb"
	"github.com/drew1981/DrewPolySynth/dsp/spectrum"
	"github.com/drew1981/DrewPolySynth/internal/ringbuf"
	"github.com/drew1981/DrewPolySynth/synth"
)

// Errors returned by Engine.
var (
	ErrClosed        = errors.New("engine: closed")
	ErrNoInputDevice = errors.New("engine: no input device configured")
)

// Channels of the rendered output.
const Channels = 2

// disposeGrace is added to a voice's stop time before its disposal request
// is sent.
const disposeGrace = 10 * time.Millisecond

type released struct {
	voice    *synth.Voice
	stopTime float64
}

// renderState is owned by the render callback.
type renderState struct {
	voices *synth.Manager
	graph  *Graph

	voiceBuf   []float64
	live       []float64
	liveRaw    []float32
	outL, outR []float64

	quantum []float32 // interleaved output of the last quantum
	pos     int       // frames of quantum already handed out

	capturing   bool
	captureDone chan struct{}
	captureBuf  []float32

	play     *Take
	playPos  int
	playLoop bool
	playing  *atomic.Bool
}

// Engine is a polyphonic synthesizer with a fixed effect graph. Render
// must be called from one goroutine; every other method is safe for
// concurrent use.
type Engine struct {
	cfg        config
	log        *slog.Logger
	sampleRate float64
	block      int

	frames atomic.Uint64

	cmds     chan command
	releases chan released
	done     chan struct{}
	wg       sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool

	ctrl   sync.Mutex
	params synth.Snapshot

	reverb *reverb.ConvolutionReverb
	graph  *Graph

	releaseDrops atomic.Uint64
	playing      atomic.Bool
	rt           renderState

	input liveInput
	rec   recorder
}

// New builds an engine and starts its housekeeping goroutine.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.proc = core.ApplyProcessorOptions(cfg.procOpts...)
	sr, block := cfg.proc.SampleRate, cfg.proc.BlockSize

	graph, err := NewGraph(GraphConfig{
		SampleRate: sr,
		BlockSize:  block,
		Seed:       cfg.proc.Seed,
		Params:     cfg.params,
		Analyser:   cfg.analyser,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		log:        cfg.logger,
		sampleRate: sr,
		block:      block,
		cmds:       make(chan command, commandQueueSize),
		releases:   make(chan released, synth.MaxReleasing),
		done:       make(chan struct{}),
		params:     cfg.params,
		reverb:     graph.Reverb(),
		graph:      graph,
	}

	voices := synth.NewManager(sr, cfg.params.Mode.MaxVoices())
	voices.OnRelease = e.onRelease
	e.rt = renderState{
		voices:     voices,
		graph:      graph,
		voiceBuf:   make([]float64, block),
		live:       make([]float64, block),
		liveRaw:    make([]float32, block),
		outL:       make([]float64, block),
		outR:       make([]float64, block),
		quantum:    make([]float32, block*Channels),
		pos:        block,
		captureBuf: make([]float32, block*Channels),
		playing:    &e.playing,
	}
	e.input.ring = ringbuf.New(inputRingFrames(sr))
	e.rec.init(sr, cfg.recorderSeconds)

	e.wg.Add(1)
	go e.housekeeping()

	e.log.Debug("engine started",
		slog.Float64("sample_rate", sr),
		slog.Int("block", block),
		slog.String("mode", cfg.params.Mode.String()))

	return e, nil
}

// SampleRate returns the output sample rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// BlockSize returns the render quantum in frames.
func (e *Engine) BlockSize() int { return e.block }

// Now returns the engine clock in seconds: the start time of the next
// quantum to be rendered.
func (e *Engine) Now() float64 {
	return float64(e.frames.Load()) / e.sampleRate
}

// Graph exposes the processing graph for inspection. Its methods other
// than InstallKernels and Analyser must not be called while the engine is
// rendering.
func (e *Engine) Graph() *Graph { return e.graph }

// Parameters returns the current snapshot.
func (e *Engine) Parameters() synth.Snapshot {
	e.ctrl.Lock()
	defer e.ctrl.Unlock()
	return e.params
}

// UpdateParameters replaces the live parameters. Out-of-range values are
// clamped. A change of performance mode rebuilds the reverb impulse
// responses on the calling goroutine before the new snapshot reaches the
// render callback.
func (e *Engine) UpdateParameters(p synth.Snapshot) error {
	if e.closed.Load() {
		return ErrClosed
	}
	p = p.Sanitize()

	e.ctrl.Lock()
	defer e.ctrl.Unlock()

	d := synth.Diff(e.params, p)
	if !d.Any() {
		return nil
	}
	if d.Mode {
		start := time.Now()
		ks, err := reverb.NewKernelSet(e.sampleRate, p.Mode == synth.Eco, ReverbSeed(e.cfg.proc.Seed))
		if err != nil {
			return fmt.Errorf("engine: rebuild reverb: %w", err)
		}
		e.reverb.Install(ks)
		e.log.Info("reverb impulse responses regenerated",
			slog.String("mode", p.Mode.String()),
			slog.Int("hall_samples", ks.ImpulseLen(reverb.Hall)),
			slog.Int("shimmer_samples", ks.ImpulseLen(reverb.Shimmer)),
			slog.Duration("took", time.Since(start)))
	}
	e.params = p

	return e.send(command{kind: cmdParams, params: p, dirty: d})
}

// NoteOn starts a voice at slot. A voice already sounding at slot is
// replaced; when the polyphony ceiling is reached the oldest voice is
// released first.
func (e *Engine) NoteOn(slot int, frequencyHz float64) error {
	if e.closed.Load() {
		return ErrClosed
	}
	p := e.Parameters()
	v, err := synth.NewVoice(e.sampleRate, frequencyHz, p, e.Now())
	if err != nil {
		return fmt.Errorf("engine: note on slot %d: %w", slot, err)
	}
	return e.send(command{kind: cmdNoteOn, slot: slot, voice: v})
}

// NoteOff releases the voice at slot, or defers the release while hold is
// on. Unknown slots are ignored.
func (e *Engine) NoteOff(slot int) error {
	return e.send(command{kind: cmdNoteOff, slot: slot})
}

// SetHold toggles the sustain hold. Turning it off releases held notes.
func (e *Engine) SetHold(enabled bool) error {
	return e.send(command{kind: cmdHold, flag: enabled})
}

// AnalysisSnapshot returns the latest analysis frame as bytes: FFTSize
// samples for spectrum.TimeDomain, FrequencyBinCount bins for
// spectrum.FrequencyDomain.
func (e *Engine) AnalysisSnapshot(kind spectrum.Kind) []byte {
	return e.graph.Analyser().Snapshot(kind, nil)
}

// AnalysisSnapshotInto is AnalysisSnapshot reusing dst when it is large
// enough.
func (e *Engine) AnalysisSnapshotInto(kind spectrum.Kind, dst []byte) []byte {
	return e.graph.Analyser().Snapshot(kind, dst)
}

// Render fills dst with interleaved stereo float32 frames. It is the
// real-time callback: it never blocks, logs or allocates. After Close it
// writes silence.
func (e *Engine) Render(dst []float32) {
	if e.closed.Load() {
		clear(dst)
		return
	}
	r := &e.rt
	for len(dst) >= Channels {
		if r.pos == e.block {
			e.renderQuantum()
			r.pos = 0
		}
		n := min(e.block-r.pos, len(dst)/Channels)
		copy(dst[:n*Channels], r.quantum[r.pos*Channels:(r.pos+n)*Channels])
		dst = dst[n*Channels:]
		r.pos += n
	}
	clear(dst)
}

// Close stops the engine, closes the live input and waits for background
// goroutines. It is idempotent.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
		err = e.closeInput()
		e.wg.Wait()
		e.log.Debug("engine closed", slog.Uint64("dropped_releases", e.releaseDrops.Load()))
	})
	return err
}

func (e *Engine) send(c command) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	select {
	case e.cmds <- c:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

func (e *Engine) renderQuantum() {
	r := &e.rt
	t := e.Now()

	e.drainCommands(t)

	core.Zero(r.voiceBuf)
	r.voices.Render(r.voiceBuf, t)

	e.readLiveInput(r.live, r.liveRaw)
	r.graph.Process(t, r.voiceBuf, r.live, r.outL, r.outR)

	if r.capturing {
		interleave(r.captureBuf, r.outL, r.outR)
		e.rec.ring.Write(r.captureBuf)
	}
	r.mixPlayback()

	for i := range r.outL {
		r.quantum[2*i] = float32(core.Clamp(r.outL[i], -1, 1))
		r.quantum[2*i+1] = float32(core.Clamp(r.outR[i], -1, 1))
	}

	e.frames.Add(uint64(e.block))
}

func (e *Engine) drainCommands(t float64) {
	r := &e.rt
	for {
		select {
		case c := <-e.cmds:
			r.apply(c, t)
		default:
			return
		}
	}
}

func (r *renderState) apply(c command, t float64) {
	switch c.kind {
	case cmdNoteOn:
		r.voices.NoteOn(c.slot, c.voice, t)
	case cmdNoteOff:
		r.voices.NoteOff(c.slot, t)
	case cmdHold:
		r.voices.SetHold(c.flag, t)
	case cmdParams:
		if c.dirty.Mode {
			r.voices.SetPolyphony(c.params.Mode.MaxVoices(), t)
		}
		if c.dirty.Voice {
			r.voices.UpdateParameters(c.params, t)
		}
		r.graph.Apply(c.params, c.dirty, t)
	case cmdDispose:
		r.voices.Dispose(c.voice, t)
	case cmdInputGain:
		r.graph.SetInputGain(c.value, t)
	case cmdInputSend:
		r.graph.SetInputSend(c.flag, t)
	case cmdCaptureStart:
		r.capturing = true
		r.captureDone = c.signal
	case cmdCaptureStop:
		r.stopCapture()
	case cmdPlay:
		r.play, r.playPos, r.playLoop = c.take, 0, c.flag
		r.playing.Store(true)
	case cmdStopPlayback:
		r.play = nil
		r.playing.Store(false)
	}
}

func (r *renderState) stopCapture() {
	if !r.capturing {
		return
	}
	r.capturing = false
	close(r.captureDone)
	r.captureDone = nil
}

// mixPlayback adds the playing take after the taps.
func (r *renderState) mixPlayback() {
	if r.play == nil {
		return
	}
	s := r.play.Samples
	frames := len(s) / Channels
	for i := range r.outL {
		if r.playPos >= frames {
			if !r.playLoop {
				r.play = nil
				r.playing.Store(false)
				return
			}
			r.playPos = 0
		}
		r.outL[i] += float64(s[2*r.playPos])
		r.outR[i] += float64(s[2*r.playPos+1])
		r.playPos++
	}
}

// onRelease runs on the render callback whenever a voice starts its tail.
func (e *Engine) onRelease(v *synth.Voice) {
	select {
	case e.releases <- released{voice: v, stopTime: v.StopTime()}:
	default:
		// The manager reaps finished voices on its own when its release
		// list fills up.
		e.releaseDrops.Add(1)
	}
}

// housekeeping schedules disposal of released voices once their tail has
// played.
func (e *Engine) housekeeping() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case rel := <-e.releases:
			wait := time.Duration((rel.stopTime-e.Now())*float64(time.Second)) + disposeGrace
			v := rel.voice
			time.AfterFunc(max(wait, 0), func() {
				_ = e.send(command{kind: cmdDispose, voice: v})
			})
		}
	}
}

func interleave(dst []float32, l, r []float64) {
	for i := range l {
		dst[2*i] = float32(l[i])
		dst[2*i+1] = float32(r[i])
	}
}
