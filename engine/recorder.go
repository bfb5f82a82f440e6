package engine

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/drew1981/DrewPolySynth/internal/ringbuf"
)

const (
	captureRingSeconds = 1.0
	drainInterval      = 20 * time.Millisecond
	drainChunk         = 4096
)

// Take is a captured recording of the master output. A Take is never
// modified after it is returned.
type Take struct {
	SampleRate float64
	Samples    []float32 // interleaved stereo
}

// Frames returns the number of stereo frames.
func (t *Take) Frames() int {
	if t == nil {
		return 0
	}
	return len(t.Samples) / Channels
}

// Duration returns the length of the take.
func (t *Take) Duration() time.Duration {
	if t == nil || t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(t.Frames()) / t.SampleRate * float64(time.Second))
}

// Channel returns a copy of one channel, 0 for left and 1 for right.
func (t *Take) Channel(ch int) []float64 {
	out := make([]float64, t.Frames())
	for i := range out {
		out[i] = float64(t.Samples[i*Channels+ch])
	}
	return out
}

type captureSession struct {
	stopped  chan struct{} // closed by the render callback
	finished chan struct{} // closed once the take is assembled
}

type recorder struct {
	ring       *ringbuf.Float32
	sampleRate float64
	maxSamples int

	mu        sync.Mutex
	session   *captureSession
	pending   []float32
	truncated int
	take      *Take
}

func (r *recorder) init(sampleRate, seconds float64) {
	r.sampleRate = sampleRate
	r.maxSamples = int(math.Ceil(sampleRate*seconds)) * Channels
	r.ring = ringbuf.New(int(math.Ceil(sampleRate*captureRingSeconds)) * Channels)
}

// StartRecording begins capturing the master output. Starting while a
// capture is running discards what was captured so far.
func (e *Engine) StartRecording() error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()

	e.rec.pending = e.rec.pending[:0]
	e.rec.truncated = 0
	if e.rec.session != nil {
		return nil
	}

	// Nothing reads or writes the ring between sessions.
	e.rec.ring.Discard()
	s := &captureSession{stopped: make(chan struct{}), finished: make(chan struct{})}
	if err := e.send(command{kind: cmdCaptureStart, signal: s.stopped}); err != nil {
		return err
	}
	e.rec.session = s

	e.wg.Add(1)
	go e.drainCapture(s)

	e.log.Debug("recording started")
	return nil
}

// StopRecording ends the capture and waits until the take is assembled or
// ctx is done. The render callback must be running for it to complete.
// Without a running capture it returns nil immediately.
func (e *Engine) StopRecording(ctx context.Context) error {
	e.rec.mu.Lock()
	s := e.rec.session
	e.rec.mu.Unlock()
	if s == nil {
		return nil
	}
	if err := e.send(command{kind: cmdCaptureStop}); err != nil {
		return err
	}
	select {
	case <-s.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recording reports whether a capture is running.
func (e *Engine) Recording() bool {
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	return e.rec.session != nil
}

// Take returns the last finished recording, or nil.
func (e *Engine) Take() *Take {
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	return e.rec.take
}

// PlayRecording plays the last take after the output taps, once or
// looped. Without a take it does nothing.
func (e *Engine) PlayRecording(loop bool) error {
	take := e.Take()
	if take.Frames() == 0 {
		return nil
	}
	return e.send(command{kind: cmdPlay, take: take, flag: loop})
}

// StopPlayback stops the playing take. It is a no-op when nothing plays.
func (e *Engine) StopPlayback() error {
	return e.send(command{kind: cmdStopPlayback})
}

// Playing reports whether a take is being played.
func (e *Engine) Playing() bool { return e.playing.Load() }

// ClearRecording drops the take and stops its playback.
func (e *Engine) ClearRecording() error {
	e.rec.mu.Lock()
	e.rec.take = nil
	e.rec.pending = e.rec.pending[:0]
	e.rec.mu.Unlock()
	return e.StopPlayback()
}

func (e *Engine) drainCapture(s *captureSession) {
	defer e.wg.Done()

	buf := make([]float32, drainChunk)
	tick := time.NewTicker(drainInterval)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			e.rec.collect(buf)
		case <-s.stopped:
			e.rec.collect(buf)
			e.finishTake(s)
			return
		case <-e.done:
			e.rec.collect(buf)
			e.finishTake(s)
			return
		}
	}
}

// collect moves captured samples out of the ring.
func (r *recorder) collect(buf []float32) {
	for {
		n := r.ring.Read(buf)
		if n == 0 {
			return
		}
		r.mu.Lock()
		keep := min(n, r.maxSamples-len(r.pending))
		r.pending = append(r.pending, buf[:keep]...)
		r.truncated += n - keep
		r.mu.Unlock()
	}
}

func (e *Engine) finishTake(s *captureSession) {
	e.rec.mu.Lock()
	var take *Take
	if len(e.rec.pending) > 0 {
		take = &Take{SampleRate: e.rec.sampleRate, Samples: slices.Clone(e.rec.pending)}
	}
	e.rec.take = take
	e.rec.pending = e.rec.pending[:0]
	truncated := e.rec.truncated
	e.rec.session = nil
	e.rec.mu.Unlock()
	close(s.finished)

	attrs := []any{
		slog.Int("frames", take.Frames()),
		slog.Duration("length", take.Duration()),
	}
	if truncated > 0 || e.rec.ring.Dropped() > 0 {
		attrs = append(attrs,
			slog.Int("truncated_samples", truncated),
			slog.Uint64("overflow_samples", e.rec.ring.Dropped()))
		e.log.Warn("recording incomplete", attrs...)
		return
	}
	e.log.Info("recording finished", attrs...)
}
