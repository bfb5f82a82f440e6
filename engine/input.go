package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/drew1981/DrewPolySynth/dsp/core"
	"github.com/drew1981/DrewPolySynth/internal/ringbuf"
)

// InputDevice captures mono audio. Open starts delivering blocks of
// samples at sampleRate to deliver, from a goroutine of the device's
// choosing. deliver never blocks.
type InputDevice interface {
	Open(sampleRate float64, deliver func(samples []float32)) error
	Close() error
}

// inputRingSeconds is the capture headroom between the device and the
// render callback.
const inputRingSeconds = 0.5

// inputBacklogSeconds is the largest delay tolerated before old input is
// skipped.
const inputBacklogSeconds = 0.05

type liveInput struct {
	mu   sync.Mutex
	open bool
	ring *ringbuf.Float32
}

func inputRingFrames(sampleRate float64) int {
	return int(math.Ceil(sampleRate * inputRingSeconds))
}

// InitLiveInput opens the configured input device and merges it into the
// graph. It reports false when no device is configured or the device
// refuses to open; the engine keeps working either way. Calling it again
// after success is a no-op returning true.
func (e *Engine) InitLiveInput() bool {
	e.input.mu.Lock()
	defer e.input.mu.Unlock()

	if e.input.open {
		return true
	}
	if e.closed.Load() {
		return false
	}
	dev := e.cfg.input
	if dev == nil {
		e.log.Warn("live input unavailable", slog.Any("error", ErrNoInputDevice))
		return false
	}

	ring := e.input.ring
	if err := dev.Open(e.sampleRate, func(samples []float32) { ring.Write(samples) }); err != nil {
		e.log.Warn("live input unavailable", slog.Any("error", err))
		return false
	}
	e.input.open = true
	e.log.Info("live input connected", slog.Float64("sample_rate", e.sampleRate))
	return true
}

// LiveInputActive reports whether an input device is open.
func (e *Engine) LiveInputActive() bool {
	e.input.mu.Lock()
	defer e.input.mu.Unlock()
	return e.input.open
}

// SetInputGain glides the live-input level toward gain, clamped to [0, 2].
// The level starts at 0.
func (e *Engine) SetInputGain(gain float64) error {
	return e.send(command{kind: cmdInputGain, value: gain})
}

// SetInputFXSend routes the live input into the reverb as well as the dry
// path. The send starts enabled.
func (e *Engine) SetInputFXSend(enabled bool) error {
	return e.send(command{kind: cmdInputSend, flag: enabled})
}

func (e *Engine) closeInput() error {
	e.input.mu.Lock()
	defer e.input.mu.Unlock()
	if !e.input.open {
		return nil
	}
	e.input.open = false
	if err := e.cfg.input.Close(); err != nil {
		return fmt.Errorf("engine: close input: %w", err)
	}
	return nil
}

// readLiveInput pulls one quantum of input, skipping anything older than
// the backlog limit. Missing samples read as silence.
func (e *Engine) readLiveInput(dst []float64, raw []float32) {
	ring := e.input.ring
	limit := len(raw) + int(e.sampleRate*inputBacklogSeconds)
	for ring.Len() > limit {
		ring.Read(raw)
	}
	n := ring.Read(raw)
	for i := range n {
		dst[i] = float64(raw[i])
	}
	core.Zero(dst[n:])
}
