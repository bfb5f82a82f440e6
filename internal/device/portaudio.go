package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// DefaultInputFrames is the capture buffer size used when none is given.
const DefaultInputFrames = 256

// PortAudioInput captures mono audio from the default input device. It
// implements engine.InputDevice.
type PortAudioInput struct {
	frames int

	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewPortAudioInput returns an unopened capture device delivering blocks
// of frames samples.
func NewPortAudioInput(frames int) *PortAudioInput {
	if frames <= 0 {
		frames = DefaultInputFrames
	}
	return &PortAudioInput{frames: frames}
}

// Open initializes PortAudio and starts the capture stream.
func (in *PortAudioInput) Open(sampleRate float64, deliver func([]float32)) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.stream != nil {
		return errors.New("portaudio input already open")
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, in.frames, func(samples []float32) {
		deliver(samples)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("portaudio open input: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("portaudio start input: %w", err)
	}
	in.stream = stream
	return nil
}

// Close stops the stream and releases PortAudio. Closing an unopened
// device is a no-op.
func (in *PortAudioInput) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.stream == nil {
		return nil
	}
	err := errors.Join(in.stream.Stop(), in.stream.Close(), portaudio.Terminate())
	in.stream = nil
	return err
}
