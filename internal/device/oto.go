package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoOutput plays a Renderer through the default output device.
type OtoOutput struct {
	ctx    *oto.Context
	reader *PCMReader

	mu      sync.Mutex // setup and transport only; never taken by Read
	player  *oto.Player
	started bool
}

// NewOtoOutput opens the default device at sampleRate with the given
// number of channels. bufferSize is the device buffer; zero lets oto pick.
func NewOtoOutput(sampleRate, channels int, bufferSize time.Duration) (*OtoOutput, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("output sample rate must be > 0: %d", sampleRate)
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	<-ready

	return &OtoOutput{ctx: ctx, reader: NewPCMReader(channels)}, nil
}

// Start begins pulling audio from r.
func (o *OtoOutput) Start(r Renderer) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.reader.SetSource(r)
	if o.player == nil {
		o.player = o.ctx.NewPlayer(o.reader)
	}
	if !o.started {
		o.player.Play()
		o.started = true
	}
}

// Started reports whether the player is running.
func (o *OtoOutput) Started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// Close stops playback and releases the player.
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.reader.SetSource(nil)
	o.started = false
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}
