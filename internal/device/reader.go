package device

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// Renderer produces interleaved float32 frames. *engine.Engine satisfies
// it.
type Renderer interface {
	Render(dst []float32)
}

type source struct{ r Renderer }

// PCMReader adapts a Renderer to io.Reader producing little-endian float32
// PCM. The source can be swapped while the reader is being drained.
type PCMReader struct {
	channels int
	src      atomic.Pointer[source]
	buf      []float32
}

// NewPCMReader returns a reader for channels interleaved channels.
func NewPCMReader(channels int) *PCMReader {
	return &PCMReader{channels: max(1, channels), buf: make([]float32, 4096)}
}

// SetSource installs r; nil plays silence.
func (pr *PCMReader) SetSource(r Renderer) {
	if r == nil {
		pr.src.Store(nil)
		return
	}
	pr.src.Store(&source{r: r})
}

// Read fills p with whole frames and pads any trailing partial frame with
// zeros. It never fails.
func (pr *PCMReader) Read(p []byte) (int, error) {
	const bytesPerSample = 4
	frameBytes := bytesPerSample * pr.channels
	samples := len(p) / frameBytes * pr.channels

	s := pr.src.Load()
	if s == nil || samples == 0 {
		clear(p)
		return len(p), nil
	}

	if len(pr.buf) < samples {
		pr.buf = make([]float32, samples)
	}
	buf := pr.buf[:samples]
	s.r.Render(buf)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(v))
	}
	clear(p[samples*bytesPerSample:])
	return len(p), nil
}
