// Package wavio reads and writes interleaved float32 audio as PCM WAV.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidFile is returned when a stream is not a WAV file.
var ErrInvalidFile = errors.New("wavio: not a wav file")

// Encode writes samples (interleaved, nominally in [-1, 1]) as integer
// PCM of bitDepth 16 or 24. Samples outside the range are clipped.
func Encode(w io.WriteSeeker, sampleRate, bitDepth, channels int, samples []float32) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("wavio: unsupported bit depth %d", bitDepth)
	}
	if channels <= 0 || sampleRate <= 0 {
		return fmt.Errorf("wavio: invalid format %d Hz x %d channels", sampleRate, channels)
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, channels, 1)
	scale := math.Exp2(float64(bitDepth-1)) - 1
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		buf.Data[i] = int(math.Round(v * scale))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavio: write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: close: %w", err)
	}
	return nil
}

// WriteFile creates path and encodes samples into it.
func WriteFile(path string, sampleRate, bitDepth, channels int, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, sampleRate, bitDepth, channels, samples); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Clip is a decoded WAV stream.
type Clip struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []float32 // interleaved, scaled to [-1, 1]
}

// Decode reads a PCM WAV stream.
func Decode(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: decode: %w", err)
	}
	bits := int(d.BitDepth)
	scale := math.Exp2(float64(bits-1)) - 1
	c := &Clip{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   bits,
		Samples:    make([]float32, len(buf.Data)),
	}
	for i, v := range buf.Data {
		c.Samples[i] = float32(float64(v) / scale)
	}
	return c, nil
}
