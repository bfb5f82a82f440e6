package spectrum

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	algofft "github.com/cwbudde/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"
)

const (
	DefaultFFTSize   = 2048
	DefaultSmoothing = 0.85
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// Kind selects the snapshot domain.
type Kind int

const (
	TimeDomain Kind = iota
	FrequencyDomain
)

func (k Kind) String() string {
	switch k {
	case TimeDomain:
		return "time"
	case FrequencyDomain:
		return "frequency"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Option configures an Analyser.
type Option func(*config)

type config struct {
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64
}

// WithFFTSize sets the window length. It must be a power of two in
// [32, 32768].
func WithFFTSize(n int) Option { return func(c *config) { c.fftSize = n } }

// WithSmoothing sets the time constant applied between frequency
// snapshots, in [0, 1).
func WithSmoothing(s float64) Option { return func(c *config) { c.smoothing = s } }

// WithDecibelRange sets the dB values mapped to byte 0 and byte 255.
func WithDecibelRange(minDB, maxDB float64) Option {
	return func(c *config) {
		c.minDB = minDB
		c.maxDB = maxDB
	}
}

// Analyser captures the most recent FFTSize samples of a signal. Write is
// for the single producer (the audio thread); the snapshot methods may be
// called from any goroutine and serialize among themselves.
type Analyser struct {
	cfg config

	ring    []atomic.Uint64 // float64 bits
	written atomic.Uint64

	mu       sync.Mutex
	plan     *algofft.Plan[complex128]
	window   []float64
	frame    []float64
	timeBuf  []complex128
	spec     []complex128
	re, im   []float64
	mag      []float64
	smoothed []float64
}

// NewAnalyser creates an analyser with a 2048-point window, smoothing 0.85
// and a -100..-30 dB byte range unless overridden.
func NewAnalyser(opts ...Option) (*Analyser, error) {
	cfg := config{
		fftSize:   DefaultFFTSize,
		smoothing: DefaultSmoothing,
		minDB:     DefaultMinDB,
		maxDB:     DefaultMaxDB,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := cfg.fftSize
	if n < 32 || n > 32768 || n&(n-1) != 0 {
		return nil, fmt.Errorf("analyser fft size must be a power of two in [32, 32768]: %d", n)
	}
	if cfg.smoothing < 0 || cfg.smoothing >= 1 || math.IsNaN(cfg.smoothing) {
		return nil, fmt.Errorf("analyser smoothing must be in [0, 1): %f", cfg.smoothing)
	}
	if !(cfg.maxDB > cfg.minDB) {
		return nil, fmt.Errorf("analyser decibel range is empty: [%f, %f]", cfg.minDB, cfg.maxDB)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("spectrum init fft plan: %w", err)
	}

	bins := n / 2
	return &Analyser{
		cfg:      cfg,
		ring:     make([]atomic.Uint64, n),
		plan:     plan,
		window:   blackman(n),
		frame:    make([]float64, n),
		timeBuf:  make([]complex128, n),
		spec:     make([]complex128, n),
		re:       make([]float64, bins),
		im:       make([]float64, bins),
		mag:      make([]float64, bins),
		smoothed: make([]float64, bins),
	}, nil
}

// FFTSize returns the window length.
func (a *Analyser) FFTSize() int { return a.cfg.fftSize }

// FrequencyBinCount returns the number of frequency bins, FFTSize/2.
func (a *Analyser) FrequencyBinCount() int { return a.cfg.fftSize / 2 }

// Write appends mono samples. It never blocks or allocates.
func (a *Analyser) Write(samples []float64) {
	w := a.written.Load()
	mask := uint64(len(a.ring) - 1)
	for _, x := range samples {
		a.ring[w&mask].Store(math.Float64bits(x))
		w++
	}
	a.written.Store(w)
}

// WriteStereo appends the mono downmix (l+r)/2.
func (a *Analyser) WriteStereo(left, right []float64) {
	w := a.written.Load()
	mask := uint64(len(a.ring) - 1)
	n := min(len(left), len(right))
	for i := range n {
		a.ring[w&mask].Store(math.Float64bits(0.5 * (left[i] + right[i])))
		w++
	}
	a.written.Store(w)
}

// Snapshot returns a byte snapshot of the requested kind, reusing dst when
// it has enough capacity.
func (a *Analyser) Snapshot(kind Kind, dst []byte) []byte {
	if kind == FrequencyDomain {
		return a.FrequencyBytes(dst)
	}
	return a.TimeDomainBytes(dst)
}

// TimeDomainBytes writes FFTSize samples mapped by 128·(1+x), clamped to
// [0, 255].
func (a *Analyser) TimeDomainBytes(dst []byte) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loadFrame()
	dst = ensureBytes(dst, len(a.frame))
	for i, x := range a.frame {
		dst[i] = toByte(128 * (1 + x))
	}
	return dst
}

// FrequencyBytes computes a smoothed spectrum and writes FrequencyBinCount
// bytes, mapping the configured dB range onto [0, 255]. Each call advances
// the smoothing state.
func (a *Analyser) FrequencyBytes(dst []byte) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.updateSpectrum()
	dst = ensureBytes(dst, len(a.smoothed))
	scale := 255 / (a.cfg.maxDB - a.cfg.minDB)
	for k, m := range a.smoothed {
		db := a.cfg.minDB - 1
		if m > 0 {
			db = 20 * math.Log10(m)
		}
		dst[k] = toByte(scale * (db - a.cfg.minDB))
	}
	return dst
}

// FloatFrequency computes a smoothed spectrum in dB. Silent bins report
// -Inf.
func (a *Analyser) FloatFrequency(dst []float64) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.updateSpectrum()
	if cap(dst) < len(a.smoothed) {
		dst = make([]float64, len(a.smoothed))
	}
	dst = dst[:len(a.smoothed)]
	for k, m := range a.smoothed {
		dst[k] = 20 * math.Log10(m)
	}
	return dst
}

// Peak returns the absolute peak of the current window.
func (a *Analyser) Peak() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loadFrame()
	return vecmath.MaxAbs(a.frame)
}

// Reset clears captured samples and the smoothing state.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.ring {
		a.ring[i].Store(0)
	}
	clear(a.smoothed)
}

// loadFrame copies the newest FFTSize samples, oldest first.
func (a *Analyser) loadFrame() {
	n := uint64(len(a.ring))
	end := a.written.Load()
	for i := range n {
		a.frame[i] = math.Float64frombits(a.ring[(end+i)&(n-1)].Load())
	}
}

func (a *Analyser) updateSpectrum() {
	a.loadFrame()
	for i, x := range a.frame {
		a.timeBuf[i] = complex(x*a.window[i], 0)
	}
	if err := a.plan.Forward(a.spec, a.timeBuf); err != nil {
		return
	}

	inv := 1 / float64(len(a.frame))
	for k := range a.re {
		a.re[k] = real(a.spec[k]) * inv
		a.im[k] = imag(a.spec[k]) * inv
	}
	vecmath.Magnitude(a.mag, a.re, a.im)

	s := a.cfg.smoothing
	for k, m := range a.mag {
		v := s*a.smoothed[k] + (1-s)*m
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		a.smoothed[k] = v
	}
}

// blackman returns the classic Blackman window (alpha 0.16).
func blackman(n int) []float64 {
	w := make([]float64, n)
	const (
		a0 = 0.42
		a1 = 0.5
		a2 = 0.08
	)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}

func toByte(v float64) byte {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}

func ensureBytes(dst []byte, n int) []byte {
	if cap(dst) < n {
		return make([]byte, n)
	}
	return dst[:n]
}
