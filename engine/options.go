package engine

import (
	"log/slog"

	"github.com/drew1981/DrewPolySynth/dsp/core"
	"github.com/drew1981/DrewPolySynth/dsp/spectrum"
	"github.com/drew1981/DrewPolySynth/synth"
)

// DefaultRecorderSeconds is the longest take the recorder keeps unless
// WithRecorderCapacity says otherwise.
const DefaultRecorderSeconds = 300

type config struct {
	procOpts        []core.ProcessorOption
	proc            core.ProcessorConfig
	logger          *slog.Logger
	input           InputDevice
	params          synth.Snapshot
	recorderSeconds float64
	analyser        []spectrum.Option
}

// Option configures an Engine.
type Option func(*config)

func defaultConfig() config {
	return config{
		logger:          slog.Default(),
		params:          synth.DefaultSnapshot(),
		recorderSeconds: DefaultRecorderSeconds,
	}
}

// WithProcessorOptions applies sample rate, quantum size and seed options.
func WithProcessorOptions(opts ...core.ProcessorOption) Option {
	return func(c *config) { c.procOpts = append(c.procOpts, opts...) }
}

// WithSampleRate sets the output sample rate.
func WithSampleRate(sampleRate float64) Option {
	return WithProcessorOptions(core.WithSampleRate(sampleRate))
}

// WithBlockSize sets the render quantum in frames.
func WithBlockSize(frames int) Option {
	return WithProcessorOptions(core.WithBlockSize(frames))
}

// WithSeed seeds the grain schedulers and impulse-response noise.
func WithSeed(seed uint64) Option {
	return WithProcessorOptions(core.WithSeed(seed))
}

// WithLogger sets the logger used on control paths. The render callback
// never logs.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithInputDevice sets the capture device probed by InitLiveInput.
func WithInputDevice(d InputDevice) Option {
	return func(c *config) { c.input = d }
}

// WithInitialParameters sets the snapshot the engine starts from.
func WithInitialParameters(p synth.Snapshot) Option {
	return func(c *config) { c.params = p.Sanitize() }
}

// WithRecorderCapacity limits a take to seconds of audio.
func WithRecorderCapacity(seconds float64) Option {
	return func(c *config) {
		if seconds > 0 {
			c.recorderSeconds = seconds
		}
	}
}

// WithAnalyserOptions configures the analysis tap.
func WithAnalyserOptions(opts ...spectrum.Option) Option {
	return func(c *config) { c.analyser = append(c.analyser, opts...) }
}
