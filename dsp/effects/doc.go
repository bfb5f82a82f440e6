// Package effects provides the grain-based effect stages of the synth.
//
//   - Granular: a stochastic grain cloud read from a short history buffer.
//   - QuantizedDelay: a rhythmic echo built from delay-length grains whose
//     playback speed is drawn from a musical scale.
//
// Subpackages:
//   - github.com/drew1981/DrewPolySynth/dsp/effects/dynamics
//   - github.com/drew1981/DrewPolySynth/dsp/effects/reverb
//
// Both processors keep fixed-size grain pools and never allocate while
// processing. They are not safe for concurrent use.
package effects
