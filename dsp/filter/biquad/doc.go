// Package biquad provides second-order IIR sections and the resonant
// lowpass, highpass, bandpass and notch designs used by synth voices.
//
// A [Section] implements Direct Form II Transposed processing. A [Filter]
// wraps a Section with a response type, cutoff and Q, and recomputes its
// coefficients only when those change, so it can follow per-sample
// modulation.
package biquad
