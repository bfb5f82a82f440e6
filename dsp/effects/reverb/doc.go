// Package reverb provides the synth's convolution reverb.
//
// Impulse responses are synthetic stereo noise bursts shaped by a power-law
// decay. Hall is a plain burst; shimmer adds a periodic amplitude ripple and
// a softened onset. Responses are generated and transformed off the audio
// thread into a [KernelSet], which a [ConvolutionReverb] picks up atomically.
package reverb
