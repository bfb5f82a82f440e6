// Package conv provides direct and uniformly partitioned FFT convolution.
//
// [Direct] is the O(N*M) reference used for short kernels and tests.
// [Partitioned] streams a long impulse response through a frequency-domain
// delay line with a fixed latency of one partition, which keeps per-block
// cost bounded regardless of the impulse response length. Kernel spectra
// live in an immutable [Kernel] so they can be prepared off the audio
// thread.
package conv
