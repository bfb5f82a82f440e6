// Package dynamics provides the master bus compressor.
//
// The compressor uses a soft-knee gain computer in the log2 domain and a
// stereo-linked peak envelope follower, so both channels receive the same
// gain and the stereo image does not shift under compression.
package dynamics
