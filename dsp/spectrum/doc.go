// Package spectrum implements the analysis tap of the master bus.
//
// The audio thread pushes samples into a lock-free ring. Any other
// goroutine can then take byte snapshots of the most recent window in the
// time domain or as a smoothed, Blackman-windowed magnitude spectrum.
package spectrum
