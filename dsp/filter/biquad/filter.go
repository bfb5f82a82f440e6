package biquad

import "math"

// Filter is a Section with a modulatable response.
type Filter struct {
	Section

	kind       Kind
	freq, q    float64
	sampleRate float64
	designed   bool
}

// NewFilter returns a filter of the given kind. Coefficients are computed on
// the first call to Set.
func NewFilter(kind Kind, sampleRate float64) *Filter {
	if !kind.Valid() {
		kind = Lowpass
	}
	return &Filter{kind: kind, sampleRate: sampleRate}
}

// Kind returns the filter response.
func (f *Filter) Kind() Kind { return f.kind }

// SetKind changes the response. State is kept.
func (f *Filter) SetKind(k Kind) {
	if k.Valid() && k != f.kind {
		f.kind = k
		f.designed = false
	}
}

// Set updates cutoff and Q, recomputing coefficients only if either moved.
func (f *Filter) Set(freq, q float64) {
	if f.designed && freq == f.freq && q == f.q {
		return
	}
	f.freq, f.q = freq, q
	f.Coefficients = Design(f.kind, freq, q, f.sampleRate)
	f.designed = true
}

// Cutoff returns the last cutoff passed to Set.
func (f *Filter) Cutoff() float64 { return f.freq }

// ProcessSample filters x, flushing the state if it diverged.
func (f *Filter) ProcessSample(x float64) float64 {
	y := f.Section.ProcessSample(x)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		f.Reset()
		return 0
	}
	return y
}
