package biquad

// Coefficients of one second-order section with a0 normalized to 1,
// in Direct Form II Transposed:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Section is a biquad with its delay state.
type Section struct {
	Coefficients

	d0, d1 float64
}

// ProcessSample filters one input sample and returns the output.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.d0
	s.d0 = s.B1*x - s.A1*y + s.d1
	s.d1 = s.B2*x - s.A2*y

	return y
}

// Reset clears the delay state.
func (s *Section) Reset() {
	s.d0, s.d1 = 0, 0
}
