package interp

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// Ring reads the circular buffer buf at the non-negative position pos.
// Integer positions return the stored sample unchanged.
func Ring(buf []float64, pos float64) float64 {
	n := len(buf)
	if n == 0 {
		return 0
	}
	i := int(pos)
	t := pos - float64(i)
	i0 := i % n
	if t == 0 {
		return buf[i0]
	}
	return Hermite4(t, buf[(i0+n-1)%n], buf[i0], buf[(i0+1)%n], buf[(i0+2)%n])
}
