package core

import "testing"

func TestZero(t *testing.T) {
	buf := []float64{1, -2, 3}
	Zero(buf[1:])
	if buf[0] != 1 || buf[1] != 0 || buf[2] != 0 {
		t.Fatalf("Zero cleared the wrong range: %v", buf)
	}
	Zero(nil)
}
