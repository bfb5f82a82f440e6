//go:build !fastmath

package dynamics

import "math"

func mathLog2(x float64) float64 { return math.Log2(x) }

func mathPower2(x float64) float64 { return math.Exp2(x) }
