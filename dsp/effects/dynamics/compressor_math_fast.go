//go:build fastmath

package dynamics

import (
	"math"

	"github.com/meko-christian/algo-approx"
)

// mathLog2 approximates log2(x) as ln(x)/ln(2).
func mathLog2(x float64) float64 {
	return approx.FastLog(x) / math.Ln2
}

// mathPower2 approximates 2^x as e^(x ln 2).
func mathPower2(x float64) float64 {
	return approx.FastExp(x * math.Ln2)
}
