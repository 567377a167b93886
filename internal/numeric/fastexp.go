// Package numeric provides the small set of numeric kernels shared by the
// photon transport engine and the raytracer: a fast-exponential table, the
// Gauss line profile, and the Planck function.
package numeric

import "math"

// Fast-exp table parameters (§4.7). These bit widths and the Taylor
// truncation order are magic numbers inherited from the spec; they are
// not reinterpreted.
const (
	// FastExpNumBits sets the table size: 1<<FastExpNumBits equal-width
	// buckets spanning [fastExpMinArg, 0). The bucket is chosen from the
	// argument's position in that range, not from its mantissa bits.
	FastExpNumBits = 10
	// FastExpMaxTaylor is the order at which the per-bucket Taylor
	// correction is truncated.
	FastExpMaxTaylor = 3
	// fastExpMinArg is the most negative argument the table covers;
	// outside this range FastExp falls back to math.Exp.
	fastExpMinArg = -20.0
)

var fastExpTable [1 << FastExpNumBits]float64

func init() {
	// Each bucket holds exp(x0) at the bucket's left edge; FastExp then
	// applies a local Taylor correction for the offset within the bucket.
	step := -fastExpMinArg / float64(len(fastExpTable))
	for i := range fastExpTable {
		x0 := fastExpMinArg + float64(i)*step
		fastExpTable[i] = math.Exp(x0)
	}
}

// FastExp approximates exp(x) for x in [fastExpMinArg, 0) using a
// precomputed table plus a truncated Taylor-series correction, falling
// back to math.Exp outside that range (so FastExp(0) is exactly 1).
func FastExp(x float64) float64 {
	if x >= 0 || x < fastExpMinArg {
		return math.Exp(x)
	}
	n := len(fastExpTable)
	step := -fastExpMinArg / float64(n)
	fi := (x - fastExpMinArg) / step
	i := int(fi)
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	x0 := fastExpMinArg + float64(i)*step
	dx := x - x0
	base := fastExpTable[i]

	// Taylor series for exp(x0+dx) = exp(x0) * exp(dx), truncated at
	// FastExpMaxTaylor terms of exp(dx).
	term := 1.0
	sum := 1.0
	for k := 1; k <= FastExpMaxTaylor; k++ {
		term *= dx / float64(k)
		sum += term
	}
	return base * sum
}
