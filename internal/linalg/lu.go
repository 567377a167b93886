// Package linalg wraps the dense linear-algebra operations used by the
// statistical-equilibrium solver.
package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Solve solves a*x = b for x using LU decomposition with partial
// pivoting, returning an error if a is singular to working precision.
// It is used both for the per-vertex rate matrix (§4.4) and for the
// exactly-determined quartic velocity-coefficient fit (§4.1).
func Solve(a *mat.Dense, b []float64) ([]float64, error) {
	n, m := a.Dims()
	if n != m {
		return nil, fmt.Errorf("linalg: rate matrix is %dx%d, must be square", n, m)
	}
	if len(b) != n {
		return nil, fmt.Errorf("linalg: rhs length %d does not match matrix size %d", len(b), n)
	}

	var lu mat.LU
	lu.Factorize(a)
	if c := lu.Cond(); c > 1e14 {
		return nil, fmt.Errorf("linalg: rate matrix is singular or ill-conditioned (cond=%g)", c)
	}

	x := mat.NewVecDense(n, nil)
	rhs := mat.NewVecDense(n, append([]float64(nil), b...))
	if err := lu.SolveVecTo(x, false, rhs); err != nil {
		return nil, fmt.Errorf("linalg: LU solve failed: %w", err)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = x.AtVec(i)
	}
	return out, nil
}
