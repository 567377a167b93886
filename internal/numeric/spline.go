package numeric

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Spline is a cubic-spline interpolant over a tabulated function,
// used to interpolate collision rate coefficients on the kinetic
// temperature axis (§4.2) and dust opacity on wavelength (§6).
type Spline struct {
	pc   interp.PiecewiseCubic
	xmin float64
	xmax float64
}

// NewSpline builds a cubic spline through the given (x, y) table. x must
// be strictly increasing and have at least two points.
func NewSpline(x, y []float64) (*Spline, error) {
	if len(x) < 2 || len(x) != len(y) {
		return nil, fmt.Errorf("numeric: spline table needs >=2 points with matching lengths, got %d x, %d y", len(x), len(y))
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, fmt.Errorf("numeric: spline x values must be strictly increasing at index %d", i)
		}
	}
	var pc interp.PiecewiseCubic
	if err := pc.Fit(x, y); err != nil {
		return nil, fmt.Errorf("numeric: fitting spline: %w", err)
	}
	return &Spline{pc: pc, xmin: x[0], xmax: x[len(x)-1]}, nil
}

// At evaluates the spline at x, clamping to the table's endpoints when x
// falls outside the tabulated range.
func (s *Spline) At(x float64) float64 {
	if x < s.xmin {
		x = s.xmin
	}
	if x > s.xmax {
		x = s.xmax
	}
	return s.pc.Predict(x)
}
