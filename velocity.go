package lirad

import (
	"fmt"

	"github.com/andizq/star-forming-regions/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// FitVelocityCoefficients computes the edges's a0..a4 with a quartic
// polynomial in normalized arc length s in [0,1], sampling the
// user-supplied velocity field at 5 equispaced points along the edge
// and projecting onto the edge direction (§4.1): "a quartic-in-arc-length
// polynomial matches the user velocity field sampled at five equispaced
// points along the edge; the endpoint values define a0 and
// a0+a1+a2+a3+a4 respectively."
func FitVelocityCoefficients(from, to [3]float64, dir [3]float64, length float64, model UserModel) ([5]float64, error) {
	const nSamples = 5
	a := mat.NewDense(nSamples, nSamples, nil)
	b := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		s := float64(i) / float64(nSamples-1)
		p := [3]float64{
			from[0] + s*(to[0]-from[0]),
			from[1] + s*(to[1]-from[1]),
			from[2] + s*(to[2]-from[2]),
		}
		v := model.Velocity(p[0], p[1], p[2])
		b[i] = v[0]*dir[0] + v[1]*dir[1] + v[2]*dir[2]
		power := 1.0
		for k := 0; k < nSamples; k++ {
			a.Set(i, k, power)
			power *= s
		}
	}
	x, err := linalg.Solve(a, b)
	if err != nil {
		return [5]float64{}, fmt.Errorf("lirad: fitting velocity coefficients over edge of length %g: %w", length, err)
	}
	var out [5]float64
	copy(out[:], x)
	return out, nil
}

// VelocityAt evaluates the fitted quartic at normalized arc length
// s in [0,1] along a directed edge.
func VelocityAt(coeffs [5]float64, s float64) float64 {
	v := 0.0
	power := 1.0
	for k := 0; k < 5; k++ {
		v += coeffs[k] * power
		power *= s
	}
	return v
}

// FillVelocityCoefficients populates every vertex's neighbour-link
// velocity coefficients and each vertex's bulk velocity from the user
// model (§4.1). It requires StagePositions and StageNeighbors in the
// data-completeness mask and sets StageVelocity and StageVelocityCoeffs.
func FillVelocityCoefficients(g *Grid, model UserModel) error {
	if err := g.RequireStage(StagePositions|StageNeighbors, "FillVelocityCoefficients"); err != nil {
		return err
	}
	for vi := range g.Vertices {
		v := &g.Vertices[vi]
		v.Velocity = model.Velocity(v.Pos[0], v.Pos[1], v.Pos[2])
		for li := range v.neighbors {
			link := &v.neighbors[li]
			other := g.Vertices[link.vertex].Pos
			coeffs, err := FitVelocityCoefficients(v.Pos, other, link.dir, g.Edges[link.edge].Length, model)
			if err != nil {
				return newVertexError(NumericFailure, v.ID, err)
			}
			link.coeffs = coeffs
		}
	}
	g.SetStage(StageVelocity | StageVelocityCoeffs)
	return nil
}
