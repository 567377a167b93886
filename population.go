package lirad

import (
	"fmt"
	"math"

	"github.com/andizq/star-forming-regions/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// MinPop is the population floor (§3 invariant): any level population
// below this value is clamped to it before the per-species populations
// are renormalized to sum to one.
const MinPop = 1e-12

const boltzmannC2 = 1.4387770 // hc/k in cm*K, for exp(-E[cm^-1]*c2/T)

// BoltzmannPopulations returns the LTE (Boltzmann) level populations of
// sp at kinetic temperature tkin (§4.2): "level populations are assigned
// from the Boltzmann distribution at the vertex's kinetic temperature."
func BoltzmannPopulations(sp *Species, tkin float64) []float64 {
	pops := make([]float64, sp.NLevels)
	if tkin <= 0 {
		if sp.NLevels > 0 {
			pops[0] = 1
		}
		return pops
	}
	z := 0.0
	for i := 0; i < sp.NLevels; i++ {
		pops[i] = sp.Degeneracy[i] * math.Exp(-boltzmannC2*sp.EnergyTerm[i]/tkin)
		z += pops[i]
	}
	if z > 0 {
		for i := range pops {
			pops[i] /= z
		}
	}
	return clipAndRenormalize(pops)
}

// InitLTE assigns every vertex's populations from the Boltzmann
// distribution at its kinetic temperature (§4.2), used both as the
// iterative solver's starting guess and as the final answer when
// LTE-only mode is requested (Config.LTEOnly).
func InitLTE(g *Grid, species []*Species) error {
	if err := g.RequireStage(StageTemperatures, "InitLTE"); err != nil {
		return err
	}
	for i := range g.Vertices {
		v := &g.Vertices[i]
		pops := make(LevelPops, len(species))
		for s, sp := range species {
			pops[s] = BoltzmannPopulations(sp, v.Tkin)
		}
		g.pops[v.ID] = pops
		g.shadow[v.ID] = pops.Clone()
	}
	g.SetStage(StagePopulations)
	return nil
}

// clipAndRenormalize clamps every component to [MinPop, 1] and rescales
// so the vector sums to one (§3 invariant, §4.4). Any component the
// rescaling pushes back below MinPop is set to MinPop again, so the sum
// may exceed one by at most len(pops)*MinPop.
func clipAndRenormalize(pops []float64) []float64 {
	sum := 0.0
	for i, p := range pops {
		if p < MinPop {
			pops[i] = MinPop
		}
		if pops[i] > 1 {
			pops[i] = 1
		}
		sum += pops[i]
	}
	if sum > 0 {
		for i := range pops {
			pops[i] /= sum
			if pops[i] < MinPop {
				pops[i] = MinPop
			}
		}
	}
	return pops
}

// rateMatrixInputs bundles what SolveVertexSpecies needs to build the
// rate matrix for one species at one vertex, decoupling the solver from
// how jbar and the rate splines were produced.
type rateMatrixInputs struct {
	species  *Species
	rates    []rateSplines // one per collision partner, as built by buildRateSplines
	jbar     []float64     // mean intensity per line, from the photon engine
	tkin     float64
	densities []float64 // density per collision partner, matching sp.Partners order
}

// buildRateMatrix assembles the N×N rate matrix (§4.4): off-diagonal
// entries combine radiative (A, B*jbar) and collisional (density-
// weighted C) transition rates; diagonal entries are the negative
// column sums; the last row is overwritten with the normalization
// constraint (populations sum to one).
func buildRateMatrix(in rateMatrixInputs) (*mat.Dense, []float64) {
	n := in.species.NLevels
	a := mat.NewDense(n, n, nil)

	for li := 0; li < in.species.NLines; li++ {
		u, l := in.species.Upper[li], in.species.Lower[li]
		bul, blu := in.species.EinsteinB(li)
		jb := 0.0
		if li < len(in.jbar) {
			jb = in.jbar[li]
		}
		// Spontaneous + stimulated emission, upper -> lower.
		a.Set(l, u, a.At(l, u)+in.species.EinsteinA[li]+bul*jb)
		// Absorption, lower -> upper.
		a.Set(u, l, a.At(u, l)+blu*jb)
	}

	for pi, partner := range in.rates {
		density := 0.0
		if pi < len(in.densities) {
			density = in.densities[pi]
		}
		for ti, u := range partner.upper {
			l := partner.lower[ti]
			cDown := partner.collisionRate(u, l, in.tkin) * density
			a.Set(l, u, a.At(l, u)+cDown)
			// Detailed-balance upward rate from the downward rate and
			// the Boltzmann level-degeneracy ratio at this temperature.
			gu := in.species.Degeneracy[u]
			gl := in.species.Degeneracy[l]
			dE := in.species.EnergyTerm[u] - in.species.EnergyTerm[l]
			cUp := cDown * (gu / gl) * math.Exp(-boltzmannC2*dE/in.tkin)
			a.Set(u, l, a.At(u, l)+cUp)
		}
	}

	for j := 0; j < n; j++ {
		colSum := 0.0
		for i := 0; i < n; i++ {
			if i != j {
				colSum += a.At(i, j)
			}
		}
		a.Set(j, j, -colSum)
	}

	// Overwrite the last row with the normalization constraint.
	for k := 0; k < n; k++ {
		a.Set(n-1, k, 1)
	}
	b := make([]float64, n)
	b[n-1] = 1
	return a, b
}

// SolveVertexSpecies solves the statistical-equilibrium equations for
// one species at one vertex given jbar from the photon engine (§4.4),
// returning the new level populations.
func SolveVertexSpecies(in rateMatrixInputs) ([]float64, error) {
	a, b := buildRateMatrix(in)
	x, err := linalg.Solve(a, b)
	if err != nil {
		return nil, fmt.Errorf("lirad: solving rate matrix for species %s: %w", in.species.Name, err)
	}
	for _, v := range x {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("lirad: NaN population for species %s", in.species.Name)
		}
	}
	return clipAndRenormalize(x), nil
}

// maxFractionalChange returns the largest |new-old|/max(old,MinPop)
// across all components of oldPops/newPops (§4.4).
func maxFractionalChange(oldPops, newPops []float64) float64 {
	worst := 0.0
	for i := range newPops {
		denom := oldPops[i]
		if denom < MinPop {
			denom = MinPop
		}
		frac := math.Abs(newPops[i]-oldPops[i]) / denom
		if frac > worst {
			worst = frac
		}
	}
	return worst
}
