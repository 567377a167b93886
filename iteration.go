package lirad

import (
	"fmt"
	"math"
	"sync"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/andizq/star-forming-regions/internal/rng"
)

// PhotonGrowthPolicy selects when the adaptive photon-count scheme
// grows a vertex's photon budget for the next pass (§9, resolving the
// spec's open question about the growth trigger): "regression" grows
// a vertex whose convergence counter decreased since the previous pass
// (it had been counting and was reset this pass), while "nonconvergence"
// grows any vertex that is simply not yet converged, regardless of
// whether it is improving.
type PhotonGrowthPolicy string

const (
	GrowOnRegression     PhotonGrowthPolicy = "regression"
	GrowOnNonconvergence PhotonGrowthPolicy = "nonconvergence"
)

// SolverParams configures the iteration controller (§4.5, §6).
type SolverParams struct {
	NThreads        int
	InitialPhotons  int
	MaxPhotons      int
	GrowthFactor    float64
	BlendWidthHz    float64
	Tol             float64
	ConvergenceGoal int
	MaxIter         int
	MasterSeed      int64
	GrowthPolicy    PhotonGrowthPolicy
}

// RunSolver drives the statistical-equilibrium iteration to
// convergence or MAXITER (§4.4, §4.5): it seeds LTE populations, then
// repeatedly traces photons and re-solves the rate matrix at every
// vertex, reporting pass statistics and growing each vertex's photon
// budget according to params.GrowthPolicy. The returned ConvergenceWarning
// (if any) is non-fatal; the grid's populations are usable either way.
func RunSolver(g *Grid, species []*Species, rateTables [][]rateSplines, params SolverParams, reporter ProgressReporter) ([]PassStats, error) {
	if err := g.RequireStage(StagePhysicsComplete, "RunSolver"); err != nil {
		return nil, err
	}
	if err := InitLTE(g, species); err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = noopReporter{}
	}

	groups := buildBlendGroups(species, params.BlendWidthHz)
	for i := range g.Vertices {
		g.Vertices[i].PhotonBudget = params.InitialPhotons
	}

	prevWorst := make([]float64, len(g.Vertices))
	for i := range prevWorst {
		prevWorst[i] = math.Inf(1)
	}

	var history []PassStats
	for iter := 1; iter <= params.MaxIter; iter++ {
		fracChanges, err := runPass(g, species, rateTables, groups, params, iter)
		if err != nil {
			return history, err
		}
		g.SwapPopulations()

		numConverged := 0
		for i := range g.Vertices {
			if g.Vertices[i].Sink {
				continue
			}
			if g.Vertices[i].ConvergenceCount >= params.ConvergenceGoal {
				numConverged++
			}
		}
		pstats := summarizePass(iter, fracChanges, numConverged, len(g.Vertices))
		reporter.Report(pstats)
		history = append(history, pstats)

		growPhotonBudgets(g, fracChanges, prevWorst, params)
		copy(prevWorst, fracChanges)

		if numConverged >= g.NInterior {
			g.SetStage(StagePopulations)
			return history, nil
		}
	}

	g.SetStage(StagePopulations)
	return history, newError(ConvergenceWarning, fmt.Errorf("reached MAXITER=%d with unconverged vertices remaining", params.MaxIter))
}

// runPass performs one ALI pass: every vertex's photon transport and
// rate-matrix solve runs concurrently across params.NThreads workers,
// each owning a fixed-stride slice of the vertex index space, writing
// into the grid's shadow population buffer (§5, grounded on the
// teacher's Calculations() worker pool — generalized from a per-cell
// mutex to a double-buffer swap at the barrier, since no worker ever
// reads another worker's shadow slot mid-pass).
func runPass(g *Grid, species []*Species, rateTables [][]rateSplines, groups []blendGroup, params SolverParams, iter int) ([]float64, error) {
	nThreads := params.NThreads
	if nThreads < 1 {
		nThreads = 1
	}
	fracChanges := make([]float64, len(g.Vertices))
	errs := make([]error, nThreads)

	var wg sync.WaitGroup
	wg.Add(nThreads)
	for w := 0; w < nThreads; w++ {
		go func(w int) {
			defer wg.Done()
			rnd := rng.WorkerSource(params.MasterSeed, w, iter)
			scratch := newPhotonScratch(len(groups))
			for i := w; i < len(g.Vertices); i += nThreads {
				v := &g.Vertices[i]
				if v.Sink {
					fracChanges[i] = 0
					continue
				}
				TracePhotons(g, v, species, groups, scratch, rnd)
				jbar := DistributeJbar(groups, scratch.jbar, species)

				newPops := make(LevelPops, len(species))
				for si, sp := range species {
					in := rateMatrixInputs{
						species:   sp,
						rates:     rateTables[si],
						jbar:      jbar[si],
						tkin:      v.Tkin,
						densities: v.Density,
					}
					pops, err := SolveVertexSpecies(in)
					if err != nil {
						errs[w] = newVertexError(NumericFailure, v.ID, err)
						return
					}
					newPops[si] = pops
				}

				old := g.Populations(v.ID)
				frac := 0.0
				for si := range newPops {
					if f := maxFractionalChange(old[si], newPops[si]); f > frac {
						frac = f
					}
				}
				fracChanges[i] = frac
				if frac < params.Tol {
					v.ConvergenceCount++
				} else {
					v.ConvergenceCount = 0
				}
				g.writeShadow(v.ID, newPops)
			}
		}(w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fracChanges, err
		}
	}
	return fracChanges, nil
}

// summarizePass reduces one pass's per-vertex fractional changes to
// the aggregate statistics reported after every pass (§4.5b), using
// GoStats for the median; the worst case is found by a direct scan.
func summarizePass(iter int, fracChanges []float64, numConverged, numVertices int) PassStats {
	interior := make([]float64, 0, len(fracChanges))
	worstVertex := -1
	worst := -1.0
	for i, f := range fracChanges {
		interior = append(interior, f)
		if f > worst {
			worst = f
			worstVertex = i
		}
	}
	median := 0.0
	if len(interior) > 0 {
		median = stats.StatsMedian(interior)
	}
	return PassStats{
		Iteration:        iter,
		MedianFracChange: median,
		WorstFracChange:  worst,
		NumConverged:     numConverged,
		NumVertices:      numVertices,
		WorstVertexID:    worstVertex,
	}
}

// growPhotonBudgets scales up a vertex's photon budget for the next
// pass under the configured policy (§9), capped at params.MaxPhotons.
func growPhotonBudgets(g *Grid, fracChanges, prevWorst []float64, params SolverParams) {
	if params.GrowthFactor <= 1 {
		return
	}
	for i := range g.Vertices {
		v := &g.Vertices[i]
		if v.Sink {
			continue
		}
		grow := false
		switch params.GrowthPolicy {
		case GrowOnRegression:
			// The counter was incremented last pass (change below Tol)
			// and has been reset to zero by this one.
			grow = v.ConvergenceCount == 0 && prevWorst[i] < params.Tol
		default: // GrowOnNonconvergence
			grow = v.ConvergenceCount < params.ConvergenceGoal
		}
		if grow {
			next := int(float64(v.PhotonBudget) * params.GrowthFactor)
			if next > params.MaxPhotons {
				next = params.MaxPhotons
			}
			if next > v.PhotonBudget {
				v.PhotonBudget = next
			}
		}
	}
}
