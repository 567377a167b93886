package lirad

import (
	"math"
	"testing"

	"github.com/andizq/star-forming-regions/internal/numeric"
)

func threeLevelSpecies() *Species {
	return &Species{
		Name:       "test",
		NLevels:    3,
		NLines:     2,
		Upper:      []int{1, 2},
		Lower:      []int{0, 1},
		EinsteinA:  []float64{1e-6, 1e-6},
		RestFreq:   []float64{1e11, 2e11},
		Degeneracy: []float64{1, 3, 5},
		EnergyTerm: []float64{0, 5, 15},
	}
}

func TestBoltzmannPopulationsSumsToOne(t *testing.T) {
	sp := threeLevelSpecies()
	pops := BoltzmannPopulations(sp, 30)
	sum := 0.0
	for _, p := range pops {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("populations sum to %g, want 1", sum)
	}
	g := sp.Degeneracy
	if pops[0]/g[0] <= pops[1]/g[1] || pops[1]/g[1] <= pops[2]/g[2] {
		t.Errorf("expected per-substate populations n_i/g_i to decrease with level energy, got %v", pops)
	}
}

func TestBoltzmannPopulationsGroundStateAtZeroTemperature(t *testing.T) {
	sp := threeLevelSpecies()
	pops := BoltzmannPopulations(sp, 0)
	if pops[0] != 1 {
		t.Errorf("expected all population in the ground state at T=0, got %v", pops)
	}
}

func TestClipAndRenormalizeEnforcesFloor(t *testing.T) {
	pops := clipAndRenormalize([]float64{1, 0, -5})
	for _, p := range pops {
		if p < MinPop {
			t.Errorf("population %g below floor %g", p, MinPop)
		}
	}
	sum := 0.0
	for _, p := range pops {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("renormalized sum = %g, want 1", sum)
	}
}

func TestSolveVertexSpeciesZeroRadiationSumsToOne(t *testing.T) {
	sp := threeLevelSpecies()
	temps := []float64{10, 50, 100}
	s1, err := numeric.NewSpline(temps, []float64{1e-10, 2e-10, 3e-10})
	if err != nil {
		t.Fatal(err)
	}
	s2, err := numeric.NewSpline(temps, []float64{5e-11, 1e-10, 1.5e-10})
	if err != nil {
		t.Fatal(err)
	}
	in := rateMatrixInputs{
		species: sp,
		rates: []rateSplines{{
			partner: "H2",
			upper:   []int{1, 2},
			lower:   []int{0, 1},
			splines: []*numeric.Spline{s1, s2},
		}},
		jbar:      []float64{0, 0},
		tkin:      30,
		densities: []float64{1e4},
	}
	pops, err := SolveVertexSpecies(in)
	if err != nil {
		t.Fatal(err)
	}
	sum := 0.0
	for _, p := range pops {
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("solved populations sum to %g, want 1", sum)
	}
}
