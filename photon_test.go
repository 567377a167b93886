package lirad

import (
	"math/rand"
	"testing"
)

func twoLineSpecies() *Species {
	return &Species{
		Name:    "test",
		NLevels: 3,
		NLines:  2,
		Upper:   []int{1, 2},
		Lower:   []int{0, 1},
		EinsteinA: []float64{1e-5, 1e-5},
		RestFreq:  []float64{1e11, 2e11},
		Degeneracy: []float64{1, 3, 5},
		EnergyTerm: []float64{0, 5, 15},
	}
}

func TestBuildBlendGroupsMergesCloseLines(t *testing.T) {
	species := []*Species{twoLineSpecies()}
	groups := buildBlendGroups(species, 1e11+1)
	if len(groups) != 1 {
		t.Fatalf("expected lines within blend width to merge into 1 group, got %d", len(groups))
	}

	groups = buildBlendGroups(species, 1)
	if len(groups) != 2 {
		t.Fatalf("expected distant lines to stay separate, got %d groups", len(groups))
	}
}

func TestTracePhotonsIsolatedVertexReturnsNoContribution(t *testing.T) {
	g := NewGrid(1, 0, 10, 0.1, 1, []int{3})
	v := &g.Vertices[0]
	v.PhotonBudget = 5
	species := []*Species{twoLineSpecies()}
	groups := buildBlendGroups(species, 1e11+1)
	scratch := newPhotonScratch(len(groups))
	rnd := rand.New(rand.NewSource(1))

	TracePhotons(g, v, species, groups, scratch, rnd)
	for _, j := range scratch.jbar {
		if j != 0 {
			t.Errorf("expected zero jbar for a vertex with no neighbors, got %g", j)
		}
	}
}

func TestTracePhotonsDeterministicWithSameSeed(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	g, err := BuildGrid(20, 6, 10, 0.2, UniformAcceptance, 1, []int{3}, KNNTessellator{K: 6}, rnd)
	if err != nil {
		t.Fatal(err)
	}
	for i := range g.Vertices {
		g.Vertices[i].DopplerWidth = 1e4
		g.Vertices[i].PhotonBudget = 20
	}
	species := []*Species{twoLineSpecies()}
	groups := buildBlendGroups(species, 1)
	v := &g.Vertices[0]

	run := func(seed int64) []float64 {
		scratch := newPhotonScratch(len(groups))
		TracePhotons(g, v, species, groups, scratch, rand.New(rand.NewSource(seed)))
		return append([]float64(nil), scratch.jbar...)
	}

	a := run(42)
	b := run(42)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("group %d: jbar differs across identically seeded runs: %g vs %g", i, a[i], b[i])
		}
	}
}
