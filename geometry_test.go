package lirad

import (
	"math"
	"math/rand"
	"testing"
)

func TestSampleInteriorStaysInsideRadius(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	pts, err := SampleInterior(50, 10, 0.1, UniformAcceptance, rnd)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 50 {
		t.Fatalf("expected 50 points, got %d", len(pts))
	}
	for _, p := range pts {
		r := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if r >= 10 {
			t.Errorf("point at radius %g should be strictly inside 10", r)
		}
	}
}

func TestSampleInteriorRespectsMinScale(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	minScale := 0.5
	pts, err := SampleInterior(30, 10, minScale, UniformAcceptance, rnd)
	if err != nil {
		t.Fatal(err)
	}
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			d := math.Sqrt(sqDist3(pts[i], pts[j]))
			if d < minScale {
				t.Errorf("points %d,%d separated by %g < minScale %g", i, j, d, minScale)
			}
		}
	}
}

func TestSampleSinkOnBoundarySphere(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	radius := 7.0
	pts := SampleSink(20, radius, rnd)
	for _, p := range pts {
		r := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if math.Abs(r-radius) > 1e-9 {
			t.Errorf("sink point radius %g, want %g", r, radius)
		}
	}
}

func TestKNNTessellatorSymmetricEdges(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	interior, err := SampleInterior(40, 10, 0.1, UniformAcceptance, rnd)
	if err != nil {
		t.Fatal(err)
	}
	sinks := SampleSink(12, 10, rnd)
	points := append(interior, sinks...)

	tess := KNNTessellator{K: 10}
	edges, neighbors, err := tess.Tessellate(points)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) == 0 {
		t.Fatal("expected at least one edge")
	}
	for _, e := range edges {
		if e.Length <= 0 {
			t.Errorf("edge (%d,%d) has non-positive length %g", e.A, e.B, e.Length)
		}
		foundAB, foundBA := false, false
		for _, n := range neighbors[e.A] {
			if n == e.B {
				foundAB = true
			}
		}
		for _, n := range neighbors[e.B] {
			if n == e.A {
				foundBA = true
			}
		}
		if !foundAB || !foundBA {
			t.Errorf("edge (%d,%d) not symmetric in neighbor lists", e.A, e.B)
		}
	}
}

func TestBuildGridDirectionsAreOpposite(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	g, err := BuildGrid(40, 10, 10, 0.2, UniformAcceptance, 1, []int{2}, KNNTessellator{K: 8}, rnd)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Stage().Has(StagePositions | StageNeighbors) {
		t.Fatal("expected positions and neighbors stage bits to be set")
	}
	for vi := range g.Vertices {
		v := &g.Vertices[vi]
		for _, link := range v.neighbors {
			other := &g.Vertices[link.vertex]
			var reciprocal *neighborLink
			for i := range other.neighbors {
				if other.neighbors[i].vertex == vi {
					reciprocal = &other.neighbors[i]
					break
				}
			}
			if reciprocal == nil {
				t.Fatalf("vertex %d neighbor %d has no reciprocal link", vi, link.vertex)
			}
			sum := [3]float64{
				link.dir[0] + reciprocal.dir[0],
				link.dir[1] + reciprocal.dir[1],
				link.dir[2] + reciprocal.dir[2],
			}
			norm := math.Sqrt(sum[0]*sum[0] + sum[1]*sum[1] + sum[2]*sum[2])
			if norm > 1e-9 {
				t.Errorf("directions not opposite for (%d,%d): sum norm=%g", vi, link.vertex, norm)
			}
		}
	}
}
