package spatial

import "testing"

func samplePoints() []Point {
	return []Point{
		{Pos: [3]float64{0, 0, 0}, ID: 0},
		{Pos: [3]float64{1, 0, 0}, ID: 1},
		{Pos: [3]float64{0, 1, 0}, ID: 2},
		{Pos: [3]float64{5, 5, 5}, ID: 3},
		{Pos: [3]float64{-1, -1, -1}, ID: 4},
	}
}

func TestNearestFindsClosest(t *testing.T) {
	tree := Build(samplePoints())
	p, ok := tree.Nearest([3]float64{0.1, 0, 0}, -1)
	if !ok {
		t.Fatal("expected a result")
	}
	if p.ID != 0 && p.ID != 1 {
		t.Errorf("nearest to (0.1,0,0) should be id 0 or 1, got %d", p.ID)
	}
}

func TestNearestExcludesSelf(t *testing.T) {
	tree := Build(samplePoints())
	p, ok := tree.Nearest([3]float64{0, 0, 0}, 0)
	if !ok {
		t.Fatal("expected a result")
	}
	if p.ID == 0 {
		t.Errorf("expected exclusion of id 0, got it back")
	}
}

func TestKNearestOrdering(t *testing.T) {
	tree := Build(samplePoints())
	res := tree.KNearest([3]float64{0, 0, 0}, 3, -1)
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	lastDist := -1.0
	for _, p := range res {
		d := sqDist(p.Pos, [3]float64{0, 0, 0})
		if d < lastDist {
			t.Errorf("results not sorted nearest-first")
		}
		lastDist = d
	}
	if res[0].ID != 0 {
		t.Errorf("closest point should be id 0, got %d", res[0].ID)
	}
}

func TestKNearestCapsAtAvailablePoints(t *testing.T) {
	tree := Build(samplePoints())
	res := tree.KNearest([3]float64{0, 0, 0}, 100, -1)
	if len(res) != 5 {
		t.Errorf("expected all 5 points, got %d", len(res))
	}
}

func TestEmptyTree(t *testing.T) {
	tree := Build(nil)
	if _, ok := tree.Nearest([3]float64{0, 0, 0}, -1); ok {
		t.Error("expected no result from an empty tree")
	}
	if res := tree.KNearest([3]float64{0, 0, 0}, 3, -1); res != nil {
		t.Error("expected nil result from an empty tree")
	}
}
