// Package spatial provides a 3-D point index for the nearest-neighbour
// queries of tessellation (§4.1) and of raytrace interpolation. The
// minScale check during rejection sampling does not use it.
//
// It is structurally adapted from the recursive, bounds-pruned nearest
// point search in github.com/ctessum/geom/index/rtree, generalized from
// that package's two axes (X, Y) to three (X, Y, Z): that package's
// geom.Point type has only X and Y fields and cannot represent a
// volumetric point cloud, so it could not be used directly here (see
// DESIGN.md).
package spatial

import "math"

// Point is one indexed 3-D point plus an opaque id to recover which
// vertex it belongs to.
type Point struct {
	Pos [3]float64
	ID  int
}

type node struct {
	point       Point
	left, right *node
	axis        int
}

// Tree is a static k-d tree: it is built once from a fixed point set
// (matching the grid's fixed-size allocation, §3 lifecycle) and queried
// many times; it does not support incremental insertion.
type Tree struct {
	root *node
	n    int
}

// Build constructs a balanced k-d tree over pts.
func Build(pts []Point) *Tree {
	cp := make([]Point, len(pts))
	copy(cp, pts)
	return &Tree{root: build(cp, 0), n: len(pts)}
}

func build(pts []Point, depth int) *node {
	if len(pts) == 0 {
		return nil
	}
	axis := depth % 3
	sortByAxis(pts, axis)
	mid := len(pts) / 2
	n := &node{point: pts[mid], axis: axis}
	n.left = build(pts[:mid], depth+1)
	n.right = build(pts[mid+1:], depth+1)
	return n
}

// sortByAxis is a simple insertion sort; grid construction calls this
// during one-time tree builds, not in any per-ray or per-photon hot
// loop, so asymptotic cost here does not matter.
func sortByAxis(pts []Point, axis int) {
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0 && pts[j].Pos[axis] < pts[j-1].Pos[axis]; j-- {
			pts[j], pts[j-1] = pts[j-1], pts[j]
		}
	}
}

func sqDist(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}

// Nearest returns the closest indexed point to q, excluding any point
// whose ID equals excludeID (pass -1 to exclude nothing), and whether
// the tree held any eligible point at all.
func (t *Tree) Nearest(q [3]float64, excludeID int) (Point, bool) {
	if t.root == nil {
		return Point{}, false
	}
	var best Point
	bestDist := math.Inf(1)
	found := false
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.point.ID != excludeID {
			d := sqDist(n.point.Pos, q)
			if d < bestDist {
				bestDist = d
				best = n.point
				found = true
			}
		}
		diff := q[n.axis] - n.point.Pos[n.axis]
		var near, far *node
		if diff < 0 {
			near, far = n.left, n.right
		} else {
			near, far = n.right, n.left
		}
		walk(near)
		// Only descend into the far side if it could possibly contain a
		// closer point than what we've already found (minDist pruning,
		// per the teacher's index/rtree minDist/minMaxDist technique).
		if diff*diff < bestDist {
			walk(far)
		}
	}
	walk(t.root)
	return best, found
}

// KNearest returns up to k closest indexed points to q (excluding a
// point whose ID equals excludeID), sorted nearest-first.
func (t *Tree) KNearest(q [3]float64, k, excludeID int) []Point {
	if t.root == nil || k <= 0 {
		return nil
	}
	type scored struct {
		p Point
		d float64
	}
	var best []scored
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.point.ID != excludeID {
			d := sqDist(n.point.Pos, q)
			inserted := false
			for i := range best {
				if d < best[i].d {
					best = append(best, scored{})
					copy(best[i+1:], best[i:])
					best[i] = scored{p: n.point, d: d}
					inserted = true
					break
				}
			}
			if !inserted && len(best) < k {
				best = append(best, scored{p: n.point, d: d})
			}
			if len(best) > k {
				best = best[:k]
			}
		}
		diff := q[n.axis] - n.point.Pos[n.axis]
		var near, far *node
		if diff < 0 {
			near, far = n.left, n.right
		} else {
			near, far = n.right, n.left
		}
		walk(near)
		if len(best) < k || diff*diff < best[len(best)-1].d {
			walk(far)
		}
	}
	walk(t.root)
	out := make([]Point, len(best))
	for i, s := range best {
		out[i] = s.p
	}
	return out
}
