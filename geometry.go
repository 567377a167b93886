package lirad

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Knetic/govaluate"
	"github.com/andizq/star-forming-regions/internal/spatial"
)

// maxAcceptanceProbability is the ceiling against which a candidate
// point's acceptance-function value is compared during rejection
// sampling (§4.1, §9). Its value, 0.15, is a magic number inherited
// unexplained from the source system; it is preserved verbatim rather
// than reinterpreted.
const maxAcceptanceProbability = 0.15

// AcceptanceFunc scores a candidate interior point; rejection sampling
// accepts the point with probability proportional to its return value,
// capped at maxAcceptanceProbability (§4.1).
type AcceptanceFunc func(x, y, z float64) float64

// GovaluateAcceptance builds an AcceptanceFunc from a user-supplied
// arithmetic expression over the variables x, y, z (§6 "sampling:
// acceptance-function selector"), using github.com/Knetic/govaluate.
func GovaluateAcceptance(expr string) (AcceptanceFunc, error) {
	ev, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, newError(ConfigInvalid, fmt.Errorf("lirad: parsing acceptance expression %q: %w", expr, err))
	}
	return func(x, y, z float64) float64 {
		result, err := ev.Evaluate(map[string]interface{}{"x": x, "y": y, "z": z})
		if err != nil {
			return 0
		}
		v, ok := result.(float64)
		if !ok {
			return 0
		}
		return v
	}, nil
}

// UniformAcceptance is the trivial acceptance function that accepts
// every candidate point uniformly.
func UniformAcceptance(x, y, z float64) float64 { return maxAcceptanceProbability }

// SampleInterior draws n interior points inside a sphere of the given
// radius by rejection sampling against acceptance, additionally
// rejecting any candidate closer than minScale to an already-accepted
// point (§4.1).
func SampleInterior(n int, radius, minScale float64, acceptance AcceptanceFunc, rnd *rand.Rand) ([][3]float64, error) {
	if acceptance == nil {
		acceptance = UniformAcceptance
	}
	pts := make([][3]float64, 0, n)
	const maxAttemptsPerPoint = 1_000_000
	for len(pts) < n {
		accepted := false
		for attempt := 0; attempt < maxAttemptsPerPoint; attempt++ {
			x, y, z := uniformInSphere(radius, rnd)
			u := rnd.Float64() * maxAcceptanceProbability
			if p := acceptance(x, y, z); u >= p {
				continue
			}
			if tooClose(pts, [3]float64{x, y, z}, minScale) {
				continue
			}
			pts = append(pts, [3]float64{x, y, z})
			accepted = true
			break
		}
		if !accepted {
			return nil, newError(GeometryFailure, fmt.Errorf(
				"could not place interior point %d/%d after %d attempts: acceptance function or minScale=%g may be too restrictive",
				len(pts)+1, n, maxAttemptsPerPoint, minScale))
		}
	}
	return pts, nil
}

// SampleSink distributes n points uniformly on the bounding sphere of
// the given radius (§4.1), using the Marsaglia method.
func SampleSink(n int, radius float64, rnd *rand.Rand) [][3]float64 {
	pts := make([][3]float64, n)
	for i := 0; i < n; i++ {
		pts[i] = onSphere(radius, rnd)
	}
	return pts
}

func uniformInSphere(radius float64, rnd *rand.Rand) (x, y, z float64) {
	for {
		x = (rnd.Float64()*2 - 1) * radius
		y = (rnd.Float64()*2 - 1) * radius
		z = (rnd.Float64()*2 - 1) * radius
		if x*x+y*y+z*z <= radius*radius {
			return
		}
	}
}

func onSphere(radius float64, rnd *rand.Rand) [3]float64 {
	for {
		u := rnd.Float64()*2 - 1
		v := rnd.Float64()*2 - 1
		s := u*u + v*v
		if s >= 1 {
			continue
		}
		f := 2 * math.Sqrt(1-s)
		return [3]float64{radius * u * f, radius * v * f, radius * (1 - 2*s)}
	}
}

func tooClose(existing [][3]float64, p [3]float64, minScale float64) bool {
	if minScale <= 0 {
		return false
	}
	min2 := minScale * minScale
	for _, q := range existing {
		dx, dy, dz := p[0]-q[0], p[1]-q[1], p[2]-q[2]
		if dx*dx+dy*dy+dz*dz < min2 {
			return true
		}
	}
	return false
}

// Tessellator builds the neighbour graph of a point cloud (§4.1, §9:
// "any implementation must call an equivalent Delaunay tessellator; no
// attempt should be made to reimplement it"). The bundled
// implementation, KNNTessellator, is a k-d-tree-accelerated
// relative-neighbourhood graph construction — a standard Delaunay-graph
// approximation — used because no true 3-D Delaunay binding exists
// anywhere in the examined ecosystem (see DESIGN.md). A binding to a
// real external tessellator can be substituted by implementing this
// interface.
type Tessellator interface {
	Tessellate(points [][3]float64) (edges []Edge, neighbors [][]int, err error)
}

// KNNTessellator builds a relative-neighbourhood graph: candidate
// neighbours for each point are its K nearest points by Euclidean
// distance, and an edge (p,q) survives only if no other candidate r
// lies closer to both p and q than p and q lie to each other (the
// standard relative-neighbourhood-graph test, restricted to the
// k-nearest candidate set for tractability).
type KNNTessellator struct {
	K int // candidate neighbour count per point; 0 selects a default
}

func (t KNNTessellator) candidateCount() int {
	if t.K > 0 {
		return t.K
	}
	return 20
}

func (t KNNTessellator) Tessellate(points [][3]float64) ([]Edge, [][]int, error) {
	if len(points) < 2 {
		return nil, nil, newError(GeometryFailure, fmt.Errorf("tessellation needs at least 2 points, got %d", len(points)))
	}
	k := t.candidateCount()
	idx := make([]spatial.Point, len(points))
	for i, p := range points {
		idx[i] = spatial.Point{Pos: p, ID: i}
	}
	tree := spatial.Build(idx)

	candidates := make([][]spatial.Point, len(points))
	for i, p := range points {
		candidates[i] = tree.KNearest(p, k, i)
	}

	type edgeKey struct{ a, b int }
	seen := make(map[edgeKey]bool)
	var edges []Edge
	neighbors := make([][]int, len(points))

	for i, p := range points {
		for _, c := range candidates[i] {
			j := c.ID
			key := edgeKey{min(i, j), max(i, j)}
			if seen[key] {
				continue
			}
			if !isRelativeNeighbor(p, points[j], candidates[i], candidates[j]) {
				continue
			}
			seen[key] = true
			length := math.Sqrt(sqDist3(p, points[j]))
			if length <= 0 {
				return nil, nil, newError(GeometryFailure, fmt.Errorf("degenerate edge of zero length between points %d and %d", i, j))
			}
			edges = append(edges, Edge{A: i, B: j, Length: length})
			neighbors[i] = append(neighbors[i], j)
			neighbors[j] = append(neighbors[j], i)
		}
	}
	return edges, neighbors, nil
}

// isRelativeNeighbor reports whether no candidate r of p or q lies
// within both the sphere of radius |pq| centred on p and the one
// centred on q — the relative-neighbourhood-graph edge test.
func isRelativeNeighbor(p, q [3]float64, candP, candQ []spatial.Point) bool {
	pq := sqDist3(p, q)
	check := func(cands []spatial.Point) bool {
		for _, c := range cands {
			if c.Pos == p || c.Pos == q {
				continue
			}
			if sqDist3(p, c.Pos) < pq && sqDist3(q, c.Pos) < pq {
				return false
			}
		}
		return true
	}
	return check(candP) && check(candQ)
}

func sqDist3(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

// BuildGrid samples positions, tessellates them, and populates the
// resulting Grid's Vertices/Edges/neighbor lists (§4.1). It does not
// fill in velocity coefficients or any physical field — those are
// later enrichment stages (see fields.go, velocity.go, population.go) gated by
// GridStage.
func BuildGrid(nInterior, nSink int, radius, minScale float64, acceptance AcceptanceFunc,
	nSpecies int, levelsPerSpecies []int, tess Tessellator, rnd *rand.Rand) (*Grid, error) {

	interior, err := SampleInterior(nInterior, radius, minScale, acceptance, rnd)
	if err != nil {
		return nil, err
	}
	sinks := SampleSink(nSink, radius, rnd)

	points := make([][3]float64, 0, nInterior+nSink)
	points = append(points, interior...)
	points = append(points, sinks...)

	g := NewGrid(nInterior, nSink, radius, minScale, nSpecies, levelsPerSpecies)
	for i, p := range points {
		g.Vertices[i].Pos = p
		g.Vertices[i].Sink = i >= nInterior
	}
	g.SetStage(StagePositions)

	if err := tessellateInto(g, tess, points); err != nil {
		return nil, err
	}
	return g, nil
}

// tessellateInto runs tess over points and (re-)populates g's edges and
// per-vertex neighbour lists, replacing whatever was there before. It
// is also used by the smoothing pass, which re-tessellates after every
// relaxation step (§4.1).
func tessellateInto(g *Grid, tess Tessellator, points [][3]float64) error {
	edges, neighborIDs, err := tess.Tessellate(points)
	if err != nil {
		return err
	}
	g.Edges = edges
	for i := range g.Vertices {
		g.Vertices[i].neighbors = nil
	}
	for ei, e := range edges {
		dirAB := unit(sub(points[e.B], points[e.A]))
		dirBA := unit(sub(points[e.A], points[e.B]))
		g.addNeighbor(e.A, e.B, ei, dirAB)
		g.addNeighbor(e.B, e.A, ei, dirBA)
	}
	_ = neighborIDs // neighbor IDs are reconstructed from edges above; kept in the Tessellator interface for implementations that want to report them directly
	assignNeighborWeights(g)
	g.SetStage(StageNeighbors)
	return nil
}

func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func unit(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}

// assignNeighborWeights sets each neighbour link's importance-sampling
// weight from the edge's inverse-square length (§3: "a per-neighbour
// weight used for importance sampling"): a shorter edge subtends a
// larger solid angle from the vertex than a longer one, so a photon
// launched with an isotropic direction distribution is more likely to
// be closest to a near neighbour than a far one. This runs at
// tessellation time, before any physical field is known; once density
// is available, updateNeighborWeightsFromDensity refines it further
// (§4.3: the photon engine draws directions biased by this
// distribution, never uniformly).
func assignNeighborWeights(g *Grid) {
	for vi := range g.Vertices {
		v := &g.Vertices[vi]
		for ni := range v.neighbors {
			length := g.Edges[v.neighbors[ni].edge].Length
			if length <= 0 {
				length = 1e-300
			}
			v.neighbors[ni].weight = 1 / (length * length)
		}
	}
}

// updateNeighborWeightsFromDensity folds the neighbouring vertex's
// density into its solid-angle weight, so photons are additionally
// biased toward denser (more likely to absorb/re-emit) neighbours
// rather than by geometry alone (§4.3). Called once density is filled
// in (FillPhysicalFields); safe to call multiple times.
func updateNeighborWeightsFromDensity(g *Grid) {
	for vi := range g.Vertices {
		v := &g.Vertices[vi]
		for ni := range v.neighbors {
			neighbor := &g.Vertices[v.neighbors[ni].vertex]
			length := g.Edges[v.neighbors[ni].edge].Length
			if length <= 0 {
				length = 1e-300
			}
			density := 0.0
			if len(neighbor.Density) > 0 {
				density = neighbor.Density[0]
			}
			v.neighbors[ni].weight = (density + 1) / (length * length)
		}
	}
}

// SmoothGrid relaxes interior vertex positions toward the centroid of
// their neighbour set, re-tessellating after each pass to improve mesh
// isotropy (§4.1). Sink vertices are never moved.
func SmoothGrid(g *Grid, tess Tessellator, passes int, damping float64) error {
	if damping <= 0 || damping > 1 {
		damping = 0.5
	}
	for pass := 0; pass < passes; pass++ {
		points := make([][3]float64, len(g.Vertices))
		for i := range g.Vertices {
			points[i] = g.Vertices[i].Pos
		}
		newPoints := make([][3]float64, len(points))
		copy(newPoints, points)
		for i := range g.Vertices {
			if g.Vertices[i].Sink {
				continue
			}
			nb := g.Vertices[i].neighbors
			if len(nb) == 0 {
				continue
			}
			var cx, cy, cz float64
			for _, link := range nb {
				p := points[link.vertex]
				cx += p[0]
				cy += p[1]
				cz += p[2]
			}
			n := float64(len(nb))
			centroid := [3]float64{cx / n, cy / n, cz / n}
			p := points[i]
			newPoints[i] = [3]float64{
				p[0] + damping*(centroid[0]-p[0]),
				p[1] + damping*(centroid[1]-p[1]),
				p[2] + damping*(centroid[2]-p[2]),
			}
		}
		for i := range g.Vertices {
			g.Vertices[i].Pos = newPoints[i]
		}
		if err := tessellateInto(g, tess, newPoints); err != nil {
			return err
		}
	}
	return nil
}
