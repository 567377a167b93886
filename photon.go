package lirad

import (
	"math"
	"math/rand"

	"github.com/andizq/star-forming-regions/internal/numeric"
)

// cosmicBackgroundTemp is the cosmic microwave background temperature
// used as the default external radiation field (§4.3).
const cosmicBackgroundTemp = 2.725

// maxRayVertices bounds a single photon trajectory's walk across the
// neighbour graph, so a degenerate grid (an isolated cluster with no
// path to a sink) cannot spin a worker forever.
const maxRayVertices = 10000

// lineRef identifies one line of one modelled species.
type lineRef struct {
	species int
	line    int
	freq    float64
}

// blendGroup is a set of lines close enough in rest frequency that a
// photon at one line's frequency can be absorbed or re-emitted by
// another (§4.3: "line blending"). Single-linkage merging by
// blendWidthHz groups lines into the same local radiation field.
type blendGroup struct {
	members []lineRef
}

// buildBlendGroups groups every line of every species into overlapping
// sets by rest frequency, single-linkage, so that lines closer than
// blendWidthHz to any other member of a group end up in the same group
// (§4.3, §9: "a global blend list spanning every modelled species").
func buildBlendGroups(species []*Species, blendWidthHz float64) []blendGroup {
	var lines []lineRef
	for si, sp := range species {
		for li := 0; li < sp.NLines; li++ {
			lines = append(lines, lineRef{species: si, line: li, freq: sp.RestFreq[li]})
		}
	}
	if len(lines) == 0 {
		return nil
	}
	sortLinesByFreq(lines)

	var groups []blendGroup
	cur := blendGroup{members: []lineRef{lines[0]}}
	for i := 1; i < len(lines); i++ {
		prev := cur.members[len(cur.members)-1]
		if blendWidthHz > 0 && lines[i].freq-prev.freq <= blendWidthHz {
			cur.members = append(cur.members, lines[i])
		} else {
			groups = append(groups, cur)
			cur = blendGroup{members: []lineRef{lines[i]}}
		}
	}
	groups = append(groups, cur)
	return groups
}

// sortLinesByFreq sorts in place by ascending rest frequency; insertion
// sort is adequate since the line count is small (tens, not millions).
func sortLinesByFreq(lines []lineRef) {
	for i := 1; i < len(lines); i++ {
		for j := i; j > 0 && lines[j].freq < lines[j-1].freq; j-- {
			lines[j], lines[j-1] = lines[j-1], lines[j]
		}
	}
}

// lineIndex maps (species,line) to its position within groups, so a
// photon's group membership can be looked up in O(1) once built.
type lineIndex map[[2]int]int

// DistributeJbar expands a per-group mean intensity vector back out to
// per-species, per-line jbar slices, since every line in a blend group
// shares the same local radiation field (§4.3).
func DistributeJbar(groups []blendGroup, groupJbar []float64, species []*Species) [][]float64 {
	out := make([][]float64, len(species))
	for si, sp := range species {
		out[si] = make([]float64, sp.NLines)
	}
	for gi, grp := range groups {
		for _, m := range grp.members {
			out[m.species][m.line] = groupJbar[gi]
		}
	}
	return out
}

func indexBlendGroups(groups []blendGroup) lineIndex {
	idx := make(lineIndex)
	for gi, g := range groups {
		for _, m := range g.members {
			idx[[2]int{m.species, m.line}] = gi
		}
	}
	return idx
}

// photonScratch is the per-worker reusable buffer set for photon
// transport, allocated once per goroutine and reused across every
// vertex and pass it handles (§5, §9: "thread-local scratch avoids a
// per-ray allocation").
type photonScratch struct {
	jbar []float64 // accumulator, one slot per blend group
	hits []int     // launches that reached a sink or step limit, per group
}

func newPhotonScratch(nGroups int) *photonScratch {
	return &photonScratch{
		jbar: make([]float64, nGroups),
		hits: make([]int, nGroups),
	}
}

func (s *photonScratch) reset() {
	for i := range s.jbar {
		s.jbar[i] = 0
		s.hits[i] = 0
	}
}

// TracePhotons launches v.PhotonBudget photon trajectories from v,
// biased toward neighbours by their importance weight, accumulates the
// mean intensity jbar seen at each blend group's rest frequency, and
// writes the result into scratch.jbar (§4.3, §4.5): each trajectory
// walks the neighbour graph, integrating optical depth and source
// function contributions from every vertex it passes, until it exits
// through a sink vertex or the walk limit is reached.
func TracePhotons(g *Grid, v *Vertex, species []*Species, groups []blendGroup, scratch *photonScratch, rnd *rand.Rand) {
	scratch.reset()
	if len(groups) == 0 || v.NumNeighbors() == 0 {
		return
	}
	for gi, grp := range groups {
		freq := grp.members[0].freq
		for n := 0; n < v.PhotonBudget; n++ {
			intensity := traceOneRay(g, v, species, grp, freq, rnd)
			scratch.jbar[gi] += intensity
			scratch.hits[gi]++
		}
	}
	for gi := range scratch.jbar {
		if scratch.hits[gi] > 0 {
			scratch.jbar[gi] /= float64(scratch.hits[gi])
		}
	}
}

// traceOneRay walks a single photon trajectory starting at v, returning
// the intensity it carries back at the group's representative
// frequency: the cosmic background attenuated by accumulated optical
// depth, plus the source function emitted by every vertex it crossed,
// each weighted by the local Gauss line profile and dust continuum.
func traceOneRay(g *Grid, v *Vertex, species []*Species, grp blendGroup, freq float64, rnd *rand.Rand) float64 {
	tau := 0.0
	emission := 0.0
	cur := v

	for step := 0; step < maxRayVertices; step++ {
		if cur.Sink {
			break
		}
		link := pickNeighbor(cur, rnd)
		if link == nil {
			break
		}
		next := &g.Vertices[link.vertex]
		dTau, dEmission := segmentContribution(g, cur, species, grp, freq, link.edge)
		emission += dEmission * math.Exp(-tau)
		tau += dTau
		cur = next
	}

	background := numeric.Planck(freq, cosmicBackgroundTemp)
	return background*math.Exp(-tau) + emission
}

// pickNeighbor chooses a neighbour of v by importance weight (§4.3,
// §9: "importance-sampled neighbour selection, never uniform, so
// photons preferentially follow high-density or high-opacity paths").
func pickNeighbor(v *Vertex, rnd *rand.Rand) *neighborLink {
	if len(v.neighbors) == 0 {
		return nil
	}
	total := 0.0
	for i := range v.neighbors {
		total += v.neighbors[i].weight
	}
	if total <= 0 {
		i := rnd.Intn(len(v.neighbors))
		return &v.neighbors[i]
	}
	r := rnd.Float64() * total
	cum := 0.0
	for i := range v.neighbors {
		cum += v.neighbors[i].weight
		if r <= cum {
			return &v.neighbors[i]
		}
	}
	return &v.neighbors[len(v.neighbors)-1]
}

// segmentContribution returns the optical depth and emitted intensity
// contributed by crossing the edge at cur toward one neighbour, summed
// over every blended line's Gauss profile plus the dust continuum
// (§4.3, §4.4): line opacity is proportional to the lower-level
// population and the Einstein B absorption coefficient, net of
// stimulated emission.
func segmentContribution(g *Grid, cur *Vertex, species []*Species, grp blendGroup, freq float64, edge int) (dTau, dEmission float64) {
	length := g.Edges[edge].Length
	pops := g.Populations(cur.ID)
	for _, m := range grp.members {
		sp := species[m.species]
		u, l := sp.Upper[m.line], sp.Lower[m.line]
		bul, blu := sp.EinsteinB(m.line)
		if len(pops[m.species]) <= u || len(pops[m.species]) <= l {
			continue
		}
		nu, nl := pops[m.species][u], pops[m.species][l]
		profile := numeric.GaussProfile(freq, sp.RestFreq[m.line], cur.DopplerWidth)
		opacity := (nl*blu - nu*bul) * profile * length
		if opacity < 0 {
			opacity = 0 // maser amplification is out of scope; clamp to absorption-only
		}
		// Source function is emissivity/opacity; the profile factor
		// cancels between the two, so it is left out here and folded
		// back in once via the opacity multiplied below.
		source := 0.0
		if nl > 0 {
			source = (nu * sp.EinsteinA[m.line]) / (nl*blu - nu*bul + 1e-300)
		}
		dTau += opacity
		dEmission += source * opacity
	}
	if len(cur.DustOpacity) > 0 {
		for si := range species {
			if si >= len(cur.DustOpacity) {
				continue
			}
			for li, kappa := range cur.DustOpacity[si] {
				if math.Abs(species[si].RestFreq[li]-freq) > cur.DopplerWidth*10 {
					continue
				}
				dTau += kappa * length
				// DustEmissivity is already DustOpacity * Planck(Tdust)
				// (fields.go); the source*dTau contribution is this times
				// length alone, not multiplied by kappa again.
				dEmission += cur.DustEmissivity[si][li] * length
			}
		}
	}
	return dTau, dEmission
}
