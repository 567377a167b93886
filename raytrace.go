package lirad

import (
	"fmt"
	"math"
	"sync"

	"github.com/andizq/star-forming-regions/internal/numeric"
	"github.com/andizq/star-forming-regions/internal/spatial"
)

func errInvalidSpeciesIndex(i int) error {
	return fmt.Errorf("lirad: image species index %d out of range", i)
}

func errInvalidLineIndex(i int) error {
	return fmt.Errorf("lirad: image line index %d out of range", i)
}

// raytraceKNN is the number of nearest vertices inverse-distance
// weighted at each ray step to stand in for true barycentric
// tetrahedral interpolation (§4.6): the grid has no Delaunay simplex
// connectivity (§9, geometry.go's Tessellator doc comment), only the
// relative-neighbourhood graph, so interpolation is done against a k-d
// tree of the vertex positions rather than against simplex vertices.
const raytraceKNN = 4

// antiAliasSamples is the number of sub-rays averaged per pixel, cast
// at the fixed 2x2 sub-pixel offsets of subPixelOffset (§4.6:
// "anti-aliasing by sub-sample averaging").
const antiAliasSamples = 4

// RayTraceImage renders img by marching a camera ray through the solved
// grid for every pixel and velocity channel (§4.6), requiring that the
// grid's populations are solved (§3 lifecycle). It fills img.Intensity,
// img.OpticalDepth, and — when img.Polarization is set — img.StokesQ/U.
func RayTraceImage(g *Grid, species []*Species, img *Image) error {
	if err := g.RequireStage(StageSolved, "RayTraceImage"); err != nil {
		return err
	}
	if err := img.validate(); err != nil {
		return err
	}
	if img.Species >= len(species) {
		return newError(ConfigInvalid, errInvalidSpeciesIndex(img.Species))
	}
	sp := species[img.Species]
	if img.Line >= sp.NLines {
		return newError(ConfigInvalid, errInvalidLineIndex(img.Line))
	}

	points := make([]spatial.Point, len(g.Vertices))
	for i, v := range g.Vertices {
		points[i] = spatial.Point{Pos: v.Pos, ID: v.ID}
	}
	tree := spatial.Build(points)
	rot := img.rotationMatrix()
	stepLen := g.MinScale
	if stepLen <= 0 {
		stepLen = g.Radius / 200
	}

	nChannels := img.NChannels
	if img.ContinuumOnly {
		nChannels = 1
	}

	var wg sync.WaitGroup
	nThreads := 4
	rowsPerWorker := (img.Ny + nThreads - 1) / nThreads
	for w := 0; w < nThreads; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > img.Ny {
			endRow = img.Ny
		}
		if startRow >= endRow {
			continue
		}
		wg.Add(1)
		go func(startRow, endRow int) {
			defer wg.Done()
			for row := startRow; row < endRow; row++ {
				for col := 0; col < img.Nx; col++ {
					for ch := 0; ch < nChannels; ch++ {
						intensity, q, u, tau := traceOnePixel(g, sp, img, tree, rot, stepLen, row, col, ch, nChannels)
						idx := img.index(ch, row, col)
						img.Intensity[idx] = intensity
						img.OpticalDepth[idx] = tau
						if img.Polarization {
							img.StokesQ[idx] = q
							img.StokesU[idx] = u
						}
					}
				}
			}
		}(startRow, endRow)
	}
	wg.Wait()
	return nil
}

// traceOnePixel integrates the radiative transfer equation along the
// line of sight for one pixel and channel, averaging antiAliasSamples
// sub-rays at fixed sub-pixel offsets (§4.6).
func traceOnePixel(g *Grid, sp *Species, img *Image, tree *spatial.Tree, rot [3][3]float64, stepLen float64, row, col, ch, nChannels int) (intensity, q, u, tau float64) {
	channelV := img.ChannelV0
	if nChannels > 1 {
		channelV = img.ChannelV0 + float64(ch)*img.ChannelRes
	}
	lineFreq := sp.RestFreq[img.Line] * (1 - channelV/299792458.0)

	for s := 0; s < antiAliasSamples; s++ {
		jx, jy := subPixelOffset(s)
		px := (float64(col) - float64(img.Nx)/2 + jx) * img.PixelSize * img.Distance
		py := (float64(row) - float64(img.Ny)/2 + jy) * img.PixelSize * img.Distance

		origin := matVec3(rot, [3]float64{px, py, -g.Radius * 2})
		dir := matVec3(rot, [3]float64{0, 0, 1})

		si, sq, su, stau := marchRay(g, sp, img, tree, rot, origin, dir, stepLen, lineFreq)
		intensity += si
		q += sq
		u += su
		tau += stau
	}
	n := float64(antiAliasSamples)
	return intensity / n, q / n, u / n, tau / n
}

func subPixelOffset(s int) (float64, float64) {
	offsets := [4][2]float64{{-0.25, -0.25}, {0.25, -0.25}, {-0.25, 0.25}, {0.25, 0.25}}
	o := offsets[s%len(offsets)]
	return o[0], o[1]
}

// marchRay steps a single ray through the sphere of radius g.Radius,
// interpolating local opacity/source function at each step and
// integrating the two-term analytic exp(-tau) solution (§4.6: "an
// analytic two-term exp(-tau) integrator rather than naive Euler
// stepping, since the source function is assumed constant across one
// step").
func marchRay(g *Grid, sp *Species, img *Image, tree *spatial.Tree, rot [3][3]float64, origin, dir [3]float64, stepLen, freq float64) (intensity, q, u, tau float64) {
	pos := origin
	background := numeric.Planck(freq, cosmicBackgroundTemp)
	intensity = background
	camRot := transpose3(rot)

	maxSteps := int(4*g.Radius/stepLen) + 10
	for step := 0; step < maxSteps; step++ {
		r := math.Sqrt(pos[0]*pos[0] + pos[1]*pos[1] + pos[2]*pos[2])
		if r <= g.Radius {
			opacity, source, bField := interpolateAt(g, sp, tree, img, pos, freq)
			dTau := opacity * stepLen
			if dTau > 0 {
				absorb := -math.Expm1(-dTau) // 1 - exp(-dTau), numerically stable
				contribution := source * absorb * math.Exp(-tau)
				intensity += contribution
				if img.Polarization {
					// Rotate B into the camera frame (x,y = sky plane, z =
					// line of sight) so a LOS-aligned field, which cannot
					// produce linear polarization, contributes zero Q/U
					// (§8 testable property #5, mirroring LIME's
					// sourceFunc_pol/stokesangles projection onto the sky).
					camB := matVec3(camRot, bField)
					perp := math.Hypot(camB[0], camB[1])
					total := math.Sqrt(camB[0]*camB[0] + camB[1]*camB[1] + camB[2]*camB[2])
					if total > 0 {
						chi := 2 * math.Atan2(camB[1], camB[0])
						skyFraction := perp / total
						q += contribution * math.Cos(chi) * polarizationFraction * skyFraction
						u += contribution * math.Sin(chi) * polarizationFraction * skyFraction
					}
				}
			}
			tau += dTau
		}
		pos = [3]float64{pos[0] + dir[0]*stepLen, pos[1] + dir[1]*stepLen, pos[2] + dir[2]*stepLen}
	}
	return intensity, q, u, tau
}

// transpose3 returns m's transpose; used to rotate a world-frame vector
// into the camera frame, since rotationMatrix is orthogonal and its
// inverse is therefore its transpose.
func transpose3(m [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// polarizationFraction is the fraction of dust continuum emission
// assumed linearly polarized by grain alignment (§4.6), a fixed model
// constant rather than a per-grain Mie calculation, which is out of
// scope.
const polarizationFraction = 0.03

// interpolateAt inverse-distance-weights the opacity and emissivity of
// the raytraceKNN nearest vertices to pos, returns the source function
// as their ratio, and takes the magnetic field from the single nearest
// vertex (see the doc comment on raytraceKNN).
func interpolateAt(g *Grid, sp *Species, tree *spatial.Tree, img *Image, pos [3]float64, freq float64) (opacity, source float64, bField [3]float64) {
	neighbors := tree.KNearest(pos, raytraceKNN, -1)
	if len(neighbors) == 0 {
		return 0, 0, [3]float64{}
	}
	totalWeight, totalOpacity, totalEmissivity := 0.0, 0.0, 0.0
	for _, n := range neighbors {
		v := &g.Vertices[n.ID]
		d := math.Sqrt(sqDist3(pos, v.Pos)) + 1e-6
		weight := 1 / d
		totalWeight += weight

		pops := g.Populations(v.ID)
		u, l := sp.Upper[img.Line], sp.Lower[img.Line]
		bul, blu := sp.EinsteinB(img.Line)
		nu, nl := pops[img.Species][u], pops[img.Species][l]
		profile := numeric.GaussProfile(freq, sp.RestFreq[img.Line], v.DopplerWidth)
		lineOpacity := (nl*blu - nu*bul) * profile
		if lineOpacity < 0 {
			lineOpacity = 0
		}
		// Emissivity = opacity * source function; the profile factor is
		// already folded into lineOpacity above, so lineEmissivity must
		// not be multiplied by it again.
		lineSource := 0.0
		if denom := nl*blu - nu*bul; denom > 0 {
			lineSource = (nu * sp.EinsteinA[img.Line]) / denom
		}
		if img.ContinuumOnly {
			lineOpacity, lineSource = 0, 0
		}
		lineEmissivity := lineOpacity * lineSource

		dustOpacity, dustEmissivity := 0.0, 0.0
		if img.Species < len(v.DustOpacity) && img.Line < len(v.DustOpacity[img.Species]) {
			dustOpacity = v.DustOpacity[img.Species][img.Line]
			// v.DustEmissivity is already opacity * Planck(Tdust); it must
			// not be weighted by dustOpacity again (that would double-count
			// it, yielding alpha^2*B instead of alpha*B).
			dustEmissivity = v.DustEmissivity[img.Species][img.Line]
		}

		totalOpacity += weight * (lineOpacity + dustOpacity)
		totalEmissivity += weight * (lineEmissivity + dustEmissivity)
	}
	if totalWeight > 0 {
		totalOpacity /= totalWeight
		totalEmissivity /= totalWeight
	}
	opacity = totalOpacity
	if totalOpacity > 0 {
		source = totalEmissivity / totalOpacity
	}
	// Magnetic field is taken from the single nearest vertex rather than
	// interpolated: polarization angle is not a linear quantity and
	// naive IDW-averaging it would bias the position angle.
	bField = g.Vertices[neighbors[0].ID].MagneticField
	return opacity, source, bField
}
