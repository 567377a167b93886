package lirad

import (
	"fmt"

	"github.com/andizq/star-forming-regions/internal/numeric"
)

// planckDust evaluates the Planck function at the dust temperature,
// falling back to zero when the temperature is not positive.
func planckDust(nu, tdust float64) float64 {
	if tdust <= 0 {
		return 0
	}
	return numeric.Planck(nu, tdust)
}

// FillPhysicalFields evaluates the user model's scalar/vector callbacks
// at every vertex position and stores the results (§4.1, §6), setting
// the corresponding data-completeness bits. Velocity is filled by
// FillVelocityCoefficients alongside the per-edge coefficients, since
// both need the same model callback.
func FillPhysicalFields(g *Grid, model UserModel) error {
	if err := g.RequireStage(StagePositions, "FillPhysicalFields"); err != nil {
		return err
	}
	for i := range g.Vertices {
		v := &g.Vertices[i]
		x, y, z := v.Pos[0], v.Pos[1], v.Pos[2]
		v.Density = model.Density(x, y, z)
		v.Tkin = model.KineticTemperature(x, y, z)
		if t, ok := model.DustTemperature(x, y, z); ok {
			v.Tdust = t
			v.HasTdust = true
		} else {
			v.Tdust = v.Tkin
			v.HasTdust = false
		}
		v.Abundance = model.Abundance(x, y, z)
		v.DopplerWidth = model.DopplerWidth(x, y, z)
		v.MagneticField = model.MagneticField(x, y, z)
	}
	g.SetStage(StageDensity | StageAbundance | StageDopplerWidth | StageTemperatures)
	return nil
}

// FillDustProperties splines the dust opacity table to every line
// frequency of every modelled species and converts it to a per-vertex
// emissivity using the local gas-to-dust ratio and dust temperature
// (§4.3, §6), so the photon engine and raytracer can add the dust
// continuum contribution without resplining per photon.
func FillDustProperties(g *Grid, species []*Species, dust *DustOpacity, model UserModel) error {
	if err := g.RequireStage(StageDensity|StageTemperatures, "FillDustProperties"); err != nil {
		return err
	}
	for i := range g.Vertices {
		v := &g.Vertices[i]
		x, y, z := v.Pos[0], v.Pos[1], v.Pos[2]
		ratio := model.GasToDustRatio(x, y, z)
		v.DustOpacity = make([][]float64, len(species))
		v.DustEmissivity = make([][]float64, len(species))
		for si, sp := range species {
			v.DustOpacity[si] = make([]float64, sp.NLines)
			v.DustEmissivity[si] = make([]float64, sp.NLines)
			for li := 0; li < sp.NLines; li++ {
				kappa, err := dust.AtFrequency(sp.RestFreq[li])
				if err != nil {
					return newVertexError(NumericFailure, v.ID, fmt.Errorf("dust opacity at species %s line %d: %w", sp.Name, li, err))
				}
				dustDensity := 0.0
				if ratio > 0 && len(v.Density) > 0 {
					dustDensity = v.Density[0] / ratio
				}
				v.DustOpacity[si][li] = kappa * dustDensity
				v.DustEmissivity[si][li] = v.DustOpacity[si][li] * planckDust(sp.RestFreq[li], v.Tdust)
			}
		}
	}
	return nil
}
