package lirad

import (
	"fmt"

	"github.com/andizq/star-forming-regions/internal/numeric"
)

// DustOpacity is the in-memory form of a two-column wavelength/opacity
// table (§6). Parsing the file format is out of core scope.
type DustOpacity struct {
	WavelengthMicron []float64
	OpacityCm2PerG   []float64

	spline *numeric.Spline
}

// prepare fits the cubic spline used by AtFrequency. AtFrequency calls
// it on first use, since DustOpacitySource implementations hand back
// raw tables, not fitted splines.
func (d *DustOpacity) prepare() error {
	s, err := numeric.NewSpline(d.WavelengthMicron, d.OpacityCm2PerG)
	if err != nil {
		return fmt.Errorf("lirad: fitting dust opacity spline: %w", err)
	}
	d.spline = s
	return nil
}

const speedOfLightMicronHz = 2.99792458e14 // c in micron*Hz

// AtFrequency splines the tabulated wavelength/opacity curve to the
// given line or continuum frequency (§6: "splined to line frequencies").
func (d *DustOpacity) AtFrequency(nu float64) (float64, error) {
	if d.spline == nil {
		if err := d.prepare(); err != nil {
			return 0, err
		}
	}
	wavelength := speedOfLightMicronHz / nu
	return d.spline.At(wavelength), nil
}
