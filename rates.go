package lirad

import (
	"fmt"

	"github.com/andizq/star-forming-regions/internal/numeric"
)

// rateSplines holds one cubic spline per tabulated collision-partner
// transition, built once per species and reused for every vertex (§4.2:
// "rate coefficients are tabulated on the kinetic-temperature axis and
// cubic-spline-interpolated at vertex temperatures").
type rateSplines struct {
	partner   string
	upper     []int
	lower     []int
	splines   []*numeric.Spline
}

// buildRateSplines fits one spline per (upper,lower) transition for
// each collision partner of sp.
func buildRateSplines(sp *Species) ([]rateSplines, error) {
	out := make([]rateSplines, len(sp.Partners))
	for pi, partner := range sp.Partners {
		rs := rateSplines{
			partner: partner.Name,
			upper:   partner.RateUpper,
			lower:   partner.RateLower,
			splines: make([]*numeric.Spline, len(partner.Rates)),
		}
		for ti, table := range partner.Rates {
			s, err := numeric.NewSpline(partner.Temps, table)
			if err != nil {
				return nil, fmt.Errorf("lirad: building collision rate spline for partner %s transition %d: %w", partner.Name, ti, err)
			}
			rs.splines[ti] = s
		}
		out[pi] = rs
	}
	return out, nil
}

// collisionRate returns the downward collisional rate coefficient for
// transition (upper,lower) of the given partner at temperature tkin, or
// 0 if that transition has no tabulated data for this partner.
func (rs *rateSplines) collisionRate(upper, lower int, tkin float64) float64 {
	for i, u := range rs.upper {
		if u == upper && rs.lower[i] == lower {
			return rs.splines[i].At(tkin)
		}
	}
	return 0
}
