package lirad

// Species is a molecular species descriptor (§3), the in-memory form of
// a parsed LAMDA-format catalogue file (§6). Parsing the catalogue text
// format itself is out of core scope (see MolDataSource); this struct is
// what the core operates on once a MolDataSource has produced it.
type Species struct {
	Name   string
	NLevels int
	NLines  int

	// Upper and Lower give the 0-based level index of each line's upper
	// and lower state, length NLines.
	Upper []int
	Lower []int

	// EinsteinA and RestFreq are per-line, length NLines.
	EinsteinA []float64
	RestFreq  []float64

	// Degeneracy and EnergyTerm are per-level, length NLevels.
	Degeneracy []float64
	EnergyTerm []float64 // cm^-1, used for Boltzmann population ratios

	// Partners lists the collision partners this species has rate data
	// for, e.g. "H2", "e-".
	Partners []CollisionPartner

	// Norm is the normalisation constant used when initializing LTE
	// populations (partition function scale factor).
	Norm float64
}

// CollisionPartner holds one partner's temperature-tabulated downward
// collision rate coefficients (§3, §4.2).
type CollisionPartner struct {
	Name string
	// Temps is the tabulated kinetic-temperature axis, strictly
	// increasing, shared by every (upper,lower) rate table below.
	Temps []float64
	// Rates[i] gives the downward rate coefficient table (one value per
	// Temps entry) for the i-th tabulated transition.
	Rates     [][]float64
	RateUpper []int // upper level index for Rates[i]
	RateLower []int // lower level index for Rates[i]
}

// EinsteinB computes the Einstein B coefficients (stimulated emission
// and absorption) for line i from its Einstein A coefficient, rest
// frequency, and the degeneracies of its upper and lower levels, using
// the standard detailed-balance relation.
func (s *Species) EinsteinB(i int) (bUpperLower, bLowerUpper float64) {
	const c2 = 8.987551787e20 // (c in cm/s)^2, cgs
	const h = 6.62606957e-27  // erg s, cgs
	nu := s.RestFreq[i]
	gu := s.Degeneracy[s.Upper[i]]
	gl := s.Degeneracy[s.Lower[i]]
	bUpperLower = s.EinsteinA[i] * c2 / (2 * h * nu * nu * nu)
	bLowerUpper = bUpperLower * gu / gl
	return
}
