package numeric

import "math"

const invSqrtPi = 0.5641895835477563

// GaussProfile evaluates the Gauss line profile (1/sqrt(pi))*exp(-((nu-nu0)/dnu)^2)
// at frequency nu for a line centered at nu0 with Doppler width dnu.
func GaussProfile(nu, nu0, dnu float64) float64 {
	if dnu <= 0 {
		return 0
	}
	z := (nu - nu0) / dnu
	return invSqrtPi * FastExp(-z*z)
}

// h*nu/k, Planck's constant times frequency over Boltzmann's constant,
// precomputed as a single ratio to avoid repeated large/small-number
// multiplication in the hot path.
const hOverK = 4.799243073366221e-11 // K*s

// Planck evaluates the Planck function (specific intensity of a
// blackbody) at frequency nu [Hz] and temperature t [K], in cgs units
// (erg s^-1 cm^-2 Hz^-1 sr^-1).
func Planck(nu, t float64) float64 {
	if t <= 0 {
		return 0
	}
	const twoHOverCSquared = 1.474499684e-47 // 2h/c^2 in cgs, times nu^3 below
	x := hOverK * nu / t
	if x > 500 {
		// High-energy tail: avoid overflow in exp(x) by returning the
		// Wien-limit value computed with math.Exp directly (FastExp's
		// table does not extend this far negative in -x).
		return twoHOverCSquared * nu * nu * nu * math.Exp(-x)
	}
	return twoHOverCSquared * nu * nu * nu / math.Expm1(x)
}
