package numeric

import (
	"math"
	"testing"
)

func TestFastExpMatchesMathExp(t *testing.T) {
	for _, x := range []float64{-0.001, -0.5, -1, -3.7, -10, -19.9} {
		got := FastExp(x)
		want := math.Exp(x)
		if rel := math.Abs(got-want) / want; rel > 1e-3 {
			t.Errorf("FastExp(%g) = %g, want ~%g (rel err %g)", x, got, want, rel)
		}
	}
}

func TestFastExpFallsBackOutsideRange(t *testing.T) {
	for _, x := range []float64{1, 0, -25} {
		got := FastExp(x)
		want := math.Exp(x)
		if got != want {
			t.Errorf("FastExp(%g) = %g, want exact fallback %g", x, got, want)
		}
	}
}

func TestGaussProfilePeakAndSymmetry(t *testing.T) {
	nu0, dnu := 230e9, 1e5
	peak := GaussProfile(nu0, nu0, dnu)
	if peak != invSqrtPi {
		t.Errorf("peak value = %g, want %g", peak, invSqrtPi)
	}
	left := GaussProfile(nu0-dnu, nu0, dnu)
	right := GaussProfile(nu0+dnu, nu0, dnu)
	if math.Abs(left-right) > 1e-12*peak {
		t.Errorf("profile not symmetric: left=%g right=%g", left, right)
	}
}

func TestPlanckPositive(t *testing.T) {
	b := Planck(230e9, 100)
	if b <= 0 {
		t.Errorf("Planck function should be positive, got %g", b)
	}
	if Planck(230e9, 0) != 0 {
		t.Error("Planck at T=0 should be 0")
	}
}

func TestSplineReproducesTable(t *testing.T) {
	x := []float64{10, 20, 30, 40, 50}
	y := []float64{1, 4, 9, 16, 25}
	s, err := NewSpline(x, y)
	if err != nil {
		t.Fatal(err)
	}
	for i := range x {
		if got := s.At(x[i]); math.Abs(got-y[i]) > 1e-9 {
			t.Errorf("At(%g) = %g, want %g", x[i], got, y[i])
		}
	}
}

func TestSplineClampsOutOfRange(t *testing.T) {
	x := []float64{10, 20, 30}
	y := []float64{1, 2, 3}
	s, err := NewSpline(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.At(0); got != s.At(10) {
		t.Errorf("below-range At(0) = %g, want clamp to At(10) = %g", got, s.At(10))
	}
	if got := s.At(1000); got != s.At(30) {
		t.Errorf("above-range At(1000) = %g, want clamp to At(30) = %g", got, s.At(30))
	}
}

func TestNewSplineRejectsNonIncreasing(t *testing.T) {
	if _, err := NewSpline([]float64{1, 1, 2}, []float64{1, 2, 3}); err == nil {
		t.Fatal("expected error for non-increasing x")
	}
}
