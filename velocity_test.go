package lirad

import (
	"math"
	"testing"
)

// linearVelocityModel is a UserModel stub whose velocity field is
// linear in position, used to check the exact quartic fit against a
// known-exact answer.
type linearVelocityModel struct{}

func (linearVelocityModel) Density(x, y, z float64) []float64    { return []float64{1} }
func (linearVelocityModel) KineticTemperature(x, y, z float64) float64 { return 10 }
func (linearVelocityModel) DustTemperature(x, y, z float64) (float64, bool) { return 0, false }
func (linearVelocityModel) Abundance(x, y, z float64) []float64  { return []float64{1e-4} }
func (linearVelocityModel) DopplerWidth(x, y, z float64) float64 { return 1e4 }
func (linearVelocityModel) Velocity(x, y, z float64) [3]float64  { return [3]float64{x, y, z} }
func (linearVelocityModel) MagneticField(x, y, z float64) [3]float64 {
	return [3]float64{0, 0, 1}
}
func (linearVelocityModel) GasToDustRatio(x, y, z float64) float64 { return 100 }

func TestFitVelocityCoefficientsReproducesEndpoints(t *testing.T) {
	from := [3]float64{0, 0, 0}
	to := [3]float64{3, 4, 0}
	length := math.Hypot(3, 4)
	dir := [3]float64{3 / length, 4 / length, 0}
	model := linearVelocityModel{}

	coeffs, err := FitVelocityCoefficients(from, to, dir, length, model)
	if err != nil {
		t.Fatal(err)
	}

	vFrom := model.Velocity(from[0], from[1], from[2])
	wantStart := vFrom[0]*dir[0] + vFrom[1]*dir[1] + vFrom[2]*dir[2]
	if got := VelocityAt(coeffs, 0); math.Abs(got-wantStart) > 1e-8 {
		t.Errorf("VelocityAt(s=0) = %g, want %g", got, wantStart)
	}

	vTo := model.Velocity(to[0], to[1], to[2])
	wantEnd := vTo[0]*dir[0] + vTo[1]*dir[1] + vTo[2]*dir[2]
	if got := VelocityAt(coeffs, 1); math.Abs(got-wantEnd) > 1e-8 {
		t.Errorf("VelocityAt(s=1) = %g, want %g", got, wantEnd)
	}

	if math.Abs(coeffs[0]-wantStart) > 1e-8 {
		t.Errorf("a0 = %g, want %g", coeffs[0], wantStart)
	}
	sum := coeffs[0] + coeffs[1] + coeffs[2] + coeffs[3] + coeffs[4]
	if math.Abs(sum-wantEnd) > 1e-8 {
		t.Errorf("a0+a1+a2+a3+a4 = %g, want %g", sum, wantEnd)
	}
}
