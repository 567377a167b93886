package lirad

import "testing"

func TestUniformModelReturnsConfiguredValues(t *testing.T) {
	m := UniformModel{
		DensityValue:   []float64{1e4},
		TkinValue:      25,
		AbundanceValue: []float64{1e-8},
	}
	if got := m.KineticTemperature(1, 2, 3); got != 25 {
		t.Errorf("KineticTemperature = %g, want 25", got)
	}
	if tdust, ok := m.DustTemperature(0, 0, 0); ok || tdust != 0 {
		t.Errorf("DustTemperature = (%g, %v), want (0, false) when unset", tdust, ok)
	}
	if got := m.Density(5, 5, 5)[0]; got != 1e4 {
		t.Errorf("Density = %g, want 1e4", got)
	}
}

var _ UserModel = UniformModel{}
