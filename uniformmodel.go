package lirad

// UniformModel is a spatially constant UserModel (§6): every callback
// ignores its position argument and returns a fixed value. It is useful
// for smoke-testing a configuration and is the model wired into
// cmd/lirad's default driver; real models implement UserModel directly.
type UniformModel struct {
	DensityValue        []float64
	TkinValue           float64
	TdustValue          float64
	HasTdustValue       bool
	AbundanceValue      []float64
	DopplerWidthValue   float64
	VelocityValue       [3]float64
	MagneticFieldValue  [3]float64
	GasToDustRatioValue float64
}

func (m UniformModel) Density(x, y, z float64) []float64 { return m.DensityValue }

func (m UniformModel) KineticTemperature(x, y, z float64) float64 { return m.TkinValue }

func (m UniformModel) DustTemperature(x, y, z float64) (float64, bool) {
	return m.TdustValue, m.HasTdustValue
}

func (m UniformModel) Abundance(x, y, z float64) []float64 { return m.AbundanceValue }

func (m UniformModel) DopplerWidth(x, y, z float64) float64 { return m.DopplerWidthValue }

func (m UniformModel) Velocity(x, y, z float64) [3]float64 { return m.VelocityValue }

func (m UniformModel) MagneticField(x, y, z float64) [3]float64 { return m.MagneticFieldValue }

func (m UniformModel) GasToDustRatio(x, y, z float64) float64 { return m.GasToDustRatioValue }
