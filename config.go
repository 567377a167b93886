package lirad

import (
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// toFloat64Slice converts a TOML array (decoded by viper as []interface{})
// to a []float64, tolerating mixed int/float element kinds the way
// inmaputil/config.go's cast.ToStringMapString helper tolerates mixed
// map value kinds.
func toFloat64Slice(raw interface{}) []float64 {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = cast.ToFloat64(item)
	}
	return out
}

// Config is the flat configuration record (§6) that parameterizes a
// full run: geometry sampling, physics, the iteration controller, and
// imaging. It is loaded from a TOML file via LoadConfig, following the
// teacher's convention of a single flat *viper.Viper-backed record
// rather than nested per-subsystem config types (inmaputil/config.go).
type Config struct {
	// Geometry (§4.1)
	NInterior     int
	NSink         int
	Radius        float64
	MinScale      float64
	AcceptanceExpr string // govaluate expression; empty means uniform
	SmoothingPasses int
	SmoothingDamping float64
	TessellationK int

	// Iteration controller (§4.4, §4.5, §9)
	NThreads        int
	InitialPhotons  int
	MaxPhotons      int
	GrowthFactor    float64
	BlendWidthHz    float64
	Tol             float64
	ConvergenceGoal int
	MaxIter         int
	MasterSeed      int64
	PhotonGrowthPolicy string // "regression" (default) or "nonconvergence"
	LTEOnly         bool

	// Imaging (§4.6)
	ImageNx, ImageNy int
	ImageNChannels   int
	PixelSize        float64
	ChannelRes       float64
	ChannelV0        float64
	Inclination      float64
	PositionAngle    float64
	Distance         float64
	ImageSpecies     int
	ImageLine        int
	Polarization     bool
	ContinuumOnly    bool

	// Uniform* parameterize the built-in UniformModel (§6), used by the
	// default cmd/lirad driver when no bespoke UserModel is compiled in.
	UniformDensity        []float64
	UniformTkin           float64
	UniformTdust          float64
	UniformHasTdust       bool
	UniformAbundance      []float64
	UniformDopplerWidth   float64
	UniformGasToDustRatio float64

	MolDataPaths []string
	DustPath     string
}

// UniformModel builds the UniformModel described by the Uniform* fields.
func (c *Config) UniformModel() UniformModel {
	return UniformModel{
		DensityValue:        c.UniformDensity,
		TkinValue:           c.UniformTkin,
		TdustValue:          c.UniformTdust,
		HasTdustValue:       c.UniformHasTdust,
		AbundanceValue:      c.UniformAbundance,
		DopplerWidthValue:   c.UniformDopplerWidth,
		GasToDustRatioValue: c.UniformGasToDustRatio,
	}
}

// defaultConfig mirrors the teacher's pattern of filling in sane
// defaults before reading the file, so a config file need only
// override what it cares about.
func defaultConfig() Config {
	return Config{
		NInterior: 2000, NSink: 200, Radius: 1e17, MinScale: 1e14,
		SmoothingPasses: 3, SmoothingDamping: 0.3, TessellationK: 12,
		NThreads: 4, InitialPhotons: 1000, MaxPhotons: 100000,
		GrowthFactor: 2, BlendWidthHz: 1e9, Tol: 1e-2, ConvergenceGoal: 2,
		MaxIter: 50, MasterSeed: 1, PhotonGrowthPolicy: "regression",
		ImageNx: 100, ImageNy: 100, ImageNChannels: 1, PixelSize: 1e-7,
		Distance: 1e20,
	}
}

// LoadConfig reads a TOML configuration file at path into a Config,
// layering it over defaultConfig() so unset fields keep their default
// (§6, grounded on inmaputil/config.go's cfg.Get*("Section.Field")
// pattern using *viper.Viper).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, newFileError(IOFailure, path, fmt.Errorf("reading configuration: %w", err))
	}

	c := defaultConfig()
	setIfPresent(v, "Geometry.NInterior", &c.NInterior)
	setIfPresent(v, "Geometry.NSink", &c.NSink)
	setIfPresent(v, "Geometry.Radius", &c.Radius)
	setIfPresent(v, "Geometry.MinScale", &c.MinScale)
	setIfPresent(v, "Geometry.SmoothingPasses", &c.SmoothingPasses)
	setIfPresent(v, "Geometry.SmoothingDamping", &c.SmoothingDamping)
	setIfPresent(v, "Geometry.TessellationK", &c.TessellationK)
	if v.IsSet("Geometry.AcceptanceExpr") {
		c.AcceptanceExpr = os.ExpandEnv(v.GetString("Geometry.AcceptanceExpr"))
	}

	setIfPresent(v, "Solver.NThreads", &c.NThreads)
	setIfPresent(v, "Solver.InitialPhotons", &c.InitialPhotons)
	setIfPresent(v, "Solver.MaxPhotons", &c.MaxPhotons)
	setIfPresent(v, "Solver.GrowthFactor", &c.GrowthFactor)
	setIfPresent(v, "Solver.BlendWidthHz", &c.BlendWidthHz)
	setIfPresent(v, "Solver.Tol", &c.Tol)
	setIfPresent(v, "Solver.ConvergenceGoal", &c.ConvergenceGoal)
	setIfPresent(v, "Solver.MaxIter", &c.MaxIter)
	if v.IsSet("Solver.MasterSeed") {
		c.MasterSeed = int64(v.GetInt("Solver.MasterSeed"))
	}
	if v.IsSet("Solver.PhotonGrowthPolicy") {
		c.PhotonGrowthPolicy = v.GetString("Solver.PhotonGrowthPolicy")
	}
	if v.IsSet("Solver.LTEOnly") {
		c.LTEOnly = v.GetBool("Solver.LTEOnly")
	}

	setIfPresent(v, "Image.Nx", &c.ImageNx)
	setIfPresent(v, "Image.Ny", &c.ImageNy)
	setIfPresent(v, "Image.NChannels", &c.ImageNChannels)
	setIfPresent(v, "Image.PixelSize", &c.PixelSize)
	setIfPresent(v, "Image.ChannelRes", &c.ChannelRes)
	setIfPresent(v, "Image.ChannelV0", &c.ChannelV0)
	setIfPresent(v, "Image.Inclination", &c.Inclination)
	setIfPresent(v, "Image.PositionAngle", &c.PositionAngle)
	setIfPresent(v, "Image.Distance", &c.Distance)
	setIfPresent(v, "Image.Species", &c.ImageSpecies)
	setIfPresent(v, "Image.Line", &c.ImageLine)
	if v.IsSet("Image.Polarization") {
		c.Polarization = v.GetBool("Image.Polarization")
	}
	if v.IsSet("Image.ContinuumOnly") {
		c.ContinuumOnly = v.GetBool("Image.ContinuumOnly")
	}

	if v.IsSet("Input.MolDataPaths") {
		c.MolDataPaths = v.GetStringSlice("Input.MolDataPaths")
	}
	if v.IsSet("Input.DustPath") {
		c.DustPath = v.GetString("Input.DustPath")
	}

	setIfPresent(v, "Model.Tkin", &c.UniformTkin)
	setIfPresent(v, "Model.Tdust", &c.UniformTdust)
	setIfPresent(v, "Model.DopplerWidth", &c.UniformDopplerWidth)
	setIfPresent(v, "Model.GasToDustRatio", &c.UniformGasToDustRatio)
	if v.IsSet("Model.Tdust") {
		c.UniformHasTdust = true
	}
	if v.IsSet("Model.Density") {
		c.UniformDensity = toFloat64Slice(v.Get("Model.Density"))
	}
	if v.IsSet("Model.Abundance") {
		c.UniformAbundance = toFloat64Slice(v.Get("Model.Abundance"))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// setIfPresent is a small helper around viper's IsSet/Get* pair,
// generic over the int/float64 config fields that simply overwrite a
// default when the key is present in the file.
func setIfPresent[T int | float64](v *viper.Viper, key string, dst *T) {
	if !v.IsSet(key) {
		return
	}
	switch any(*dst).(type) {
	case int:
		*dst = any(v.GetInt(key)).(T)
	case float64:
		*dst = any(v.GetFloat64(key)).(T)
	}
}

// Validate checks the cross-field invariants a raw TOML file cannot
// express on its own (§6, §7: ConfigInvalid is fatal at startup).
func (c *Config) Validate() error {
	if c.NInterior <= 0 {
		return newError(ConfigInvalid, fmt.Errorf("config: NInterior must be positive, got %d", c.NInterior))
	}
	if c.Radius <= 0 || c.MinScale <= 0 || c.MinScale >= c.Radius {
		return newError(ConfigInvalid, fmt.Errorf("config: need 0 < MinScale < Radius, got MinScale=%g Radius=%g", c.MinScale, c.Radius))
	}
	if c.NThreads <= 0 {
		return newError(ConfigInvalid, fmt.Errorf("config: NThreads must be positive, got %d", c.NThreads))
	}
	if c.MaxPhotons < c.InitialPhotons {
		return newError(ConfigInvalid, fmt.Errorf("config: MaxPhotons (%d) must be >= InitialPhotons (%d)", c.MaxPhotons, c.InitialPhotons))
	}
	switch PhotonGrowthPolicy(c.PhotonGrowthPolicy) {
	case GrowOnRegression, GrowOnNonconvergence:
	default:
		return newError(ConfigInvalid, fmt.Errorf("config: PhotonGrowthPolicy must be %q or %q, got %q", GrowOnRegression, GrowOnNonconvergence, c.PhotonGrowthPolicy))
	}
	if c.MaxIter <= 0 {
		return newError(ConfigInvalid, fmt.Errorf("config: MaxIter must be positive, got %d", c.MaxIter))
	}
	return nil
}

// SolverParams extracts the iteration controller's parameter subset
// from the flat Config (§6).
func (c *Config) SolverParams() SolverParams {
	return SolverParams{
		NThreads:        c.NThreads,
		InitialPhotons:  c.InitialPhotons,
		MaxPhotons:      c.MaxPhotons,
		GrowthFactor:    c.GrowthFactor,
		BlendWidthHz:    c.BlendWidthHz,
		Tol:             c.Tol,
		ConvergenceGoal: c.ConvergenceGoal,
		MaxIter:         c.MaxIter,
		MasterSeed:      c.MasterSeed,
		GrowthPolicy:    PhotonGrowthPolicy(c.PhotonGrowthPolicy),
	}
}
