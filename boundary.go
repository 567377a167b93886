package lirad

// UserModel is the one compile-time extension surface (§6): the set of
// callbacks a user supplies to describe the physical model. All methods
// must be pure and thread-safe. The core calls them while enriching the
// grid (FillPhysicalFields, FillDustProperties, FillVelocityCoefficients);
// the photon transport engine and the raytracer read the values stored
// on the vertices instead of calling the model.
type UserModel interface {
	// Density returns density per collision-partner species at (x,y,z).
	Density(x, y, z float64) []float64
	// KineticTemperature returns the gas kinetic temperature at (x,y,z).
	KineticTemperature(x, y, z float64) float64
	// DustTemperature returns the dust temperature at (x,y,z), if the
	// model distinguishes it from the kinetic temperature.
	DustTemperature(x, y, z float64) (t float64, ok bool)
	// Abundance returns molecular abundance per modelled species.
	Abundance(x, y, z float64) []float64
	// DopplerWidth returns the turbulent Doppler broadening width.
	DopplerWidth(x, y, z float64) float64
	// Velocity returns the bulk velocity vector [m/s].
	Velocity(x, y, z float64) [3]float64
	// MagneticField returns the magnetic field vector, used only when
	// polarisation is requested.
	MagneticField(x, y, z float64) [3]float64
	// GasToDustRatio returns the local gas-to-dust mass ratio.
	GasToDustRatio(x, y, z float64) float64
}

// MolDataSource loads a molecular species descriptor from a LAMDA-format
// catalogue file (§6). Parsing the catalogue format itself is out of
// core scope; this interface is the contract the core depends on.
type MolDataSource interface {
	LoadSpecies(path string) (*Species, error)
}

// DustOpacitySource loads a two-column wavelength/opacity table (§6).
// Parsing the file format is out of core scope.
type DustOpacitySource interface {
	LoadOpacity(path string) (*DustOpacity, error)
}

// GridSnapshotStore writes and reads grid snapshots at a given stage
// (§6, §3 lifecycle). The tabular binary format itself is out of core
// scope; only the contract is specified here.
type GridSnapshotStore interface {
	Write(stage GridStage, g *Grid) error
	Read(stage GridStage) (*Grid, error)
}

// ImageSink receives a finished image for serialization to a sky-image
// format (FITS/VTK/etc). Out of core scope; contract only.
type ImageSink interface {
	Write(img *Image) error
}

// PassStats summarises one iteration pass for reporting (§4.5b, §7).
type PassStats struct {
	Iteration          int
	MedianFracChange   float64
	WorstFracChange    float64
	NumConverged       int
	NumVertices        int
	WorstVertexID      int
}

// ProgressReporter receives per-pass statistics for a terminal progress
// UI or similar out-of-scope collaborator.
type ProgressReporter interface {
	Report(stats PassStats)
}

// SocketNotifier delivers out-of-band event notifications (§6). Out of
// core scope as a feature; contract only. The default implementation in
// package notify is an optional concrete adapter, never required by the
// core solve/raytrace path.
type SocketNotifier interface {
	Notify(event string, payload interface{}) error
}

// noopReporter and noopNotifier are the zero-value collaborators used
// when the caller does not wire in a real one, so the core never needs
// to nil-check on every call.
type noopReporter struct{}

func (noopReporter) Report(PassStats) {}

type noopNotifier struct{}

func (noopNotifier) Notify(string, interface{}) error { return nil }
