package lirad

import (
	"fmt"
	"math/rand"
)

// RunInputs bundles the file-backed collaborators a full Run needs to
// load species catalogues and dust opacity tables (§6): parsing the
// LAMDA and two-column wavelength formats is out of core scope, so
// these are supplied by the caller rather than built in.
type RunInputs struct {
	Model       UserModel
	MolData     MolDataSource
	MolDataPath []string // one LAMDA catalogue path per modelled species
	DustSource  DustOpacitySource
	DustPath    string // empty disables dust continuum entirely

	Snapshots GridSnapshotStore // optional; nil disables snapshotting
	Reporter  ProgressReporter  // optional; defaults to a no-op
	Notifier  SocketNotifier    // optional; defaults to a no-op
}

// RunResult is everything a caller needs after a full solve: the grid
// at StageSolved, the species catalogues used, the per-pass statistics
// history, and any non-fatal warnings accumulated along the way (§7:
// ConvergenceWarning does not abort the run).
type RunResult struct {
	Grid     *Grid
	Species  []*Species
	Passes   []PassStats
	Warnings []*Error
}

// Run drives the full pipeline end to end: geometry sampling,
// tessellation, smoothing, physical-field evaluation, velocity-coefficient
// fitting, dust-property evaluation, LTE initialization, and
// iteration to convergence (§3 lifecycle, §4). It mirrors the teacher's
// top-level Run(), which composes the same kind of named pipeline
// stages into one ordered call rather than leaving wiring to the
// caller (teacher_core/run.go's variable-grid population sequence).
// It stops at StageSolved; call RayTraceImage separately to render.
func Run(cfg *Config, in RunInputs) (*RunResult, error) {
	reporter := in.Reporter
	if reporter == nil {
		reporter = noopReporter{}
	}
	notifier := in.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}

	species, err := loadSpecies(in)
	if err != nil {
		return nil, err
	}
	levelsPerSpecies := make([]int, len(species))
	for i, sp := range species {
		levelsPerSpecies[i] = sp.NLevels
	}

	var acceptance AcceptanceFunc = UniformAcceptance
	if cfg.AcceptanceExpr != "" {
		acceptance, err = GovaluateAcceptance(cfg.AcceptanceExpr)
		if err != nil {
			return nil, err
		}
	}

	rnd := rand.New(rand.NewSource(cfg.MasterSeed))
	tess := KNNTessellator{K: cfg.TessellationK}

	g, err := BuildGrid(cfg.NInterior, cfg.NSink, cfg.Radius, cfg.MinScale, acceptance, len(species), levelsPerSpecies, tess, rnd)
	if err != nil {
		return nil, err
	}
	_ = notifier.Notify("grid_built", PassStats{NumVertices: len(g.Vertices)})

	if cfg.SmoothingPasses > 0 {
		if err := SmoothGrid(g, tess, cfg.SmoothingPasses, cfg.SmoothingDamping); err != nil {
			return nil, err
		}
	}

	if err := FillPhysicalFields(g, in.Model); err != nil {
		return nil, err
	}
	// Refine the geometric importance weights assigned at tessellation
	// time with the now-known local density, so the photon walk is
	// biased toward denser neighbours rather than by solid angle alone.
	updateNeighborWeightsFromDensity(g)
	if err := FillVelocityCoefficients(g, in.Model); err != nil {
		return nil, err
	}

	if in.DustPath != "" {
		dust, err := loadDust(in)
		if err != nil {
			return nil, err
		}
		if err := FillDustProperties(g, species, dust, in.Model); err != nil {
			return nil, err
		}
	}

	if in.Snapshots != nil {
		if err := in.Snapshots.Write(g.Stage(), g); err != nil {
			return nil, newError(IOFailure, fmt.Errorf("writing pre-solve snapshot: %w", err))
		}
	}

	if err := InitLTE(g, species); err != nil {
		return nil, err
	}

	rateTables := make([][]rateSplines, len(species))
	for i, sp := range species {
		rateTables[i], err = buildRateSplines(sp)
		if err != nil {
			return nil, err
		}
	}

	params := cfg.SolverParams()
	if cfg.LTEOnly {
		// LTEOnly (§8: "LTE-only escape hatch for optically thin test
		// cases") skips the Monte Carlo iteration entirely: InitLTE has
		// already set StagePopulations, which completes StageSolved.
		g.SetStage(StagePopulations)
		_ = notifier.Notify("solved", PassStats{})
		return &RunResult{Grid: g, Species: species}, nil
	}

	passes, err := RunSolver(g, species, rateTables, params, reporter)
	var warnings []*Error
	if err != nil {
		if liradErr, ok := err.(*Error); ok && liradErr.Kind == ConvergenceWarning {
			warnings = append(warnings, liradErr)
		} else {
			return nil, err
		}
	}
	_ = notifier.Notify("solved", passes[len(passes)-1])

	if in.Snapshots != nil {
		if err := in.Snapshots.Write(g.Stage(), g); err != nil {
			return nil, newError(IOFailure, fmt.Errorf("writing solved snapshot: %w", err))
		}
	}

	return &RunResult{Grid: g, Species: species, Passes: passes, Warnings: warnings}, nil
}

func loadSpecies(in RunInputs) ([]*Species, error) {
	if len(in.MolDataPath) == 0 {
		return nil, newError(ConfigInvalid, fmt.Errorf("no molecular data catalogue paths configured"))
	}
	species := make([]*Species, len(in.MolDataPath))
	for i, path := range in.MolDataPath {
		sp, err := in.MolData.LoadSpecies(path)
		if err != nil {
			return nil, newFileError(IOFailure, path, err)
		}
		species[i] = sp
	}
	return species, nil
}

func loadDust(in RunInputs) (*DustOpacity, error) {
	dust, err := in.DustSource.LoadOpacity(in.DustPath)
	if err != nil {
		return nil, newFileError(IOFailure, in.DustPath, err)
	}
	return dust, nil
}
