package lirad

import (
	"errors"
	"testing"
)

type stubMolDataSource struct{}

func (stubMolDataSource) LoadSpecies(path string) (*Species, error) {
	return threeLevelSpecies(), nil
}

type failingMolDataSource struct{}

func (failingMolDataSource) LoadSpecies(path string) (*Species, error) {
	return nil, errors.New("catalogue not found")
}

func smallTestConfig() *Config {
	cfg := defaultConfig()
	cfg.NInterior = 20
	cfg.NSink = 6
	cfg.Radius = 10
	cfg.MinScale = 0.5
	cfg.TessellationK = 4
	cfg.SmoothingPasses = 0
	cfg.NThreads = 2
	cfg.InitialPhotons = 20
	cfg.MaxPhotons = 40
	cfg.MaxIter = 2
	cfg.ConvergenceGoal = 1
	cfg.LTEOnly = true
	return &cfg
}

func TestRunLTEOnlyReachesSolvedStageWithoutIterating(t *testing.T) {
	cfg := smallTestConfig()
	result, err := Run(cfg, RunInputs{
		Model:       isoModel{},
		MolData:     stubMolDataSource{},
		MolDataPath: []string{"species.dat"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Grid.Stage()&StagePopulations == 0 {
		t.Fatal("expected StagePopulations set after an LTEOnly run")
	}
	if len(result.Passes) != 0 {
		t.Errorf("expected no iteration passes in LTEOnly mode, got %d", len(result.Passes))
	}
}

func TestRunPropagatesMolDataLoadFailureAsIOFailure(t *testing.T) {
	cfg := smallTestConfig()
	_, err := Run(cfg, RunInputs{
		Model:       isoModel{},
		MolData:     failingMolDataSource{},
		MolDataPath: []string{"missing.dat"},
	})
	if err == nil {
		t.Fatal("expected error when species catalogue fails to load")
	}
	liradErr, ok := err.(*Error)
	if !ok || liradErr.Kind != IOFailure {
		t.Fatalf("expected IOFailure, got %v", err)
	}
}

func TestRunRequiresAtLeastOneMolDataPath(t *testing.T) {
	cfg := smallTestConfig()
	_, err := Run(cfg, RunInputs{Model: isoModel{}, MolData: stubMolDataSource{}})
	if err == nil {
		t.Fatal("expected error with no configured species catalogue paths")
	}
}

func TestRunFullIterationProducesPassHistory(t *testing.T) {
	cfg := smallTestConfig()
	cfg.LTEOnly = false
	result, err := Run(cfg, RunInputs{
		Model:       isoModel{},
		MolData:     stubMolDataSource{},
		MolDataPath: []string{"species.dat"},
	})
	if err != nil {
		if liradErr, ok := err.(*Error); !ok || liradErr.Kind != ConvergenceWarning {
			t.Fatal(err)
		}
	}
	if len(result.Passes) == 0 {
		t.Fatal("expected at least one recorded pass")
	}
}
