package experiment

import (
	"fmt"
	"math/rand"

	"github.com/chromlab/nucleosim/observing"
	"github.com/chromlab/nucleosim/sim"
)

// A TrialResult holds the observables collected from one trial.
type TrialResult struct {
	Trial int
	Seed  int64

	Run    sim.RunResult
	FinalM int
	FinalU int
	FinalA int

	GapScore    float64
	MeanDwell   sim.VTimeInSec
	NumSwitches int

	Samples []observing.Sample
	Dwells  []observing.Dwell
}

// RunTrial runs one trial of the configuration. The trial index
// offsets the seed so that trials are independent but reproducible.
func RunTrial(cfg Config, trial int) (TrialResult, error) {
	return runTrial(cfg, trial, nil)
}

func runTrial(
	cfg Config,
	trial int,
	register func(name string, e sim.Engine),
) (TrialResult, error) {
	cfg.mustBeValid()

	seed := cfg.Seed + int64(trial)
	rng := rand.New(rand.NewSource(seed))

	arr := cfg.buildArray(rng)
	model := cfg.buildModel()
	engine := cfg.buildEngine(arr, model, rng)

	recorder := observing.MakeRecorderBuilder().
		WithTimeTeller(engine).
		WithStateCounter(engine).
		WithStride(cfg.Stride).
		WithEquilibration(cfg.Equilibration).
		Build()
	engine.AcceptHook(recorder)

	tracker := observing.MakeLifetimeTrackerBuilder().
		WithTimeTeller(engine).
		WithStateCounter(engine).
		WithEquilibration(cfg.Equilibration).
		Build()
	engine.AcceptHook(tracker)

	if register != nil {
		register(fmt.Sprintf("trial-%d", trial), engine)
	}

	err := engine.Run()
	if err != nil {
		return TrialResult{}, fmt.Errorf("trial %d: %w", trial, err)
	}

	m, u, a := engine.Counts()

	return TrialResult{
		Trial:       trial,
		Seed:        seed,
		Run:         engine.Result(),
		FinalM:      m,
		FinalU:      u,
		FinalA:      a,
		GapScore:    recorder.GapScore(),
		MeanDwell:   tracker.MeanDwell(),
		NumSwitches: tracker.NumSwitches(),
		Samples:     recorder.Samples(),
		Dwells:      tracker.Dwells(),
	}, nil
}
