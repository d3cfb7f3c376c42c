// Package experiment runs batches of simulation trials and sweeps
// over feedback strengths, collecting bistability observables.
package experiment

import (
	"math/rand"

	"github.com/chromlab/nucleosim/chromatin"
	"github.com/chromlab/nucleosim/kernel"
	"github.com/chromlab/nucleosim/rates"
	"github.com/chromlab/nucleosim/sim"
)

// A Config describes one simulated region and how long to run it.
// The same Config is shared by all trials of a batch; each trial gets
// its own random stream derived from Seed.
type Config struct {
	// Sites is the number of nucleosomes in the region.
	Sites int

	// Basal holds the noisy conversion rates.
	Basal rates.Basal

	// Feedback is the recruited conversion rate factor F.
	Feedback float64

	// Topology selects which conversions recruitment accelerates.
	Topology rates.Topology

	// Kernel weighs recruiters by distance and cooperativity.
	Kernel kernel.Kernel

	// InitialState is the uniform starting state. Ignored when
	// RandomInit is set.
	InitialState chromatin.State

	// RandomInit starts each trial from independently random states.
	RandomInit bool

	// Discrete selects the fixed-step engine instead of the
	// continuous-time one.
	Discrete bool

	// Horizon stops a trial at this simulated time. Zero means no
	// time limit.
	Horizon sim.VTimeInSec

	// MaxEvents stops a trial after this many realized transitions
	// (or attempted steps for the fixed-step engine). Zero means no
	// event limit.
	MaxEvents uint64

	// Equilibration discards observations before this time.
	Equilibration sim.VTimeInSec

	// Stride is the number of transitions between occupancy samples.
	Stride uint64

	// Seed is the base seed. Trial i runs with Seed+i.
	Seed int64
}

// DefaultConfig returns a baseline configuration: a 60-nucleosome
// region with symmetric noise, dual recruitment, and a cooperative
// kernel, stopped after 100k transitions.
func DefaultConfig() Config {
	return Config{
		Sites:        60,
		Basal:        rates.SymmetricBasal(1.0 / 3.0),
		Feedback:     4.0,
		Topology:     rates.RecruitBoth(),
		Kernel:       kernel.MakeBuilder().WithKind(kernel.Cooperative).WithExponent(2).Build(),
		InitialState: chromatin.StateU,
		MaxEvents:    100000,
		Stride:       10,
		Seed:         1,
	}
}

func (c Config) mustBeValid() {
	if c.Sites <= 0 {
		panic("config requires a positive number of sites")
	}

	if c.Horizon == 0 && c.MaxEvents == 0 {
		panic("config requires a horizon or an event limit")
	}

	if c.Stride == 0 {
		panic("config requires a positive sampling stride")
	}
}

func (c Config) buildArray(rng *rand.Rand) *chromatin.StateArray {
	if c.RandomInit {
		return chromatin.NewRandomStateArray(c.Sites, rng)
	}

	return chromatin.NewStateArray(c.Sites, c.InitialState)
}

func (c Config) buildModel() *rates.Model {
	builder := rates.MakeBuilder().
		WithBasal(c.Basal).
		WithFeedback(c.Feedback).
		WithTopology(c.Topology)

	// A built kernel always has a positive exponent, so a zero value
	// means the field was never set and the default kernel applies.
	if c.Kernel.Exponent() > 0 {
		builder = builder.WithKernel(c.Kernel)
	}

	return builder.Build()
}

func (c Config) buildEngine(
	arr *chromatin.StateArray,
	model *rates.Model,
	rng *rand.Rand,
) sim.Engine {
	if c.Discrete {
		engine := sim.NewStepEngine(arr, model, rng)
		if c.Horizon > 0 {
			engine = engine.WithHorizon(c.Horizon)
		}
		if c.MaxEvents > 0 {
			engine = engine.WithMaxSteps(c.MaxEvents)
		}

		return engine
	}

	engine := sim.NewGillespieEngine(arr, model, rng)
	if c.Horizon > 0 {
		engine = engine.WithHorizon(c.Horizon)
	}
	if c.MaxEvents > 0 {
		engine = engine.WithMaxTransitions(c.MaxEvents)
	}

	return engine
}
