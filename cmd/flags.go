package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chromlab/nucleosim/chromatin"
	"github.com/chromlab/nucleosim/datarecording"
	"github.com/chromlab/nucleosim/experiment"
	"github.com/chromlab/nucleosim/kernel"
	"github.com/chromlab/nucleosim/monitoring"
	"github.com/chromlab/nucleosim/rates"
	"github.com/chromlab/nucleosim/sim"
)

// modelFlags holds the flags shared by all simulation commands.
type modelFlags struct {
	sites    int
	feedback float64
	noise    float64

	kernelKind string
	exponent   int
	window     int
	alpha      float64
	folded     bool

	topology string
	initial  string
	discrete bool

	horizon       float64
	maxEvents     uint64
	equilibration float64
	stride        uint64
	seed          int64

	trials  int
	workers int

	output      string
	monitorOn   bool
	monitorPort int
}

func (f *modelFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.IntVar(&f.sites, "sites", 60,
		"number of nucleosomes in the region")
	flags.Float64Var(&f.feedback, "feedback", 4.0,
		"recruited conversion rate factor F")
	flags.Float64Var(&f.noise, "noise", 1.0/3.0,
		"basal noisy conversion rate")

	flags.StringVar(&f.kernelKind, "kernel", "coop",
		"recruitment kernel: noncoop, coop, neighbor, or powerlaw")
	flags.IntVar(&f.exponent, "exponent", 2,
		"cooperativity exponent of the coop kernel")
	flags.IntVar(&f.window, "window", 1,
		"recruitment window of the neighbor kernel")
	flags.Float64Var(&f.alpha, "alpha", 1.5,
		"decay exponent of the powerlaw kernel")
	flags.BoolVar(&f.folded, "folded", false,
		"use folded-fiber distance scaling for the powerlaw kernel")

	flags.StringVar(&f.topology, "topology", "both",
		"recruited conversions: both, mod, or demod")
	flags.StringVar(&f.initial, "init", "u",
		"initial state: m, u, a, or random")
	flags.BoolVar(&f.discrete, "discrete", false,
		"use the fixed-step engine instead of the continuous-time one")

	flags.Float64Var(&f.horizon, "horizon", 0,
		"stop at this simulated time (0 = no limit)")
	flags.Uint64Var(&f.maxEvents, "max-events", 100000,
		"stop after this many events (0 = no limit)")
	flags.Float64Var(&f.equilibration, "equilibration", 0,
		"discard observations before this time")
	flags.Uint64Var(&f.stride, "stride", 10,
		"transitions between occupancy samples")
	flags.Int64Var(&f.seed, "seed", 1, "base random seed")

	flags.IntVar(&f.trials, "trials", 1, "number of trials")
	flags.IntVar(&f.workers, "workers", 0,
		"worker goroutines (0 = one per CPU)")

	flags.StringVar(&f.output, "output", "",
		"record observables to this SQLite database")
	flags.BoolVar(&f.monitorOn, "monitor", false,
		"serve a web monitor while running")
	flags.IntVar(&f.monitorPort, "port", 0,
		"port of the web monitor (0 = random)")
}

func (f *modelFlags) buildKernel() (kernel.Kernel, error) {
	builder := kernel.MakeBuilder().
		WithExponent(f.exponent).
		WithWindow(f.window).
		WithAlpha(f.alpha)

	if f.folded {
		builder = builder.WithDimensionality(kernel.Folded)
	}

	switch f.kernelKind {
	case "noncoop":
		builder = builder.WithKind(kernel.NonCooperative)
	case "coop":
		builder = builder.WithKind(kernel.Cooperative)
	case "neighbor":
		builder = builder.WithKind(kernel.NearestNeighbor)
	case "powerlaw":
		builder = builder.WithKind(kernel.PowerLawSpatial)
	default:
		return kernel.Kernel{}, fmt.Errorf(
			"unknown kernel %q, want noncoop, coop, neighbor, or powerlaw",
			f.kernelKind)
	}

	return builder.Build(), nil
}

func (f *modelFlags) buildTopology() (rates.Topology, error) {
	switch f.topology {
	case "both":
		return rates.RecruitBoth(), nil
	case "mod":
		return rates.RecruitModificationOnly(), nil
	case "demod":
		return rates.RecruitDemodificationOnly(), nil
	}

	return rates.Topology{}, fmt.Errorf(
		"unknown topology %q, want both, mod, or demod", f.topology)
}

func (f *modelFlags) buildConfig() (experiment.Config, error) {
	kern, err := f.buildKernel()
	if err != nil {
		return experiment.Config{}, err
	}

	topo, err := f.buildTopology()
	if err != nil {
		return experiment.Config{}, err
	}

	cfg := experiment.Config{
		Sites:         f.sites,
		Basal:         rates.SymmetricBasal(f.noise),
		Feedback:      f.feedback,
		Topology:      topo,
		Kernel:        kern,
		Discrete:      f.discrete,
		Horizon:       sim.VTimeInSec(f.horizon),
		MaxEvents:     f.maxEvents,
		Equilibration: sim.VTimeInSec(f.equilibration),
		Stride:        f.stride,
		Seed:          f.seed,
	}

	switch f.initial {
	case "m":
		cfg.InitialState = chromatin.StateM
	case "u":
		cfg.InitialState = chromatin.StateU
	case "a":
		cfg.InitialState = chromatin.StateA
	case "random":
		cfg.RandomInit = true
	default:
		return experiment.Config{}, fmt.Errorf(
			"unknown initial state %q, want m, u, a, or random", f.initial)
	}

	if cfg.Horizon == 0 && cfg.MaxEvents == 0 {
		return experiment.Config{}, fmt.Errorf(
			"either --horizon or --max-events must be positive")
	}

	return cfg, nil
}

func (f *modelFlags) buildRecorder() datarecording.DataRecorder {
	output := f.output
	if output == "" {
		output = os.Getenv("NUCLEOSIM_OUTPUT")
	}

	if output == "" {
		return nil
	}

	return datarecording.New(output)
}

func (f *modelFlags) buildMonitor() *monitoring.Monitor {
	if !f.monitorOn {
		return nil
	}

	port := f.monitorPort
	if port == 0 {
		if env := os.Getenv("NUCLEOSIM_MONITOR_PORT"); env != "" {
			p, err := strconv.Atoi(env)
			if err == nil {
				port = p
			}
		}
	}

	monitor := monitoring.NewMonitor()
	if port > 0 {
		monitor.WithPortNumber(port)
	}

	monitor.StartServer()

	return monitor
}
