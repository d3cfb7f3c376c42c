package experiment

import (
	"fmt"

	"github.com/chromlab/nucleosim/datarecording"
	"github.com/chromlab/nucleosim/monitoring"
	"github.com/chromlab/nucleosim/sim"
)

// A SweepPoint aggregates the trials run at one feedback strength.
type SweepPoint struct {
	Feedback    float64
	Trials      int
	MeanGap     float64
	MeanDwell   sim.VTimeInSec
	NumSwitches int
}

// A SweepEntry is one row of the sweep summary table.
type SweepEntry struct {
	Feedback    float64
	Trials      int
	MeanGap     float64
	MeanDwell   float64
	NumSwitches int
}

// A Sweep runs the same configuration at a series of feedback
// strengths. Sweeps over F map out the bistable regime: the gap score
// rises sharply and the macrostate lifetime grows by orders of
// magnitude once F crosses the bistability threshold.
type Sweep struct {
	base      Config
	feedbacks []float64
	trials    int
	workers   int

	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor
}

// Run sweeps all feedback strengths and returns one aggregated point
// per strength.
func (s *Sweep) Run() ([]SweepPoint, error) {
	points := make([]SweepPoint, 0, len(s.feedbacks))

	for i, f := range s.feedbacks {
		cfg := s.base
		cfg.Feedback = f
		cfg.Seed = s.base.Seed + int64(i*s.trials)

		var progress *monitoring.ProgressBar
		if s.monitor != nil {
			progress = s.monitor.CreateProgressBar(
				fmt.Sprintf("F=%g", f), uint64(s.trials))
		}

		builder := MakeRunnerBuilder().
			WithConfig(cfg).
			WithTrials(s.trials).
			WithWorkers(s.workers).
			WithName(fmt.Sprintf("F%g", f))
		if s.recorder != nil {
			builder = builder.WithDataRecorder(s.recorder)
		}
		if s.monitor != nil {
			builder = builder.WithMonitor(s.monitor).
				WithProgressBar(progress)
		}

		results, err := builder.Build().Run()
		if err != nil {
			return points, fmt.Errorf("feedback %g: %w", f, err)
		}

		if progress != nil {
			s.monitor.CompleteProgressBar(progress)
		}

		point := summarize(f, results)
		points = append(points, point)

		if s.recorder != nil {
			s.recorder.InsertData(SweepTable, SweepEntry{
				Feedback:    point.Feedback,
				Trials:      point.Trials,
				MeanGap:     point.MeanGap,
				MeanDwell:   float64(point.MeanDwell),
				NumSwitches: point.NumSwitches,
			})
		}
	}

	return points, nil
}

func summarize(feedback float64, results []TrialResult) SweepPoint {
	point := SweepPoint{
		Feedback: feedback,
		Trials:   len(results),
	}

	sumGap := 0.0
	sumDwell := sim.VTimeInSec(0)
	dwellTrials := 0

	for _, r := range results {
		sumGap += r.GapScore
		point.NumSwitches += r.NumSwitches

		if r.NumSwitches > 0 {
			sumDwell += r.MeanDwell
			dwellTrials++
		}
	}

	if len(results) > 0 {
		point.MeanGap = sumGap / float64(len(results))
	}

	if dwellTrials > 0 {
		point.MeanDwell = sumDwell / sim.VTimeInSec(dwellTrials)
	}

	return point
}

// SweepBuilder can build a Sweep.
type SweepBuilder struct {
	base      Config
	feedbacks []float64
	trials    int
	workers   int
	recorder  datarecording.DataRecorder
	monitor   *monitoring.Monitor
}

// MakeSweepBuilder creates a SweepBuilder.
func MakeSweepBuilder() SweepBuilder {
	return SweepBuilder{
		trials:  1,
		workers: 1,
	}
}

// WithConfig sets the configuration shared by all sweep points. The
// Feedback field is overridden per point.
func (b SweepBuilder) WithConfig(cfg Config) SweepBuilder {
	b.base = cfg
	return b
}

// WithFeedbacks sets the feedback strengths to sweep.
func (b SweepBuilder) WithFeedbacks(feedbacks []float64) SweepBuilder {
	b.feedbacks = feedbacks
	return b
}

// WithTrials sets the number of trials per sweep point.
func (b SweepBuilder) WithTrials(trials int) SweepBuilder {
	b.trials = trials
	return b
}

// WithWorkers sets the number of worker goroutines per sweep point.
func (b SweepBuilder) WithWorkers(workers int) SweepBuilder {
	b.workers = workers
	return b
}

// WithDataRecorder writes per-trial and per-point rows to the
// recorder.
func (b SweepBuilder) WithDataRecorder(
	r datarecording.DataRecorder,
) SweepBuilder {
	b.recorder = r
	return b
}

// WithMonitor registers trial engines and progress bars with the
// monitor.
func (b SweepBuilder) WithMonitor(m *monitoring.Monitor) SweepBuilder {
	b.monitor = m
	return b
}

func (b SweepBuilder) parametersMustBeValid() {
	b.base.mustBeValid()

	if len(b.feedbacks) == 0 {
		panic("sweep requires at least one feedback strength")
	}

	for _, f := range b.feedbacks {
		if f < 0 {
			panic("sweep feedback strengths must be non-negative")
		}
	}

	if b.trials <= 0 {
		panic("sweep requires a positive number of trials")
	}

	if b.workers <= 0 {
		panic("sweep requires a positive number of workers")
	}
}

// Build builds the Sweep.
func (b SweepBuilder) Build() *Sweep {
	b.parametersMustBeValid()

	s := &Sweep{
		base:      b.base,
		feedbacks: b.feedbacks,
		trials:    b.trials,
		workers:   b.workers,
		recorder:  b.recorder,
		monitor:   b.monitor,
	}

	if s.recorder != nil {
		createSweepTable(s.recorder)
	}

	return s
}

func createSweepTable(recorder datarecording.DataRecorder) {
	for _, t := range recorder.ListTables() {
		if t == SweepTable {
			return
		}
	}

	recorder.CreateTable(SweepTable, SweepEntry{})
}
