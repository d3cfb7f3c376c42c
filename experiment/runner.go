package experiment

import (
	"runtime"
	"sync"

	"github.com/rs/xid"

	"github.com/chromlab/nucleosim/datarecording"
	"github.com/chromlab/nucleosim/monitoring"
	"github.com/chromlab/nucleosim/sim"
)

// An OccupancyEntry is one row of the occupancy time series table.
type OccupancyEntry struct {
	Trial    int
	Feedback float64
	Time     float64
	CountM   int
	CountU   int
	CountA   int
}

// A LifetimeEntry is one completed macrostate dwell.
type LifetimeEntry struct {
	Trial    int
	Feedback float64
	State    string
	Start    float64
	End      float64
}

// A TrialEntry summarizes one finished trial.
type TrialEntry struct {
	Trial          int
	Seed           int64
	Feedback       float64
	EndTime        float64
	NumTransitions uint64
	Absorbed       bool
	CountM         int
	CountU         int
	CountA         int
	GapScore       float64
	MeanDwell      float64
	NumSwitches    int
}

// Table names used by Runner and Sweep when a DataRecorder is set.
const (
	OccupancyTable = "occupancy"
	LifetimeTable  = "lifetime"
	TrialTable     = "trial"
	SweepTable     = "sweep"
)

// A Runner runs the trials of one configuration, spreading them over
// a pool of workers.
type Runner struct {
	id      string
	cfg     Config
	trials  int
	workers int
	name    string

	recorder     datarecording.DataRecorder
	recorderLock sync.Mutex
	monitor      *monitoring.Monitor
	progress     *monitoring.ProgressBar
}

// Run runs all trials and returns their results ordered by trial
// index. The first trial error, if any, is returned after all workers
// drain.
func (r *Runner) Run() ([]TrialResult, error) {
	results := make([]TrialResult, r.trials)
	errs := make([]error, r.trials)

	indexes := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < r.workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indexes {
				if r.progress != nil {
					r.progress.IncrementInProgress(1)
				}

				results[i], errs[i] = runTrial(r.cfg, i, r.registerEngine)

				if errs[i] == nil {
					r.recordTrial(results[i])
				}

				if r.progress != nil {
					r.progress.MoveInProgressToFinished(1)
				}
			}
		}()
	}

	for i := 0; i < r.trials; i++ {
		indexes <- i
	}
	close(indexes)

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

func (r *Runner) registerEngine(name string, e sim.Engine) {
	if r.monitor == nil {
		return
	}

	r.monitor.RegisterEngine(r.name+"-"+name, e)
}

func (r *Runner) recordTrial(res TrialResult) {
	if r.recorder == nil {
		return
	}

	r.recorderLock.Lock()
	defer r.recorderLock.Unlock()

	for _, s := range res.Samples {
		r.recorder.InsertData(OccupancyTable, OccupancyEntry{
			Trial:    res.Trial,
			Feedback: r.cfg.Feedback,
			Time:     float64(s.Time),
			CountM:   s.CountM,
			CountU:   s.CountU,
			CountA:   s.CountA,
		})
	}

	for _, d := range res.Dwells {
		r.recorder.InsertData(LifetimeTable, LifetimeEntry{
			Trial:    res.Trial,
			Feedback: r.cfg.Feedback,
			State:    d.State.String(),
			Start:    float64(d.Start),
			End:      float64(d.End),
		})
	}

	r.recorder.InsertData(TrialTable, TrialEntry{
		Trial:          res.Trial,
		Seed:           res.Seed,
		Feedback:       r.cfg.Feedback,
		EndTime:        float64(res.Run.EndTime),
		NumTransitions: res.Run.NumTransitions,
		Absorbed:       res.Run.Absorbed,
		CountM:         res.FinalM,
		CountU:         res.FinalU,
		CountA:         res.FinalA,
		GapScore:       res.GapScore,
		MeanDwell:      float64(res.MeanDwell),
		NumSwitches:    res.NumSwitches,
	})
}

// RunnerBuilder can build a Runner.
type RunnerBuilder struct {
	cfg      Config
	trials   int
	workers  int
	name     string
	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor
	progress *monitoring.ProgressBar
}

// MakeRunnerBuilder creates a RunnerBuilder that runs one trial per
// CPU-sized worker pool.
func MakeRunnerBuilder() RunnerBuilder {
	return RunnerBuilder{
		trials:  1,
		workers: runtime.NumCPU(),
	}
}

// WithConfig sets the configuration shared by all trials.
func (b RunnerBuilder) WithConfig(cfg Config) RunnerBuilder {
	b.cfg = cfg
	return b
}

// WithTrials sets the number of trials to run.
func (b RunnerBuilder) WithTrials(trials int) RunnerBuilder {
	b.trials = trials
	return b
}

// WithWorkers sets the number of worker goroutines.
func (b RunnerBuilder) WithWorkers(workers int) RunnerBuilder {
	b.workers = workers
	return b
}

// WithName sets the name prefix used for monitor registration.
func (b RunnerBuilder) WithName(name string) RunnerBuilder {
	b.name = name
	return b
}

// WithDataRecorder writes per-trial observables to the recorder.
func (b RunnerBuilder) WithDataRecorder(
	r datarecording.DataRecorder,
) RunnerBuilder {
	b.recorder = r
	return b
}

// WithMonitor registers every trial engine with the monitor.
func (b RunnerBuilder) WithMonitor(m *monitoring.Monitor) RunnerBuilder {
	b.monitor = m
	return b
}

// WithProgressBar reports per-trial completion to the bar.
func (b RunnerBuilder) WithProgressBar(
	p *monitoring.ProgressBar,
) RunnerBuilder {
	b.progress = p
	return b
}

func (b RunnerBuilder) parametersMustBeValid() {
	b.cfg.mustBeValid()

	if b.trials <= 0 {
		panic("runner requires a positive number of trials")
	}

	if b.workers <= 0 {
		panic("runner requires a positive number of workers")
	}
}

// Build builds the Runner. When a recorder is set, the observable
// tables are created if they do not exist yet.
func (b RunnerBuilder) Build() *Runner {
	b.parametersMustBeValid()

	r := &Runner{
		id:       xid.New().String(),
		cfg:      b.cfg,
		trials:   b.trials,
		workers:  b.workers,
		name:     b.name,
		recorder: b.recorder,
		monitor:  b.monitor,
		progress: b.progress,
	}

	if r.name == "" {
		r.name = r.id
	}

	if r.recorder != nil {
		createTrialTables(r.recorder)
	}

	return r
}

func createTrialTables(recorder datarecording.DataRecorder) {
	tables := recorder.ListTables()
	existing := make(map[string]bool, len(tables))
	for _, t := range tables {
		existing[t] = true
	}

	if !existing[OccupancyTable] {
		recorder.CreateTable(OccupancyTable, OccupancyEntry{})
	}

	if !existing[LifetimeTable] {
		recorder.CreateTable(LifetimeTable, LifetimeEntry{})
	}

	if !existing[TrialTable] {
		recorder.CreateTable(TrialTable, TrialEntry{})
	}
}
