package sim

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/chromlab/nucleosim/chromatin"
	"github.com/chromlab/nucleosim/rates"
)

// A StepEngine evolves the state array with the discretized update of
// the published model: each step picks one nucleosome uniformly at
// random and performs a recruited conversion with probability
// F/(F+1), otherwise a noisy conversion with probability 1/3 per
// legal target. Simulated time advances by 1/N per attempted step,
// so one time unit averages one attempted conversion per nucleosome.
//
// The engine reads the feedback strength, topology, and kernel from
// the rate model; the basal rate magnitudes are not used because the
// discretized update fixes the noise probability at 1/3.
type StepEngine struct {
	HookableBase

	arr  *chromatin.StateArray
	rng  *rand.Rand
	topo rates.Topology

	alpha      float64 // recruited-vs-noise split F/(F+1)
	recruiters int     // agreeing draws required, from the kernel exponent
	dt         VTimeInSec

	// cumulative distance weights for recruiter sampling
	distanceCDF []float64

	horizon  VTimeInSec
	maxSteps uint64

	timeLock       sync.RWMutex
	now            VTimeInSec
	countM         int
	countU         int
	countA         int
	numSteps       uint64
	numTransitions uint64
	done           bool

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	runEndHandlers []RunEndHandler
}

// NewStepEngine creates a discrete-step engine around a state array,
// a rate model, and the random source owned by this run.
func NewStepEngine(
	arr *chromatin.StateArray,
	model *rates.Model,
	rng *rand.Rand,
) *StepEngine {
	if arr == nil {
		panic("sim: state array must not be nil")
	}

	if model == nil {
		panic("sim: rate model must not be nil")
	}

	if rng == nil {
		panic("sim: random source must not be nil")
	}

	f := model.Feedback()

	e := &StepEngine{
		arr:        arr,
		rng:        rng,
		topo:       model.Topology(),
		alpha:      f / (f + 1),
		recruiters: model.Kernel().Exponent(),
		dt:         VTimeInSec(1.0 / float64(arr.Len())),
	}

	e.countM, e.countU, e.countA = arr.Counts()
	e.buildDistanceCDF(model)

	return e
}

// buildDistanceCDF precomputes the cumulative distance weights used
// to sample the recruiter separation.
func (e *StepEngine) buildDistanceCDF(model *rates.Model) {
	n := e.arr.Len()
	kern := model.Kernel()

	e.distanceCDF = make([]float64, n-1)

	acc := 0.0
	for d := 1; d < n; d++ {
		acc += kern.DistanceWeight(d)
		e.distanceCDF[d-1] = acc
	}

	if n > 1 && acc == 0 {
		panic("sim: kernel assigns zero weight to every separation")
	}
}

// WithHorizon sets the simulated time at which the run stops.
func (e *StepEngine) WithHorizon(t VTimeInSec) *StepEngine {
	if t <= 0 {
		panic(fmt.Sprintf("sim: horizon must be positive, got %f", float64(t)))
	}

	e.horizon = t

	return e
}

// WithMaxSteps sets the number of attempted steps at which the run
// stops. Attempted steps include the ones that do not change any
// state.
func (e *StepEngine) WithMaxSteps(n uint64) *StepEngine {
	e.maxSteps = n
	return e
}

func (e *StepEngine) readNow() VTimeInSec {
	e.timeLock.RLock()
	t := e.now
	e.timeLock.RUnlock()
	return t
}

func (e *StepEngine) writeNow(t VTimeInSec) {
	e.timeLock.Lock()
	e.now = t
	e.timeLock.Unlock()
}

// Next performs attempted steps until one changes the state, then
// returns the realized transition. It returns false once the horizon
// or the step limit is reached.
func (e *StepEngine) Next() (Transition, bool, error) {
	if e.done {
		return Transition{}, false, nil
	}

	e.stoppingConditionMustBeConfigured()

	for {
		if e.stopReached() {
			e.finish()
			return Transition{}, false, nil
		}

		target, to, changed := e.step()

		e.numSteps++
		t := e.readNow() + e.dt
		e.writeNow(t)

		if !changed {
			continue
		}

		trans := Transition{
			Time:  t,
			Index: target,
			From:  e.arr.State(target),
			To:    to,
		}

		hookCtx := HookCtx{
			Domain: e,
			Pos:    HookPosBeforeTransition,
			Item:   trans,
		}
		e.InvokeHook(hookCtx)

		e.arr.Set(target, to)
		e.numTransitions++
		e.snapshotCounts()

		hookCtx.Pos = HookPosAfterTransition
		e.InvokeHook(hookCtx)

		return trans, true, nil
	}
}

func (e *StepEngine) stopReached() bool {
	if e.maxSteps > 0 && e.numSteps >= e.maxSteps {
		return true
	}

	if e.horizon > 0 && e.readNow()+e.dt > e.horizon {
		return true
	}

	return false
}

// step performs one attempted update and reports whether the target
// nucleosome changes state, without applying the change yet.
func (e *StepEngine) step() (target int, to chromatin.State, changed bool) {
	target = e.rng.Intn(e.arr.Len())

	if e.rng.Float64() < e.alpha {
		return e.recruitedConversion(target)
	}

	return e.noisyConversion(target)
}

// recruitedConversion attempts a feedback-driven conversion of the
// target, recruited by a sampled other nucleosome.
func (e *StepEngine) recruitedConversion(
	target int,
) (int, chromatin.State, bool) {
	recruiter, ok := e.sampleRecruiter(target)
	if !ok {
		return target, 0, false
	}

	s := e.arr.State(recruiter)
	if s == chromatin.StateU {
		return target, 0, false
	}

	switch e.arr.State(target) {
	case chromatin.StateU:
		if e.topo.RecruitModification {
			return target, s, true
		}
	case s.Opposite():
		if e.topo.RecruitDemodification {
			return target, chromatin.StateU, true
		}
	}

	return target, 0, false
}

// sampleRecruiter draws the recruiting nucleosome according to the
// kernel's distance weights. A cooperativity exponent k above 1
// requires k independent draws that agree in state, reproducing the
// dual-recruiter check of the published cooperative model.
func (e *StepEngine) sampleRecruiter(target int) (int, bool) {
	first := e.sampleByDistance(target)

	for i := 1; i < e.recruiters; i++ {
		other := e.sampleByDistance(target)
		if e.arr.State(other) != e.arr.State(first) {
			return 0, false
		}
	}

	return first, true
}

func (e *StepEngine) sampleByDistance(target int) int {
	n := e.arr.Len()
	if n == 1 {
		return target
	}

	total := e.distanceCDF[len(e.distanceCDF)-1]
	u := e.rng.Float64() * total

	d := 1 + searchCDF(e.distanceCDF, u)

	if e.rng.Float64() < 0.5 {
		return (target + d) % n
	}

	return ((target-d)%n + n) % n
}

// noisyConversion attempts a random conversion of the target with
// probability 1/3 per legal move, mirroring the published update.
func (e *StepEngine) noisyConversion(
	target int,
) (int, chromatin.State, bool) {
	r := e.rng.Float64()

	switch e.arr.State(target) {
	case chromatin.StateA:
		if r < 1.0/3.0 {
			return target, chromatin.StateU, true
		}
	case chromatin.StateU:
		if r < 1.0/3.0 {
			return target, chromatin.StateA, true
		}
		if r < 2.0/3.0 {
			return target, chromatin.StateM, true
		}
	case chromatin.StateM:
		if r < 1.0/3.0 {
			return target, chromatin.StateU, true
		}
	}

	return target, 0, false
}

func searchCDF(cdf []float64, u float64) int {
	lo, hi := 0, len(cdf)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cdf[mid] <= u {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo
}

func (e *StepEngine) stoppingConditionMustBeConfigured() {
	if e.horizon == 0 && e.maxSteps == 0 {
		panic("sim: engine has neither a horizon nor a step limit")
	}
}

// Run produces transitions until the run ends.
func (e *StepEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		e.pauseLock.Lock()
		_, ok, err := e.Next()
		e.pauseLock.Unlock()

		if err != nil {
			return err
		}

		if !ok {
			return nil
		}
	}
}

func (e *StepEngine) finish() {
	e.done = true

	now := e.readNow()
	for _, h := range e.runEndHandlers {
		h.Handle(now)
	}
}

// Pause prevents the engine from producing more transitions.
func (e *StepEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue resumes a paused engine.
func (e *StepEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the simulated time after the most recent
// attempted step.
func (e *StepEngine) CurrentTime() VTimeInSec {
	return e.readNow()
}

// snapshotCounts republishes the state counts after a transition. The
// run goroutine owns the state array, so readers on other goroutines
// must go through the snapshot.
func (e *StepEngine) snapshotCounts() {
	m, u, a := e.arr.Counts()

	e.timeLock.Lock()
	e.countM, e.countU, e.countA = m, u, a
	e.timeLock.Unlock()
}

// Counts returns the state counts after the most recent transition.
// It is safe to call from other goroutines while the run is in
// progress.
func (e *StepEngine) Counts() (m, u, a int) {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.countM, e.countU, e.countA
}

// Result summarizes the run so far. A step engine never absorbs: the
// noisy leg of the update can always fire.
func (e *StepEngine) Result() RunResult {
	return RunResult{
		EndTime:        e.readNow(),
		NumTransitions: e.numTransitions,
	}
}

// RegisterRunEndHandler registers a handler to be called after the
// run has finished.
func (e *StepEngine) RegisterRunEndHandler(handler RunEndHandler) {
	e.runEndHandlers = append(e.runEndHandlers, handler)
}
