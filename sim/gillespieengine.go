package sim

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/chromlab/nucleosim/chromatin"
	"github.com/chromlab/nucleosim/rates"
)

// A GillespieEngine evolves the state array with the exact
// stochastic simulation algorithm: it samples the waiting time of the
// next transition from the total rate and picks the transition with
// probability proportional to its rate mass. Inter-event times are
// therefore statistically exact.
type GillespieEngine struct {
	HookableBase

	arr   *chromatin.StateArray
	model *rates.Model
	rng   *rand.Rand

	horizon   VTimeInSec
	maxEvents uint64

	timeLock       sync.RWMutex
	now            VTimeInSec
	countM         int
	countU         int
	countA         int
	numTransitions uint64
	absorbed       bool
	done           bool

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	runEndHandlers []RunEndHandler
}

// NewGillespieEngine creates an engine around a state array, a rate
// model, and the random source owned by this run. Passing the random
// source explicitly keeps runs reproducible and lets independent
// trials run in parallel without shared state.
func NewGillespieEngine(
	arr *chromatin.StateArray,
	model *rates.Model,
	rng *rand.Rand,
) *GillespieEngine {
	if arr == nil {
		panic("sim: state array must not be nil")
	}

	if model == nil {
		panic("sim: rate model must not be nil")
	}

	if rng == nil {
		panic("sim: random source must not be nil")
	}

	e := &GillespieEngine{
		arr:   arr,
		model: model,
		rng:   rng,
	}
	e.countM, e.countU, e.countA = arr.Counts()

	return e
}

// WithHorizon sets the simulated time at which the run stops.
func (e *GillespieEngine) WithHorizon(t VTimeInSec) *GillespieEngine {
	if t <= 0 {
		panic(fmt.Sprintf("sim: horizon must be positive, got %f", float64(t)))
	}

	e.horizon = t

	return e
}

// WithMaxTransitions sets the number of realized transitions at which
// the run stops.
func (e *GillespieEngine) WithMaxTransitions(n uint64) *GillespieEngine {
	e.maxEvents = n
	return e
}

func (e *GillespieEngine) readNow() VTimeInSec {
	e.timeLock.RLock()
	t := e.now
	e.timeLock.RUnlock()
	return t
}

func (e *GillespieEngine) writeNow(t VTimeInSec) {
	e.timeLock.Lock()
	e.now = t
	e.timeLock.Unlock()
}

// Next samples and applies the next transition.
func (e *GillespieEngine) Next() (Transition, bool, error) {
	if e.done {
		return Transition{}, false, nil
	}

	e.stoppingConditionMustBeConfigured()

	table, total, err := e.model.RatesAt(e.arr)
	if err != nil {
		e.done = true
		return Transition{}, false,
			fmt.Errorf("sim: at time %f: %w", float64(e.readNow()), err)
	}

	if total == 0 {
		e.absorbed = true
		e.finish()
		return Transition{}, false, nil
	}

	waitingTime := VTimeInSec(e.rng.ExpFloat64() / total)
	t := e.readNow() + waitingTime

	if e.horizon > 0 && t > e.horizon {
		e.writeNow(e.horizon)
		e.finish()
		return Transition{}, false, nil
	}

	picked := e.pickTransition(table, total)
	trans := Transition{
		Time:  t,
		Index: picked.Index,
		From:  picked.From,
		To:    picked.To,
	}

	e.writeNow(t)

	hookCtx := HookCtx{
		Domain: e,
		Pos:    HookPosBeforeTransition,
		Item:   trans,
	}
	e.InvokeHook(hookCtx)

	e.arr.Set(trans.Index, trans.To)
	e.numTransitions++
	e.snapshotCounts()

	hookCtx.Pos = HookPosAfterTransition
	e.InvokeHook(hookCtx)

	if e.maxEvents > 0 && e.numTransitions >= e.maxEvents {
		e.finish()
	}

	return trans, true, nil
}

// pickTransition draws one entry of the rate table with probability
// proportional to its rate.
func (e *GillespieEngine) pickTransition(
	table []rates.TransitionRate,
	total float64,
) rates.TransitionRate {
	u := e.rng.Float64() * total

	acc := 0.0
	for _, entry := range table {
		acc += entry.Rate
		if u < acc {
			return entry
		}
	}

	// Floating-point round-off can leave u marginally above the
	// accumulated sum. The last entry carries the remainder.
	return table[len(table)-1]
}

func (e *GillespieEngine) stoppingConditionMustBeConfigured() {
	if e.horizon == 0 && e.maxEvents == 0 {
		panic("sim: engine has neither a horizon nor a transition limit")
	}
}

// Run produces transitions until the run ends.
func (e *GillespieEngine) Run() error {
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

func (e *GillespieEngine) finish() {
	e.done = true

	now := e.readNow()
	for _, h := range e.runEndHandlers {
		h.Handle(now)
	}
}

// Pause prevents the engine from producing more transitions.
func (e *GillespieEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue resumes a paused engine.
func (e *GillespieEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the simulated time of the most recent
// transition.
func (e *GillespieEngine) CurrentTime() VTimeInSec {
	return e.readNow()
}

// snapshotCounts republishes the state counts after a transition. The
// run goroutine owns the state array, so readers on other goroutines
// must go through the snapshot.
func (e *GillespieEngine) snapshotCounts() {
	m, u, a := e.arr.Counts()

	e.timeLock.Lock()
	e.countM, e.countU, e.countA = m, u, a
	e.timeLock.Unlock()
}

// Counts returns the state counts after the most recent transition.
// It is safe to call from other goroutines while the run is in
// progress.
func (e *GillespieEngine) Counts() (m, u, a int) {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.countM, e.countU, e.countA
}

// Result summarizes the run so far.
func (e *GillespieEngine) Result() RunResult {
	return RunResult{
		EndTime:        e.readNow(),
		NumTransitions: e.numTransitions,
		Absorbed:       e.absorbed,
	}
}

// RegisterRunEndHandler registers a handler to be called after the
// run has finished.
func (e *GillespieEngine) RegisterRunEndHandler(handler RunEndHandler) {
	e.runEndHandlers = append(e.runEndHandlers, handler)
}
