// Package sim provides the stochastic simulation engines that evolve
// a chromatin region through time.
package sim

// A RunEndHandler is a handler that is called after a run ends.
type RunEndHandler interface {
	Handle(now VTimeInSec)
}

// StateCounter exposes the live state counts of a running engine so
// that external observers (e.g. the monitor) can inspect progress.
type StateCounter interface {
	Counts() (m, u, a int)
}

// An Engine evolves a state array through simulated time and emits
// one Transition per realized state change.
type Engine interface {
	Hookable
	TimeTeller
	StateCounter

	// Next produces the next transition. It returns false once the
	// run has ended, either by reaching the configured stopping
	// condition or by absorption. Next is a lazy, finite, one-shot
	// iterator; it is not restartable.
	Next() (Transition, bool, error)

	// Run produces transitions until the run ends.
	Run() error

	// Pause prevents the engine from producing more transitions
	// until Continue is called.
	Pause()

	// Continue resumes a paused engine.
	Continue()

	// Result summarizes how the run ended. It is also valid mid-run,
	// reflecting progress so far.
	Result() RunResult

	// RegisterRunEndHandler registers a handler that performs some
	// action after the run has finished.
	RegisterRunEndHandler(handler RunEndHandler)
}
