package sim

import "github.com/chromlab/nucleosim/chromatin"

// A Transition is the immutable record of one realized state change:
// at Time, nucleosome Index converted From -> To. Transitions are
// emitted by engines and consumed by hooks.
type Transition struct {
	Time  VTimeInSec
	Index int
	From  chromatin.State
	To    chromatin.State
}

// A RunResult summarizes how a run ended.
type RunResult struct {
	// EndTime is the simulated time at which the run stopped.
	EndTime VTimeInSec

	// NumTransitions is the number of realized state changes.
	NumTransitions uint64

	// Absorbed reports whether the run ended because the total
	// transition rate reached zero. Absorption is a valid terminal
	// condition, not an error.
	Absorbed bool
}
