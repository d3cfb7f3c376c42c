package chromatin

import (
	"fmt"
	"math/rand"
)

// A StateArray is an ordered, fixed-size sequence of nucleosome
// states. It is the only mutable entity of a simulation run and must
// be owned by exactly one engine. The array is treated as a ring when
// spatial distances are needed.
type StateArray struct {
	states []State
	counts [NumStates]int
}

// NewStateArray creates an array of n nucleosomes, all initialized to
// the given state.
func NewStateArray(n int, initial State) *StateArray {
	if n <= 0 {
		panic(fmt.Sprintf("chromatin: array size must be positive, got %d", n))
	}

	mustBeValidState(initial)

	a := &StateArray{
		states: make([]State, n),
	}

	for i := range a.states {
		a.states[i] = initial
	}
	a.counts[initial] = n

	return a
}

// NewRandomStateArray creates an array of n nucleosomes with each
// state drawn uniformly from {A, U, M} using the provided random
// source. The source must be the one owned by the run so that runs
// remain reproducible.
func NewRandomStateArray(n int, rng *rand.Rand) *StateArray {
	if n <= 0 {
		panic(fmt.Sprintf("chromatin: array size must be positive, got %d", n))
	}

	if rng == nil {
		panic("chromatin: random source must not be nil")
	}

	a := &StateArray{
		states: make([]State, n),
	}

	for i := range a.states {
		s := State(rng.Intn(NumStates))
		a.states[i] = s
		a.counts[s]++
	}

	return a
}

// Len returns the number of nucleosomes in the array.
func (a *StateArray) Len() int {
	return len(a.states)
}

// State returns the state of the i-th nucleosome.
func (a *StateArray) State(i int) State {
	return a.states[i]
}

// Set changes the state of the i-th nucleosome, maintaining the state
// counts.
func (a *StateArray) Set(i int, s State) {
	mustBeValidState(s)

	old := a.states[i]
	if old == s {
		return
	}

	a.counts[old]--
	a.counts[s]++
	a.states[i] = s
}

// Count returns how many nucleosomes are currently in state s.
func (a *StateArray) Count(s State) int {
	mustBeValidState(s)
	return a.counts[s]
}

// Counts returns the number of nucleosomes in each of the three
// states. The three counts always sum to Len().
func (a *StateArray) Counts() (m, u, aCount int) {
	return a.counts[StateM], a.counts[StateU], a.counts[StateA]
}

// RingDistance returns the separation between nucleosomes i and j on
// the ring, in units of linear index distance.
func (a *StateArray) RingDistance(i, j int) int {
	n := len(a.states)
	d := i - j
	if d < 0 {
		d = -d
	}

	if d > n/2 {
		d = n - d
	}

	return d
}

// Snapshot returns a copy of the current states.
func (a *StateArray) Snapshot() []State {
	s := make([]State, len(a.states))
	copy(s, a.states)
	return s
}

func mustBeValidState(s State) {
	if s < 0 || s >= NumStates {
		panic(fmt.Sprintf("chromatin: invalid state %d", int(s)))
	}
}
