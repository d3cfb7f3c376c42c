// Package chromatin defines the nucleosome state array that the
// simulation engines mutate over time.
package chromatin

// A State is the chemical modification state of one nucleosome.
type State int

// The three modification states of the Dodd model. The numeric values
// follow the original model definition (A=0, U=1, M=2).
const (
	StateA State = iota // acetylated
	StateU              // unmodified
	StateM              // methylated
)

// NumStates is the number of distinct modification states.
const NumStates = 3

func (s State) String() string {
	switch s {
	case StateA:
		return "A"
	case StateU:
		return "U"
	case StateM:
		return "M"
	}

	return "invalid"
}

// Opposite returns the antagonistic modified state. U has no opposite
// and panics.
func (s State) Opposite() State {
	switch s {
	case StateA:
		return StateM
	case StateM:
		return StateA
	}

	panic("state " + s.String() + " has no opposite state")
}
