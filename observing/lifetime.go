package observing

import "github.com/chromlab/nucleosim/sim"

// Macrostate names the dominant epigenetic state of the whole region.
type Macrostate int

// The macrostates a region can be in. A region is neutral when neither
// the modified nor the demodified count dominates.
const (
	MacrostateNeutral Macrostate = iota
	MacrostateM
	MacrostateA
)

// String returns the name of the macrostate.
func (m Macrostate) String() string {
	switch m {
	case MacrostateNeutral:
		return "Neutral"
	case MacrostateM:
		return "M"
	case MacrostateA:
		return "A"
	}

	return "Invalid"
}

// A Dwell is one completed stay in a dominant macrostate.
type Dwell struct {
	State Macrostate
	Start sim.VTimeInSec
	End   sim.VTimeInSec
}

// Duration returns the length of the dwell.
func (d Dwell) Duration() sim.VTimeInSec {
	return d.End - d.Start
}

// A LifetimeTracker is a hook that measures how long the region stays
// in each dominant macrostate. A dwell ends when dominance switches to
// the opposite state. Neutral intervals extend the dwell in progress.
// The final dwell is right-censored and is excluded from the reported
// dwells and statistics unless the tracker is built to include it.
type LifetimeTracker struct {
	sim.TimeTeller

	counter         sim.StateCounter
	sites           int
	ratio           float64
	useFraction     bool
	fraction        float64
	equilibration   sim.VTimeInSec
	includeCensored bool

	current      Macrostate
	start        sim.VTimeInSec
	lastObserved sim.VTimeInSec
	dwells       []Dwell
}

// Func classifies the region after a transition and closes the dwell
// in progress when dominance switches.
func (t *LifetimeTracker) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterTransition {
		return
	}

	now := t.CurrentTime()
	if now < t.equilibration {
		return
	}

	t.lastObserved = now

	m, _, a := t.counter.Counts()
	state := t.classify(m, a)

	if state == MacrostateNeutral {
		return
	}

	switch t.current {
	case MacrostateNeutral:
		t.current = state
		t.start = now
	case state:
		// Dominance unchanged.
	default:
		t.dwells = append(t.dwells, Dwell{
			State: t.current,
			Start: t.start,
			End:   now,
		})
		t.current = state
		t.start = now
	}
}

func (t *LifetimeTracker) classify(m, a int) Macrostate {
	if t.useFraction {
		threshold := t.fraction * float64(t.sites)

		switch {
		case float64(m) >= threshold:
			return MacrostateM
		case float64(a) >= threshold:
			return MacrostateA
		}

		return MacrostateNeutral
	}

	switch {
	case float64(m) > t.ratio*float64(a):
		return MacrostateM
	case float64(a) > t.ratio*float64(m):
		return MacrostateA
	}

	return MacrostateNeutral
}

// Dwells returns the completed dwells. When the tracker includes
// right-censored dwells, the dwell in progress is appended, ended at
// the last observation.
func (t *LifetimeTracker) Dwells() []Dwell {
	if !t.includeCensored || t.current == MacrostateNeutral {
		return t.dwells
	}

	dwells := make([]Dwell, len(t.dwells), len(t.dwells)+1)
	copy(dwells, t.dwells)

	return append(dwells, Dwell{
		State: t.current,
		Start: t.start,
		End:   t.lastObserved,
	})
}

// Current returns the dominant macrostate at the last observation.
func (t *LifetimeTracker) Current() Macrostate {
	return t.current
}

// MeanDwell returns the average reported dwell duration, or 0 when
// nothing is reported.
func (t *LifetimeTracker) MeanDwell() sim.VTimeInSec {
	dwells := t.Dwells()
	if len(dwells) == 0 {
		return 0
	}

	sum := sim.VTimeInSec(0)
	for _, d := range dwells {
		sum += d.Duration()
	}

	return sum / sim.VTimeInSec(len(dwells))
}

// NumSwitches returns the number of observed dominance switches.
func (t *LifetimeTracker) NumSwitches() int {
	return len(t.dwells)
}

// LifetimeTrackerBuilder can build a LifetimeTracker.
type LifetimeTrackerBuilder struct {
	timeTeller      sim.TimeTeller
	counter         sim.StateCounter
	sites           int
	ratio           float64
	useFraction     bool
	fraction        float64
	equilibration   sim.VTimeInSec
	includeCensored bool
}

// MakeLifetimeTrackerBuilder creates a LifetimeTrackerBuilder. The
// default dominance rule declares a state dominant when its count
// exceeds 1.5 times the opposite count.
func MakeLifetimeTrackerBuilder() LifetimeTrackerBuilder {
	return LifetimeTrackerBuilder{
		ratio: 1.5,
	}
}

// WithTimeTeller sets the TimeTeller to use.
func (b LifetimeTrackerBuilder) WithTimeTeller(
	t sim.TimeTeller,
) LifetimeTrackerBuilder {
	b.timeTeller = t
	return b
}

// WithStateCounter sets the StateCounter to classify from.
func (b LifetimeTrackerBuilder) WithStateCounter(
	c sim.StateCounter,
) LifetimeTrackerBuilder {
	b.counter = c
	return b
}

// WithSites sets the number of nucleosomes in the region. It is only
// required when a fraction threshold is used.
func (b LifetimeTrackerBuilder) WithSites(n int) LifetimeTrackerBuilder {
	b.sites = n
	return b
}

// WithDominanceRatio declares a state dominant when its count exceeds
// ratio times the opposite count.
func (b LifetimeTrackerBuilder) WithDominanceRatio(
	ratio float64,
) LifetimeTrackerBuilder {
	b.ratio = ratio
	b.useFraction = false
	return b
}

// WithFractionThreshold declares a state dominant when its count
// reaches the given fraction of all nucleosomes.
func (b LifetimeTrackerBuilder) WithFractionThreshold(
	fraction float64,
) LifetimeTrackerBuilder {
	b.fraction = fraction
	b.useFraction = true
	return b
}

// WithEquilibration ignores observations before the given time.
func (b LifetimeTrackerBuilder) WithEquilibration(
	t sim.VTimeInSec,
) LifetimeTrackerBuilder {
	b.equilibration = t
	return b
}

// WithRightCensoredDwells reports the in-progress dwell at run end in
// addition to the completed ones.
func (b LifetimeTrackerBuilder) WithRightCensoredDwells() LifetimeTrackerBuilder {
	b.includeCensored = true
	return b
}

// Build creates a LifetimeTracker.
func (b LifetimeTrackerBuilder) Build() *LifetimeTracker {
	if b.timeTeller == nil {
		panic("LifetimeTracker requires a TimeTeller")
	}

	if b.counter == nil {
		panic("LifetimeTracker requires a StateCounter")
	}

	if !b.useFraction && b.ratio <= 1 {
		panic("LifetimeTracker dominance ratio must be greater than 1")
	}

	if b.useFraction {
		if b.fraction <= 0.5 || b.fraction > 1 {
			panic("LifetimeTracker fraction threshold must be in (0.5, 1]")
		}

		if b.sites <= 0 {
			panic("LifetimeTracker requires the number of sites " +
				"when a fraction threshold is used")
		}
	}

	return &LifetimeTracker{
		TimeTeller:      b.timeTeller,
		counter:         b.counter,
		sites:           b.sites,
		ratio:           b.ratio,
		useFraction:     b.useFraction,
		fraction:        b.fraction,
		equilibration:   b.equilibration,
		includeCensored: b.includeCensored,
	}
}
