package observing

import (
	"fmt"

	"github.com/chromlab/nucleosim/sim"
)

// A DeltaHistogram is a hook that accumulates the distribution of
// M-A, the difference between the modified and demodified counts. The
// distribution is bimodal for bistable parameter sets and unimodal
// around zero otherwise.
type DeltaHistogram struct {
	sim.TimeTeller

	counter       sim.StateCounter
	sites         int
	equilibration sim.VTimeInSec

	counts []uint64
	total  uint64
}

// Func accumulates the current occupancy difference after a transition.
func (h *DeltaHistogram) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterTransition {
		return
	}

	if h.CurrentTime() < h.equilibration {
		return
	}

	m, _, a := h.counter.Counts()
	h.counts[m-a+h.sites]++
	h.total++
}

// Count returns how often the given occupancy difference was observed.
func (h *DeltaHistogram) Count(delta int) uint64 {
	if delta < -h.sites || delta > h.sites {
		panic(fmt.Sprintf(
			"occupancy difference %d is outside [-%d, %d]",
			delta, h.sites, h.sites))
	}

	return h.counts[delta+h.sites]
}

// Total returns the number of accumulated observations.
func (h *DeltaHistogram) Total() uint64 {
	return h.total
}

// Probabilities returns the normalized distribution over the
// occupancy differences -N..N. It returns nil when nothing has been
// observed.
func (h *DeltaHistogram) Probabilities() []float64 {
	if h.total == 0 {
		return nil
	}

	probs := make([]float64, len(h.counts))
	for i, c := range h.counts {
		probs[i] = float64(c) / float64(h.total)
	}

	return probs
}

// An OccupancyHistogram accumulates the steady-state distribution of
// the modified count, one bin per possible number of M nucleosomes.
// Without feedback the distribution approximates the basal-rate
// equilibrium of independent nucleosomes.
type OccupancyHistogram struct {
	sim.TimeTeller

	counter       sim.StateCounter
	sites         int
	equilibration sim.VTimeInSec

	counts []uint64
	total  uint64
}

// Func accumulates the current modified count after a transition.
func (h *OccupancyHistogram) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterTransition {
		return
	}

	if h.CurrentTime() < h.equilibration {
		return
	}

	m, _, _ := h.counter.Counts()
	h.counts[m]++
	h.total++
}

// Count returns how often the given modified count was observed.
func (h *OccupancyHistogram) Count(countM int) uint64 {
	if countM < 0 || countM > h.sites {
		panic(fmt.Sprintf(
			"modified count %d is outside [0, %d]", countM, h.sites))
	}

	return h.counts[countM]
}

// Total returns the number of accumulated observations.
func (h *OccupancyHistogram) Total() uint64 {
	return h.total
}

// Density returns the normalized distribution over the modified
// counts 0..N. It returns nil when nothing has been observed.
func (h *OccupancyHistogram) Density() []float64 {
	if h.total == 0 {
		return nil
	}

	density := make([]float64, len(h.counts))
	for i, c := range h.counts {
		density[i] = float64(c) / float64(h.total)
	}

	return density
}

// MeanFraction returns the observed mean of the modified fraction.
func (h *OccupancyHistogram) MeanFraction() float64 {
	if h.total == 0 {
		return 0
	}

	sum := 0.0
	for m, c := range h.counts {
		sum += float64(m) * float64(c)
	}

	return sum / float64(h.total) / float64(h.sites)
}

// OccupancyHistogramBuilder can build an OccupancyHistogram.
type OccupancyHistogramBuilder struct {
	timeTeller    sim.TimeTeller
	counter       sim.StateCounter
	sites         int
	equilibration sim.VTimeInSec
}

// MakeOccupancyHistogramBuilder creates an OccupancyHistogramBuilder.
func MakeOccupancyHistogramBuilder() OccupancyHistogramBuilder {
	return OccupancyHistogramBuilder{}
}

// WithTimeTeller sets the TimeTeller to use.
func (b OccupancyHistogramBuilder) WithTimeTeller(
	t sim.TimeTeller,
) OccupancyHistogramBuilder {
	b.timeTeller = t
	return b
}

// WithStateCounter sets the StateCounter to observe.
func (b OccupancyHistogramBuilder) WithStateCounter(
	c sim.StateCounter,
) OccupancyHistogramBuilder {
	b.counter = c
	return b
}

// WithSites sets the number of nucleosomes in the region.
func (b OccupancyHistogramBuilder) WithSites(
	n int,
) OccupancyHistogramBuilder {
	b.sites = n
	return b
}

// WithEquilibration ignores observations before the given time.
func (b OccupancyHistogramBuilder) WithEquilibration(
	t sim.VTimeInSec,
) OccupancyHistogramBuilder {
	b.equilibration = t
	return b
}

// Build creates an OccupancyHistogram.
func (b OccupancyHistogramBuilder) Build() *OccupancyHistogram {
	if b.timeTeller == nil {
		panic("OccupancyHistogram requires a TimeTeller")
	}

	if b.counter == nil {
		panic("OccupancyHistogram requires a StateCounter")
	}

	if b.sites <= 0 {
		panic("OccupancyHistogram requires a positive number of sites")
	}

	return &OccupancyHistogram{
		TimeTeller:    b.timeTeller,
		counter:       b.counter,
		sites:         b.sites,
		equilibration: b.equilibration,
		counts:        make([]uint64, b.sites+1),
	}
}

// DeltaHistogramBuilder can build a DeltaHistogram.
type DeltaHistogramBuilder struct {
	timeTeller    sim.TimeTeller
	counter       sim.StateCounter
	sites         int
	equilibration sim.VTimeInSec
}

// MakeDeltaHistogramBuilder creates a DeltaHistogramBuilder.
func MakeDeltaHistogramBuilder() DeltaHistogramBuilder {
	return DeltaHistogramBuilder{}
}

// WithTimeTeller sets the TimeTeller to use.
func (b DeltaHistogramBuilder) WithTimeTeller(
	t sim.TimeTeller,
) DeltaHistogramBuilder {
	b.timeTeller = t
	return b
}

// WithStateCounter sets the StateCounter to observe.
func (b DeltaHistogramBuilder) WithStateCounter(
	c sim.StateCounter,
) DeltaHistogramBuilder {
	b.counter = c
	return b
}

// WithSites sets the number of nucleosomes in the region.
func (b DeltaHistogramBuilder) WithSites(n int) DeltaHistogramBuilder {
	b.sites = n
	return b
}

// WithEquilibration ignores observations before the given time.
func (b DeltaHistogramBuilder) WithEquilibration(
	t sim.VTimeInSec,
) DeltaHistogramBuilder {
	b.equilibration = t
	return b
}

// Build creates a DeltaHistogram.
func (b DeltaHistogramBuilder) Build() *DeltaHistogram {
	if b.timeTeller == nil {
		panic("DeltaHistogram requires a TimeTeller")
	}

	if b.counter == nil {
		panic("DeltaHistogram requires a StateCounter")
	}

	if b.sites <= 0 {
		panic("DeltaHistogram requires a positive number of sites")
	}

	return &DeltaHistogram{
		TimeTeller:    b.timeTeller,
		counter:       b.counter,
		sites:         b.sites,
		equilibration: b.equilibration,
		counts:        make([]uint64, 2*b.sites+1),
	}
}
