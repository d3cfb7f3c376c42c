// Package observing provides hooks that collect observables from a
// running simulation, including occupancy time series, macrostate
// lifetimes, and occupancy-difference histograms.
package observing

import (
	"math"

	"github.com/chromlab/nucleosim/sim"
)

// A Sample is one point of the occupancy time series.
type Sample struct {
	Time   sim.VTimeInSec
	CountM int
	CountU int
	CountA int
}

// A Recorder is a hook that samples the occupancy counts of the
// simulated region. It records one sample every stride transitions,
// discarding samples taken before the equilibration time.
type Recorder struct {
	sim.TimeTeller

	counter       sim.StateCounter
	stride        uint64
	equilibration sim.VTimeInSec

	seen    uint64
	samples []Sample
}

// Func records the occupancy counts after a transition.
func (r *Recorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterTransition {
		return
	}

	r.seen++
	if r.seen%r.stride != 0 {
		return
	}

	now := r.CurrentTime()
	if now < r.equilibration {
		return
	}

	m, u, a := r.counter.Counts()
	r.samples = append(r.samples, Sample{
		Time:   now,
		CountM: m,
		CountU: u,
		CountA: a,
	})
}

// Samples returns the time series collected so far.
func (r *Recorder) Samples() []Sample {
	return r.samples
}

// Latest returns the most recent sample. The second return value is
// false if nothing has been recorded yet.
func (r *Recorder) Latest() (Sample, bool) {
	if len(r.samples) == 0 {
		return Sample{}, false
	}

	return r.samples[len(r.samples)-1], true
}

// GapScore returns the mean of |M-A|/(M+A) over the collected samples.
// Samples with no modified or demodified nucleosome are skipped. A
// score near 1 indicates bistable, all-or-none occupancy; a score near
// 0 indicates a mixed region.
func (r *Recorder) GapScore() float64 {
	sum := 0.0
	n := 0

	for _, s := range r.samples {
		total := s.CountM + s.CountA
		if total == 0 {
			continue
		}

		sum += math.Abs(float64(s.CountM-s.CountA)) / float64(total)
		n++
	}

	if n == 0 {
		return 0
	}

	return sum / float64(n)
}

// RecorderBuilder can build a Recorder.
type RecorderBuilder struct {
	timeTeller    sim.TimeTeller
	counter       sim.StateCounter
	stride        uint64
	equilibration sim.VTimeInSec
}

// MakeRecorderBuilder creates a RecorderBuilder with a stride of 1 and
// no equilibration cutoff.
func MakeRecorderBuilder() RecorderBuilder {
	return RecorderBuilder{
		stride: 1,
	}
}

// WithTimeTeller sets the TimeTeller to use.
func (b RecorderBuilder) WithTimeTeller(t sim.TimeTeller) RecorderBuilder {
	b.timeTeller = t
	return b
}

// WithStateCounter sets the StateCounter to sample from.
func (b RecorderBuilder) WithStateCounter(c sim.StateCounter) RecorderBuilder {
	b.counter = c
	return b
}

// WithStride sets the number of transitions between samples.
func (b RecorderBuilder) WithStride(stride uint64) RecorderBuilder {
	b.stride = stride
	return b
}

// WithEquilibration discards samples taken before the given time.
func (b RecorderBuilder) WithEquilibration(t sim.VTimeInSec) RecorderBuilder {
	b.equilibration = t
	return b
}

// Build creates a Recorder.
func (b RecorderBuilder) Build() *Recorder {
	if b.timeTeller == nil {
		panic("Recorder requires a TimeTeller")
	}

	if b.counter == nil {
		panic("Recorder requires a StateCounter")
	}

	if b.stride == 0 {
		panic("Recorder stride must be positive")
	}

	return &Recorder{
		TimeTeller:    b.timeTeller,
		counter:       b.counter,
		stride:        b.stride,
		equilibration: b.equilibration,
	}
}
