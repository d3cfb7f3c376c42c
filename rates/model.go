// Package rates computes the competing stochastic transition rates
// that drive the nucleosome-modification dynamics.
package rates

import (
	"fmt"
	"math"

	"github.com/chromlab/nucleosim/chromatin"
	"github.com/chromlab/nucleosim/kernel"
)

// Basal holds the noise conversion rates that act independently of
// recruitment. Direct M<->A rates are only used when the topology
// enables direct conversion.
type Basal struct {
	MToU float64
	UToM float64
	UToA float64
	AToU float64
	MToA float64
	AToM float64
}

// SymmetricBasal returns the symmetric noise preset of the published
// model: every conversion through U happens at rate r and no direct
// M<->A conversion exists.
func SymmetricBasal(r float64) Basal {
	return Basal{MToU: r, UToM: r, UToA: r, AToU: r}
}

// Topology selects which transitions feedback can drive. The
// published model variants map onto it as case A (both), case B
// (modification only), and case C (demodification only).
type Topology struct {
	// RecruitModification lets modified nucleosomes recruit the
	// enzymes that convert U into their own state.
	RecruitModification bool

	// RecruitDemodification lets modified nucleosomes recruit the
	// enzymes that strip the opposite modification back to U.
	RecruitDemodification bool

	// DirectConversion permits M<->A transitions that bypass U. None
	// of the published figures uses it; it exists so alternative
	// topologies can be explored without changing the model code.
	DirectConversion bool
}

// RecruitBoth enables feedback on modification and demodification.
func RecruitBoth() Topology {
	return Topology{RecruitModification: true, RecruitDemodification: true}
}

// RecruitModificationOnly enables feedback on modification only.
func RecruitModificationOnly() Topology {
	return Topology{RecruitModification: true}
}

// RecruitDemodificationOnly enables feedback on demodification only.
func RecruitDemodificationOnly() Topology {
	return Topology{RecruitDemodification: true}
}

// A TransitionRate is one entry of the instantaneous rate table: the
// rate at which nucleosome Index converts From -> To.
type TransitionRate struct {
	Index int
	From  chromatin.State
	To    chromatin.State
	Rate  float64
}

// A Model computes the full table of competing transition rates for a
// state array. Models are immutable after construction and safe to
// share between runs.
type Model struct {
	basal    Basal
	feedback float64
	topo     Topology
	kern     kernel.Kernel
}

// Basal returns the basal noise rates.
func (m *Model) Basal() Basal {
	return m.basal
}

// Feedback returns the feedback strength F.
func (m *Model) Feedback() float64 {
	return m.feedback
}

// Topology returns the transition topology.
func (m *Model) Topology() Topology {
	return m.topo
}

// Kernel returns the recruitment kernel.
func (m *Model) Kernel() kernel.Kernel {
	return m.kern
}

// RatesAt computes the current rate table and the total rate for the
// given state array. Entries with zero rate are omitted. A
// non-finite rate is a fatal model error and is reported together
// with the offending nucleosome and transition.
func (m *Model) RatesAt(
	arr *chromatin.StateArray,
) (table []TransitionRate, total float64, err error) {
	n := arr.Len()
	table = make([]TransitionRate, 0, 2*n)

	for i := 0; i < n; i++ {
		table, total, err = m.appendSiteRates(arr, i, table, total)
		if err != nil {
			return nil, 0, err
		}
	}

	if math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, 0, fmt.Errorf("rates: total rate is not finite: %f", total)
	}

	return table, total, nil
}

func (m *Model) appendSiteRates(
	arr *chromatin.StateArray,
	i int,
	table []TransitionRate,
	total float64,
) ([]TransitionRate, float64, error) {
	for _, c := range m.siteCandidates(arr, i) {
		if err := c.mustBeFinite(); err != nil {
			return nil, 0, err
		}

		if c.Rate == 0 {
			continue
		}

		table = append(table, c)
		total += c.Rate
	}

	return table, total, nil
}

// siteCandidates lists the allowed transitions out of nucleosome i
// with their current rates, including zero-rate entries.
func (m *Model) siteCandidates(
	arr *chromatin.StateArray,
	i int,
) []TransitionRate {
	switch arr.State(i) {
	case chromatin.StateU:
		return []TransitionRate{
			{i, chromatin.StateU, chromatin.StateM,
				m.modificationRate(arr, i, chromatin.StateM, m.basal.UToM)},
			{i, chromatin.StateU, chromatin.StateA,
				m.modificationRate(arr, i, chromatin.StateA, m.basal.UToA)},
		}
	case chromatin.StateM:
		t := []TransitionRate{
			{i, chromatin.StateM, chromatin.StateU,
				m.demodificationRate(arr, i, chromatin.StateA, m.basal.MToU)},
		}
		if m.topo.DirectConversion {
			t = append(t, TransitionRate{
				i, chromatin.StateM, chromatin.StateA, m.basal.MToA})
		}
		return t
	case chromatin.StateA:
		t := []TransitionRate{
			{i, chromatin.StateA, chromatin.StateU,
				m.demodificationRate(arr, i, chromatin.StateM, m.basal.AToU)},
		}
		if m.topo.DirectConversion {
			t = append(t, TransitionRate{
				i, chromatin.StateA, chromatin.StateM, m.basal.AToM})
		}
		return t
	}

	panic(fmt.Sprintf("rates: nucleosome %d has invalid state", i))
}

// modificationRate is the rate of converting U at site i into the
// recruiter state.
func (m *Model) modificationRate(
	arr *chromatin.StateArray,
	i int,
	recruiter chromatin.State,
	basal float64,
) float64 {
	r := basal
	if m.topo.RecruitModification {
		r += m.feedback * m.kern.Aggregate(arr, i, recruiter)
	}

	return r
}

// demodificationRate is the rate of stripping the modification at
// site i back to U, recruited by the antagonistic state.
func (m *Model) demodificationRate(
	arr *chromatin.StateArray,
	i int,
	recruiter chromatin.State,
	basal float64,
) float64 {
	r := basal
	if m.topo.RecruitDemodification {
		r += m.feedback * m.kern.Aggregate(arr, i, recruiter)
	}

	return r
}

func (t TransitionRate) mustBeFinite() error {
	if math.IsNaN(t.Rate) || math.IsInf(t.Rate, 0) || t.Rate < 0 {
		return fmt.Errorf(
			"rates: invalid rate %f for nucleosome %d, %s -> %s",
			t.Rate, t.Index, t.From, t.To)
	}

	return nil
}
