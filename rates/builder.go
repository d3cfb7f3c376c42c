package rates

import (
	"fmt"
	"math"

	"github.com/chromlab/nucleosim/kernel"
)

// A Builder can build rate models.
type Builder struct {
	basal    Basal
	feedback float64
	topo     Topology
	kern     kernel.Kernel
	kernSet  bool
}

// MakeBuilder creates a builder with the symmetric noise preset, no
// feedback, and recruitment on both modification and demodification.
func MakeBuilder() Builder {
	return Builder{
		basal: SymmetricBasal(1.0 / 3.0),
		topo:  RecruitBoth(),
	}
}

// WithBasal sets the basal noise rates.
func (b Builder) WithBasal(basal Basal) Builder {
	b.basal = basal
	return b
}

// WithFeedback sets the feedback strength F.
func (b Builder) WithFeedback(f float64) Builder {
	b.feedback = f
	return b
}

// WithTopology sets the transition topology.
func (b Builder) WithTopology(t Topology) Builder {
	b.topo = t
	return b
}

// WithKernel sets the recruitment kernel.
func (b Builder) WithKernel(k kernel.Kernel) Builder {
	b.kern = k
	b.kernSet = true
	return b
}

func (b Builder) parametersMustBeValid() {
	rateMustBeValid("M->U", b.basal.MToU)
	rateMustBeValid("U->M", b.basal.UToM)
	rateMustBeValid("U->A", b.basal.UToA)
	rateMustBeValid("A->U", b.basal.AToU)
	rateMustBeValid("M->A", b.basal.MToA)
	rateMustBeValid("A->M", b.basal.AToM)
	rateMustBeValid("feedback", b.feedback)

	if !b.topo.DirectConversion && (b.basal.MToA > 0 || b.basal.AToM > 0) {
		panic("rates: direct conversion rates set " +
			"but the topology does not allow direct conversion")
	}
}

func rateMustBeValid(name string, r float64) {
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		panic(fmt.Sprintf(
			"rates: %s rate must be non-negative and finite, got %f",
			name, r))
	}
}

// Build builds a rate model. It panics if the configuration is
// invalid.
func (b Builder) Build() *Model {
	b.parametersMustBeValid()

	kern := b.kern
	if !b.kernSet {
		kern = kernel.MakeBuilder().Build()
	}

	return &Model{
		basal:    b.basal,
		feedback: b.feedback,
		topo:     b.topo,
		kern:     kern,
	}
}
