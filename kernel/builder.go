package kernel

import (
	"fmt"
	"math"
)

// A Builder can build recruitment kernels.
type Builder struct {
	kind     Kind
	exponent int
	window   int
	alpha    float64
	dim      Dimensionality
}

// MakeBuilder creates a builder with the default, non-cooperative
// well-mixed kernel.
func MakeBuilder() Builder {
	return Builder{
		kind:     NonCooperative,
		exponent: 1,
		window:   1,
		alpha:    1.5,
		dim:      Linear,
	}
}

// WithKind sets the kernel variant.
func (b Builder) WithKind(k Kind) Builder {
	b.kind = k
	return b
}

// WithExponent sets the cooperativity exponent used by the
// cooperative kernel.
func (b Builder) WithExponent(e int) Builder {
	b.exponent = e
	return b
}

// WithWindow sets the number of ring positions on each side that can
// recruit in the nearest-neighbor kernel.
func (b Builder) WithWindow(w int) Builder {
	b.window = w
	return b
}

// WithAlpha sets the decay exponent of the power-law kernel.
func (b Builder) WithAlpha(a float64) Builder {
	b.alpha = a
	return b
}

// WithDimensionality sets how ring separation maps to distance in the
// power-law kernel.
func (b Builder) WithDimensionality(d Dimensionality) Builder {
	b.dim = d
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.kind < NonCooperative || b.kind > PowerLawSpatial {
		panic(fmt.Sprintf("kernel: unknown kind %d", int(b.kind)))
	}

	if b.kind == Cooperative && b.exponent < 1 {
		panic(fmt.Sprintf(
			"kernel: cooperativity exponent must be at least 1, got %d",
			b.exponent))
	}

	if b.kind == NearestNeighbor && b.window < 1 {
		panic(fmt.Sprintf(
			"kernel: recruitment window must be at least 1, got %d",
			b.window))
	}

	if b.kind == PowerLawSpatial {
		if b.alpha <= 0 || math.IsNaN(b.alpha) || math.IsInf(b.alpha, 0) {
			panic(fmt.Sprintf(
				"kernel: power-law alpha must be positive and finite, got %f",
				b.alpha))
		}

		if b.dim != Linear && b.dim != Folded {
			panic(fmt.Sprintf(
				"kernel: dimensionality must be 1 or 3, got %d", int(b.dim)))
		}
	}
}

// Build builds a kernel. It panics if the configuration is invalid.
func (b Builder) Build() Kernel {
	b.parametersMustBeValid()

	k := Kernel{
		kind:     b.kind,
		exponent: 1,
		window:   b.window,
		alpha:    b.alpha,
		dim:      b.dim,
	}

	if b.kind == Cooperative {
		k.exponent = b.exponent
	}

	return k
}
