// Package kernel provides the recruitment kernels that weight how
// strongly one nucleosome can recruit enzymes to another.
package kernel

import (
	"fmt"
	"math"

	"github.com/chromlab/nucleosim/chromatin"
)

// A Kind selects one of the supported recruitment kernels. The set is
// closed on purpose so that rate computations can dispatch
// exhaustively.
type Kind int

const (
	// NonCooperative treats every other nucleosome as an equally
	// weighted recruiter, regardless of distance (well-mixed
	// approximation).
	NonCooperative Kind = iota

	// Cooperative is the well-mixed kernel with the aggregated
	// recruiter count raised to a cooperativity exponent,
	// reproducing multi-enzyme-complex recruitment.
	Cooperative

	// NearestNeighbor only lets nucleosomes within a fixed window of
	// ring positions recruit.
	NearestNeighbor

	// PowerLawSpatial weights recruiters by distance^-alpha,
	// mimicking contact probabilities of the folded fiber.
	PowerLawSpatial
)

func (k Kind) String() string {
	switch k {
	case NonCooperative:
		return "non-cooperative"
	case Cooperative:
		return "cooperative"
	case NearestNeighbor:
		return "nearest-neighbor"
	case PowerLawSpatial:
		return "power-law-spatial"
	}

	return "invalid"
}

// Dimensionality describes how ring separation translates into the
// distance used by spatial kernels.
type Dimensionality int

const (
	// Linear uses the ring index separation directly.
	Linear Dimensionality = 1

	// Folded approximates the Euclidean distance of an ideally
	// folded fiber, where spatial separation grows with the square
	// root of the index separation.
	Folded Dimensionality = 3
)

// A Kernel computes recruitment weights between nucleosome pairs and
// aggregates them into the feedback term of the rate model. Kernels
// hold no mutable state and are safe to share between runs.
type Kernel struct {
	kind     Kind
	exponent int
	window   int
	alpha    float64
	dim      Dimensionality
}

// Kind returns the kernel variant.
func (k Kernel) Kind() Kind {
	return k.kind
}

// Exponent returns the cooperativity exponent. It is 1 for every
// non-cooperative variant.
func (k Kernel) Exponent() int {
	return k.exponent
}

// Window returns the recruitment window of a nearest-neighbor kernel.
func (k Kernel) Window() int {
	return k.window
}

// Alpha returns the decay exponent of a power-law kernel.
func (k Kernel) Alpha() float64 {
	return k.alpha
}

// Dimensionality returns how ring separation maps to distance.
func (k Kernel) Dimensionality() Dimensionality {
	return k.dim
}

// DistanceWeight returns the raw distance weight for a ring
// separation d, independent of any particular pair of indices. It is
// what the discrete-step engine samples recruiter distances from.
func (k Kernel) DistanceWeight(d int) float64 {
	if d < 1 {
		panic("kernel: distance weight requires a positive separation")
	}

	switch k.kind {
	case NonCooperative, Cooperative:
		return 1.0
	case NearestNeighbor:
		if d <= k.window {
			return 1.0
		}
		return 0.0
	case PowerLawSpatial:
		dist := float64(d)
		if k.dim == Folded {
			dist = math.Sqrt(dist)
		}
		return math.Pow(dist, -k.alpha)
	}

	panic(fmt.Sprintf("kernel: unknown kind %d", int(k.kind)))
}

// Weight returns the recruitment weight that nucleosome j contributes
// toward converting nucleosome i, on an array of n nucleosomes.
// Self-recruitment is excluded; calling Weight with i == j panics.
func (k Kernel) Weight(i, j, n int) float64 {
	if i == j {
		panic("kernel: self-recruitment weight is undefined")
	}

	switch k.kind {
	case NonCooperative, Cooperative:
		return 1.0
	case NearestNeighbor:
		if ringDistance(i, j, n) <= k.window {
			return 1.0
		}
		return 0.0
	case PowerLawSpatial:
		return math.Pow(k.distance(i, j, n), -k.alpha)
	}

	panic(fmt.Sprintf("kernel: unknown kind %d", int(k.kind)))
}

// Aggregate sums the weights of every nucleosome currently in the
// recruiting state and raises the sum to the cooperativity exponent.
// The result scales the feedback-driven part of a transition rate.
func (k Kernel) Aggregate(
	arr *chromatin.StateArray,
	target int,
	recruiter chromatin.State,
) float64 {
	n := arr.Len()
	sum := 0.0

	for j := 0; j < n; j++ {
		if j == target {
			continue
		}

		if arr.State(j) != recruiter {
			continue
		}

		sum += k.Weight(target, j, n)
	}

	if k.exponent == 1 {
		return sum
	}

	return math.Pow(sum, float64(k.exponent))
}

func (k Kernel) distance(i, j, n int) float64 {
	d := float64(ringDistance(i, j, n))

	if k.dim == Folded {
		// Ideal-coil scaling: spatial separation grows as the square
		// root of the contour separation.
		return math.Sqrt(d)
	}

	return d
}

func ringDistance(i, j, n int) int {
	d := i - j
	if d < 0 {
		d = -d
	}

	if d > n/2 {
		d = n - d
	}

	return d
}
