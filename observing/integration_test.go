package observing

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chromlab/nucleosim/chromatin"
	"github.com/chromlab/nucleosim/kernel"
	"github.com/chromlab/nucleosim/rates"
	"github.com/chromlab/nucleosim/sim"
)

var _ = Describe("Observing a full run", func() {
	It("should see bistable dominance under strong cooperative feedback",
		func() {
			n := 50
			k := kernel.MakeBuilder().
				WithKind(kernel.Cooperative).
				WithExponent(2).
				Build()
			model := rates.MakeBuilder().
				WithBasal(rates.SymmetricBasal(1.0 / 3.0)).
				WithFeedback(4.0).
				WithKernel(k).
				Build()

			arr := chromatin.NewStateArray(n, chromatin.StateU)
			engine := sim.NewGillespieEngine(
				arr, model, rand.New(rand.NewSource(42))).
				WithMaxTransitions(20000)

			tracker := MakeLifetimeTrackerBuilder().
				WithTimeTeller(engine).
				WithStateCounter(engine).
				Build()
			engine.AcceptHook(tracker)

			Expect(engine.Run()).To(Succeed())

			m, _, a := engine.Counts()
			dominant := m
			if a > dominant {
				dominant = a
			}

			Expect(dominant).To(BeNumerically(">", 40))
			Expect(tracker.NumSwitches()).To(BeNumerically("<=", 1))
		})

	It("should see balanced occupancy without feedback", func() {
		n := 30
		model := rates.MakeBuilder().
			WithBasal(rates.SymmetricBasal(1.0 / 3.0)).
			WithFeedback(0).
			Build()

		arr := chromatin.NewStateArray(n, chromatin.StateU)
		engine := sim.NewGillespieEngine(
			arr, model, rand.New(rand.NewSource(42))).
			WithMaxTransitions(30000)

		recorder := MakeRecorderBuilder().
			WithTimeTeller(engine).
			WithStateCounter(engine).
			WithStride(10).
			WithEquilibration(50.0).
			Build()
		engine.AcceptHook(recorder)

		histogram := MakeOccupancyHistogramBuilder().
			WithTimeTeller(engine).
			WithStateCounter(engine).
			WithSites(n).
			WithEquilibration(50.0).
			Build()
		engine.AcceptHook(histogram)

		Expect(engine.Run()).To(Succeed())

		samples := recorder.Samples()
		Expect(len(samples)).To(BeNumerically(">", 100))

		sumM, sumA := 0.0, 0.0
		for _, s := range samples {
			sumM += float64(s.CountM)
			sumA += float64(s.CountA)
		}

		meanM := sumM / float64(len(samples)) / float64(n)
		meanA := sumA / float64(len(samples)) / float64(n)

		// Noise alone keeps the three states near 1/3 each.
		Expect(meanM).To(BeNumerically("~", 1.0/3.0, 0.13))
		Expect(meanA).To(BeNumerically("~", 1.0/3.0, 0.13))
		Expect(recorder.GapScore()).To(BeNumerically("<", 0.5))
		Expect(histogram.MeanFraction()).To(
			BeNumerically("~", 1.0/3.0, 0.13))
	})
})
