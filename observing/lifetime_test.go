package observing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chromlab/nucleosim/sim"
)

var _ = Describe("LifetimeTracker", func() {
	var (
		region  *fakeRegion
		tracker *LifetimeTracker
	)

	BeforeEach(func() {
		region = &fakeRegion{}
		tracker = MakeLifetimeTrackerBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			Build()
	})

	observe := func(now sim.VTimeInSec, m, a int) {
		region.now = now
		region.m, region.a = m, a
		tracker.Func(afterTransition())
	}

	It("should close a dwell when dominance switches", func() {
		observe(1.0, 10, 1)
		observe(3.0, 9, 2)
		observe(5.0, 1, 10)
		observe(9.0, 10, 1)

		Expect(tracker.Dwells()).To(Equal([]Dwell{
			{State: MacrostateM, Start: 1.0, End: 5.0},
			{State: MacrostateA, Start: 5.0, End: 9.0},
		}))
		Expect(tracker.Current()).To(Equal(MacrostateM))
		Expect(tracker.NumSwitches()).To(Equal(2))
		Expect(tracker.MeanDwell()).To(Equal(sim.VTimeInSec(4.0)))
	})

	It("should not report the right-censored final dwell", func() {
		observe(1.0, 10, 1)
		observe(100.0, 10, 1)

		Expect(tracker.Dwells()).To(BeEmpty())
		Expect(tracker.MeanDwell()).To(Equal(sim.VTimeInSec(0)))
	})

	It("should report the censored dwell when flagged", func() {
		tracker = MakeLifetimeTrackerBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			WithRightCensoredDwells().
			Build()

		observe(1.0, 10, 1)
		observe(5.0, 1, 10)
		observe(100.0, 1, 10)

		Expect(tracker.Dwells()).To(Equal([]Dwell{
			{State: MacrostateM, Start: 1.0, End: 5.0},
			{State: MacrostateA, Start: 5.0, End: 100.0},
		}))
		Expect(tracker.MeanDwell()).To(Equal(sim.VTimeInSec(49.5)))
		Expect(tracker.NumSwitches()).To(Equal(1))
	})

	It("should let neutral intervals extend the dwell in progress", func() {
		observe(1.0, 10, 1)
		observe(2.0, 6, 5)
		observe(8.0, 1, 10)

		Expect(tracker.Dwells()).To(Equal([]Dwell{
			{State: MacrostateM, Start: 1.0, End: 8.0},
		}))
	})

	It("should declare dominance by the 1.5x rule", func() {
		// 9 vs 6 is exactly the ratio, not above it.
		observe(1.0, 9, 6)
		Expect(tracker.Current()).To(Equal(MacrostateNeutral))

		observe(2.0, 10, 6)
		Expect(tracker.Current()).To(Equal(MacrostateM))
	})

	It("should ignore observations before the equilibration time", func() {
		tracker = MakeLifetimeTrackerBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			WithEquilibration(10.0).
			Build()

		observe(1.0, 10, 1)
		observe(5.0, 1, 10)
		Expect(tracker.Dwells()).To(BeEmpty())

		observe(11.0, 10, 1)
		observe(15.0, 1, 10)
		Expect(tracker.Dwells()).To(Equal([]Dwell{
			{State: MacrostateM, Start: 11.0, End: 15.0},
		}))
	})

	It("should support a fraction threshold", func() {
		tracker = MakeLifetimeTrackerBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			WithSites(20).
			WithFractionThreshold(0.8).
			Build()

		observe(1.0, 15, 5)
		Expect(tracker.Current()).To(Equal(MacrostateNeutral))

		observe(2.0, 16, 4)
		Expect(tracker.Current()).To(Equal(MacrostateM))

		observe(6.0, 2, 16)
		Expect(tracker.Dwells()).To(Equal([]Dwell{
			{State: MacrostateM, Start: 2.0, End: 6.0},
		}))
	})

	It("should reject invalid thresholds", func() {
		Expect(func() {
			MakeLifetimeTrackerBuilder().
				WithTimeTeller(region).
				WithStateCounter(region).
				WithDominanceRatio(1.0).
				Build()
		}).To(Panic())

		Expect(func() {
			MakeLifetimeTrackerBuilder().
				WithTimeTeller(region).
				WithStateCounter(region).
				WithSites(20).
				WithFractionThreshold(0.5).
				Build()
		}).To(Panic())

		Expect(func() {
			MakeLifetimeTrackerBuilder().
				WithTimeTeller(region).
				WithStateCounter(region).
				WithFractionThreshold(0.8).
				Build()
		}).To(Panic())
	})
})

var _ = Describe("OccupancyHistogram", func() {
	var (
		region    *fakeRegion
		histogram *OccupancyHistogram
	)

	BeforeEach(func() {
		region = &fakeRegion{}
		histogram = MakeOccupancyHistogramBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			WithSites(10).
			Build()
	})

	It("should accumulate modified counts", func() {
		region.m = 8
		region.now = 1.0
		histogram.Func(afterTransition())
		histogram.Func(afterTransition())

		region.m = 2
		region.now = 2.0
		histogram.Func(afterTransition())

		Expect(histogram.Total()).To(Equal(uint64(3)))
		Expect(histogram.Count(8)).To(Equal(uint64(2)))
		Expect(histogram.Count(2)).To(Equal(uint64(1)))

		density := histogram.Density()
		Expect(density).To(HaveLen(11))
		Expect(density[8]).To(BeNumerically("~", 2.0/3.0, 1e-12))

		// (8 + 8 + 2) / 3 / 10
		Expect(histogram.MeanFraction()).To(BeNumerically("~", 0.6, 1e-12))
	})

	It("should panic on out-of-range counts", func() {
		Expect(func() { histogram.Count(11) }).To(Panic())
		Expect(func() { histogram.Count(-1) }).To(Panic())
	})

	It("should ignore observations before the equilibration time", func() {
		histogram = MakeOccupancyHistogramBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			WithSites(10).
			WithEquilibration(5.0).
			Build()

		region.now = 1.0
		histogram.Func(afterTransition())
		Expect(histogram.Total()).To(Equal(uint64(0)))

		region.now = 6.0
		histogram.Func(afterTransition())
		Expect(histogram.Total()).To(Equal(uint64(1)))
	})
})

var _ = Describe("DeltaHistogram", func() {
	var (
		region    *fakeRegion
		histogram *DeltaHistogram
	)

	BeforeEach(func() {
		region = &fakeRegion{}
		histogram = MakeDeltaHistogramBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			WithSites(10).
			Build()
	})

	It("should accumulate occupancy differences", func() {
		region.m, region.a = 8, 2
		region.now = 1.0
		histogram.Func(afterTransition())
		histogram.Func(afterTransition())

		region.m, region.a = 2, 8
		region.now = 2.0
		histogram.Func(afterTransition())

		Expect(histogram.Total()).To(Equal(uint64(3)))
		Expect(histogram.Count(6)).To(Equal(uint64(2)))
		Expect(histogram.Count(-6)).To(Equal(uint64(1)))
		Expect(histogram.Count(0)).To(Equal(uint64(0)))

		probs := histogram.Probabilities()
		Expect(probs).To(HaveLen(21))
		Expect(probs[16]).To(BeNumerically("~", 2.0/3.0, 1e-12))
	})

	It("should panic on out-of-range differences", func() {
		Expect(func() { histogram.Count(11) }).To(Panic())
		Expect(func() { histogram.Count(-11) }).To(Panic())
	})

	It("should return nil probabilities before any observation", func() {
		Expect(histogram.Probabilities()).To(BeNil())
	})

	It("should ignore observations before the equilibration time", func() {
		histogram = MakeDeltaHistogramBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			WithSites(10).
			WithEquilibration(5.0).
			Build()

		region.now = 1.0
		histogram.Func(afterTransition())
		Expect(histogram.Total()).To(Equal(uint64(0)))

		region.now = 6.0
		histogram.Func(afterTransition())
		Expect(histogram.Total()).To(Equal(uint64(1)))
	})
})
