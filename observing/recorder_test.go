package observing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chromlab/nucleosim/sim"
)

// fakeRegion stands in for an engine during unit tests. Tests set the
// time and counts directly and fire hooks by hand.
type fakeRegion struct {
	now     sim.VTimeInSec
	m, u, a int
}

func (f *fakeRegion) CurrentTime() sim.VTimeInSec {
	return f.now
}

func (f *fakeRegion) Counts() (m, u, a int) {
	return f.m, f.u, f.a
}

func afterTransition() sim.HookCtx {
	return sim.HookCtx{Pos: sim.HookPosAfterTransition}
}

var _ = Describe("Recorder", func() {
	var (
		region   *fakeRegion
		recorder *Recorder
	)

	BeforeEach(func() {
		region = &fakeRegion{}
	})

	It("should panic on missing collaborators", func() {
		Expect(func() {
			MakeRecorderBuilder().WithStateCounter(region).Build()
		}).To(Panic())
		Expect(func() {
			MakeRecorderBuilder().WithTimeTeller(region).Build()
		}).To(Panic())
		Expect(func() {
			MakeRecorderBuilder().
				WithTimeTeller(region).
				WithStateCounter(region).
				WithStride(0).
				Build()
		}).To(Panic())
	})

	It("should record one sample per transition by default", func() {
		recorder = MakeRecorderBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			Build()

		region.m, region.u, region.a = 3, 5, 2
		region.now = 1.0
		recorder.Func(afterTransition())

		region.m, region.u, region.a = 4, 4, 2
		region.now = 2.0
		recorder.Func(afterTransition())

		Expect(recorder.Samples()).To(Equal([]Sample{
			{Time: 1.0, CountM: 3, CountU: 5, CountA: 2},
			{Time: 2.0, CountM: 4, CountU: 4, CountA: 2},
		}))

		latest, ok := recorder.Latest()
		Expect(ok).To(BeTrue())
		Expect(latest.CountM).To(Equal(4))
	})

	It("should ignore hook positions other than after-transition", func() {
		recorder = MakeRecorderBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			Build()

		recorder.Func(sim.HookCtx{Pos: sim.HookPosBeforeTransition})

		Expect(recorder.Samples()).To(BeEmpty())
	})

	It("should thin the series by the stride", func() {
		recorder = MakeRecorderBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			WithStride(3).
			Build()

		for i := 1; i <= 9; i++ {
			region.now = sim.VTimeInSec(i)
			recorder.Func(afterTransition())
		}

		Expect(recorder.Samples()).To(HaveLen(3))
		Expect(recorder.Samples()[0].Time).To(Equal(sim.VTimeInSec(3)))
		Expect(recorder.Samples()[2].Time).To(Equal(sim.VTimeInSec(9)))
	})

	It("should discard samples before the equilibration time", func() {
		recorder = MakeRecorderBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			WithEquilibration(10.0).
			Build()

		region.now = 5.0
		recorder.Func(afterTransition())
		region.now = 15.0
		recorder.Func(afterTransition())

		Expect(recorder.Samples()).To(HaveLen(1))
		Expect(recorder.Samples()[0].Time).To(Equal(sim.VTimeInSec(15.0)))
	})

	It("should compute the gap score", func() {
		recorder = MakeRecorderBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			Build()

		region.m, region.a = 9, 1
		region.now = 1.0
		recorder.Func(afterTransition())

		region.m, region.a = 1, 9
		region.now = 2.0
		recorder.Func(afterTransition())

		region.m, region.a = 5, 5
		region.now = 3.0
		recorder.Func(afterTransition())

		// (0.8 + 0.8 + 0.0) / 3
		Expect(recorder.GapScore()).To(BeNumerically("~", 0.8/1.5, 1e-12))
	})

	It("should skip gap terms with no marked nucleosome", func() {
		recorder = MakeRecorderBuilder().
			WithTimeTeller(region).
			WithStateCounter(region).
			Build()

		region.m, region.u, region.a = 0, 10, 0
		region.now = 1.0
		recorder.Func(afterTransition())

		region.m, region.u, region.a = 6, 2, 2
		region.now = 2.0
		recorder.Func(afterTransition())

		Expect(recorder.GapScore()).To(BeNumerically("~", 0.5, 1e-12))
	})
})
