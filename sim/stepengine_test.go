package sim

import (
	"math/rand"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chromlab/nucleosim/chromatin"
	"github.com/chromlab/nucleosim/kernel"
	"github.com/chromlab/nucleosim/rates"
)

var _ = Describe("StepEngine", func() {
	It("should panic without a stopping condition", func() {
		arr := chromatin.NewStateArray(10, chromatin.StateU)
		engine := NewStepEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(1)))

		Expect(func() { _, _, _ = engine.Next() }).To(Panic())
	})

	It("should produce identical transition sequences for equal seeds", func() {
		run := func() []Transition {
			arr := chromatin.NewStateArray(20, chromatin.StateU)
			engine := NewStepEngine(
				arr, symmetricModel(2.0), rand.New(rand.NewSource(42))).
				WithMaxSteps(2000)

			var transitions []Transition
			for {
				trans, ok, err := engine.Next()
				Expect(err).ToNot(HaveOccurred())
				if !ok {
					break
				}
				transitions = append(transitions, trans)
			}
			return transitions
		}

		Expect(run()).To(Equal(run()))
	})

	It("should advance time by 1/N per attempted step", func() {
		n := 10
		arr := chromatin.NewStateArray(n, chromatin.StateU)
		engine := NewStepEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(3))).
			WithMaxSteps(500)

		Expect(engine.Run()).To(Succeed())
		Expect(float64(engine.CurrentTime())).To(
			BeNumerically("~", 500.0/float64(n), 1e-9))
	})

	It("should conserve the total nucleosome count", func() {
		arr := chromatin.NewStateArray(30, chromatin.StateU)
		engine := NewStepEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(5))).
			WithMaxSteps(3000)

		for {
			_, ok, err := engine.Next()
			Expect(err).ToNot(HaveOccurred())
			if !ok {
				break
			}

			m, u, a := engine.Counts()
			Expect(m + u + a).To(Equal(30))
		}
	})

	It("should convert by noise alone when feedback is zero", func() {
		arr := chromatin.NewStateArray(20, chromatin.StateU)
		engine := NewStepEngine(
			arr, symmetricModel(0), rand.New(rand.NewSource(7))).
			WithMaxSteps(1000)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.Result().NumTransitions).To(
			BeNumerically(">", uint64(0)))
	})

	It("should stop at the horizon", func() {
		arr := chromatin.NewStateArray(10, chromatin.StateU)
		engine := NewStepEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(9))).
			WithHorizon(50)

		Expect(engine.Run()).To(Succeed())
		Expect(float64(engine.CurrentTime())).To(
			BeNumerically("~", 50.0, 0.2))
	})

	It("should serve counts from another goroutine during a run", func() {
		arr := chromatin.NewStateArray(30, chromatin.StateU)
		engine := NewStepEngine(
			arr, symmetricModel(2.0), rand.New(rand.NewSource(11))).
			WithMaxSteps(50000)

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
				}

				m, u, a := engine.Counts()
				Expect(m + u + a).To(Equal(30))
			}
		}()

		Expect(engine.Run()).To(Succeed())
		close(stop)
		wg.Wait()
	})
})

var _ = Describe("Nearest-neighbor spreading", func() {
	// With no basal conversion, modification recruitment only, and a
	// window-1 kernel on a ring, the M state can only grow at the
	// edges of the seeded block. Every new M site must be adjacent to
	// an existing one, and the run ends by absorption with all sites
	// methylated.
	It("should spread M only to adjacent positions", func() {
		n := 20
		k := kernel.MakeBuilder().
			WithKind(kernel.NearestNeighbor).
			WithWindow(1).
			Build()
		model := rates.MakeBuilder().
			WithBasal(rates.SymmetricBasal(0)).
			WithFeedback(1.0).
			WithTopology(rates.RecruitModificationOnly()).
			WithKernel(k).
			Build()

		arr := chromatin.NewStateArray(n, chromatin.StateU)
		arr.Set(10, chromatin.StateM)

		engine := NewGillespieEngine(
			arr, model, rand.New(rand.NewSource(21))).
			WithHorizon(1e6)

		isM := make([]bool, n)
		isM[10] = true

		for {
			trans, ok, err := engine.Next()
			Expect(err).ToNot(HaveOccurred())
			if !ok {
				break
			}

			Expect(trans.To).To(Equal(chromatin.StateM))

			left := (trans.Index - 1 + n) % n
			right := (trans.Index + 1) % n
			Expect(isM[left] || isM[right]).To(BeTrue(),
				"M appeared at %d with no adjacent M", trans.Index)

			isM[trans.Index] = true
		}

		result := engine.Result()
		Expect(result.Absorbed).To(BeTrue())
		Expect(result.NumTransitions).To(Equal(uint64(n - 1)))
		Expect(arr.Count(chromatin.StateM)).To(Equal(n))
	})
})
