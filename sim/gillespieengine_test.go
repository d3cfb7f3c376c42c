package sim

import (
	"math/rand"
	"sync"

	gomock "go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chromlab/nucleosim/chromatin"
	"github.com/chromlab/nucleosim/rates"
)

type hookCtxAtPos struct {
	pos *HookPos
}

func (m hookCtxAtPos) Matches(x any) bool {
	ctx, ok := x.(HookCtx)
	return ok && ctx.Pos == m.pos
}

func (m hookCtxAtPos) String() string {
	return "hook ctx at " + m.pos.Name
}

func symmetricModel(f float64) *rates.Model {
	return rates.MakeBuilder().
		WithBasal(rates.SymmetricBasal(1.0 / 3.0)).
		WithFeedback(f).
		Build()
}

var _ = Describe("GillespieEngine", func() {
	var mockCtrl *gomock.Controller

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should panic on missing collaborators", func() {
		arr := chromatin.NewStateArray(10, chromatin.StateU)
		model := symmetricModel(1.0)
		rng := rand.New(rand.NewSource(1))

		Expect(func() { NewGillespieEngine(nil, model, rng) }).To(Panic())
		Expect(func() { NewGillespieEngine(arr, nil, rng) }).To(Panic())
		Expect(func() { NewGillespieEngine(arr, model, nil) }).To(Panic())
	})

	It("should panic without a stopping condition", func() {
		arr := chromatin.NewStateArray(10, chromatin.StateU)
		engine := NewGillespieEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(1)))

		Expect(func() { _, _, _ = engine.Next() }).To(Panic())
	})

	It("should produce identical transition sequences for equal seeds", func() {
		run := func() []Transition {
			arr := chromatin.NewStateArray(20, chromatin.StateU)
			engine := NewGillespieEngine(
				arr, symmetricModel(2.0), rand.New(rand.NewSource(42))).
				WithMaxTransitions(200)

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

	It("should advance time strictly monotonically", func() {
		arr := chromatin.NewStateArray(20, chromatin.StateU)
		engine := NewGillespieEngine(
			arr, symmetricModel(2.0), rand.New(rand.NewSource(7))).
			WithMaxTransitions(500)

		last := VTimeInSec(0)
		for {
			trans, ok, err := engine.Next()
			Expect(err).ToNot(HaveOccurred())
			if !ok {
				break
			}

			Expect(trans.Time).To(BeNumerically(">", last))
			last = trans.Time
		}

		Expect(engine.CurrentTime()).To(Equal(last))
	})

	It("should conserve the total nucleosome count", func() {
		arr := chromatin.NewStateArray(30, chromatin.StateU)
		engine := NewGillespieEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(3))).
			WithMaxTransitions(300)

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

	It("should invoke hooks before and after each transition", func() {
		arr := chromatin.NewStateArray(10, chromatin.StateU)
		engine := NewGillespieEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(5))).
			WithMaxTransitions(1)

		hook := NewMockHook(mockCtrl)
		before := hook.EXPECT().
			Func(hookCtxAtPos{HookPosBeforeTransition})
		hook.EXPECT().
			Func(hookCtxAtPos{HookPosAfterTransition}).
			After(before)

		engine.AcceptHook(hook)

		Expect(engine.Run()).To(Succeed())
	})

	It("should stop at the horizon", func() {
		arr := chromatin.NewStateArray(10, chromatin.StateU)
		engine := NewGillespieEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(11))).
			WithHorizon(5.0)

		Expect(engine.Run()).To(Succeed())

		result := engine.Result()
		Expect(result.EndTime).To(Equal(VTimeInSec(5.0)))
		Expect(result.Absorbed).To(BeFalse())
	})

	It("should stop after the configured number of transitions", func() {
		arr := chromatin.NewStateArray(10, chromatin.StateU)
		engine := NewGillespieEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(13))).
			WithMaxTransitions(50)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.Result().NumTransitions).To(Equal(uint64(50)))
	})

	It("should report absorption as a normal terminal condition", func() {
		// No noise and modification-only recruitment with no
		// modified nucleosome: the total rate is zero from the start.
		model := rates.MakeBuilder().
			WithBasal(rates.SymmetricBasal(0)).
			WithFeedback(3.0).
			WithTopology(rates.RecruitModificationOnly()).
			Build()
		arr := chromatin.NewStateArray(10, chromatin.StateU)
		engine := NewGillespieEngine(
			arr, model, rand.New(rand.NewSource(17))).
			WithHorizon(100)

		Expect(engine.Run()).To(Succeed())

		result := engine.Result()
		Expect(result.Absorbed).To(BeTrue())
		Expect(result.NumTransitions).To(Equal(uint64(0)))
	})

	It("should serve counts from another goroutine during a run", func() {
		arr := chromatin.NewStateArray(30, chromatin.StateU)
		engine := NewGillespieEngine(
			arr, symmetricModel(2.0), rand.New(rand.NewSource(23))).
			WithMaxTransitions(20000)

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

	It("should call run end handlers once the run finishes", func() {
		arr := chromatin.NewStateArray(10, chromatin.StateU)
		engine := NewGillespieEngine(
			arr, symmetricModel(1.0), rand.New(rand.NewSource(19))).
			WithHorizon(1.0)

		handler := &recordingEndHandler{}
		engine.RegisterRunEndHandler(handler)

		Expect(engine.Run()).To(Succeed())
		Expect(handler.calls).To(Equal(1))
		Expect(handler.now).To(Equal(VTimeInSec(1.0)))
	})
})

type recordingEndHandler struct {
	calls int
	now   VTimeInSec
}

func (h *recordingEndHandler) Handle(now VTimeInSec) {
	h.calls++
	h.now = now
}
