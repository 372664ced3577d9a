package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	mockEvent := func(t VTimeInCycle, h Handler, secondary bool) *MockEvent {
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(t).AnyTimes()
		evt.EXPECT().Handler().Return(h).AnyTimes()
		evt.EXPECT().IsSecondary().Return(secondary).AnyTimes()

		return evt
	}

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := mockEvent(4, handler1, false)
		evt2 := mockEvent(2, handler2, false)
		evt3 := mockEvent(3, handler1, false)
		evt4 := mockEvent(5, handler1, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2).DoAndReturn(func(Event) error {
			engine.Schedule(evt3)
			engine.Schedule(evt4)

			return nil
		})
		handleEvt3 := handler1.EXPECT().Handle(evt3).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle(evt1).After(handleEvt3)
		handler1.EXPECT().Handle(evt4).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInCycle(5)))
	})

	It("should consider secondary events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		handler3 := NewMockHandler(mockCtrl)
		evt1 := mockEvent(2, handler1, true)
		evt2 := mockEvent(2, handler2, false)
		evt3 := mockEvent(2, handler3, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2)
		handleEvt3 := handler3.EXPECT().Handle(evt3)
		handler1.EXPECT().Handle(evt1).After(handleEvt2).After(handleEvt3)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should keep the order of events at the same time", func() {
		handler := NewMockHandler(mockCtrl)
		evts := make([]*MockEvent, 5)
		var calls []any

		for i := range evts {
			evts[i] = mockEvent(7, handler, false)
			calls = append(calls, handler.EXPECT().Handle(evts[i]))
			engine.Schedule(evts[i])
		}

		gomock.InOrder(calls...)

		Expect(engine.Run()).To(Succeed())
	})

	It("should stop at the first failing handler", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(1, handler, false)
		evt2 := mockEvent(2, handler, false)
		failure := errors.New("broken")

		handler.EXPECT().Handle(evt1).Return(failure)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		err := engine.Run()
		Expect(err).To(MatchError(failure))
		Expect(err.Error()).To(ContainSubstring("cycle 1"))
	})

	It("should panic when scheduling in the past", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(5, handler, false)
		evt2 := mockEvent(3, handler, false)

		handler.EXPECT().Handle(evt1)
		engine.Schedule(evt1)
		Expect(engine.Run()).To(Succeed())

		Expect(func() { engine.Schedule(evt2) }).To(Panic())
	})

	It("should invoke hooks around events", func() {
		handler := NewMockHandler(mockCtrl)
		evt := mockEvent(1, handler, false)
		handler.EXPECT().Handle(evt)

		var positions []*HookPos
		engine.AcceptHook(HookFunc(func(ctx HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())

		Expect(positions).To(Equal(
			[]*HookPos{HookPosBeforeEvent, HookPosAfterEvent}))
	})

	It("should pause and continue", func() {
		Expect(engine.IsPaused()).To(BeFalse())

		engine.Pause()
		engine.Pause()
		Expect(engine.IsPaused()).To(BeTrue())

		engine.Continue()
		Expect(engine.IsPaused()).To(BeFalse())
	})
})
