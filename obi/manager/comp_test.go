package manager

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
	"github.com/sarchlab/obi/tracing"
)

// grantOnly grants every request one cycle after it is raised and never
// answers.
type grantOnly struct {
	bus *obi.Bus
}

func (g *grantOnly) Name() string { return "GrantOnly" }

func (g *grantOnly) Tick(_ uint64) error {
	g.bus.Gnt.SetBool(g.bus.Req.Bool())
	return nil
}

// respondOnce grants and answers the first request with the given flags.
type respondOnce struct {
	bus   *obi.Bus
	rdata uint64
	err   bool
	state int
}

func (r *respondOnce) Name() string { return "RespondOnce" }

func (r *respondOnce) Tick(_ uint64) error {
	r.bus.Gnt.Set(0)

	switch r.state {
	case 0:
		if r.bus.Req.Bool() {
			r.bus.Gnt.Set(1)
			r.bus.RValid.Set(1)
			r.bus.RData.Set(r.rdata)
			r.bus.Err.SetBool(r.err)
			r.bus.RID.Set(r.bus.AID.Uint64())
			r.state = 1
		}
	case 1:
		r.bus.RValid.Set(0)
		r.bus.Err.Set(0)
		r.state = 2
	}

	return nil
}

var _ = Describe("Comp", func() {
	var (
		b    *bench
		comp *Comp
		logs *observer.ObservedLogs
	)

	build := func(spec Spec) {
		var core zapcore.Core
		core, logs = observer.New(zapcore.DebugLevel)

		var err error
		comp, err = MakeBuilder().
			WithBus(b.bus).
			WithClock(b.clock).
			WithSpec(spec).
			WithLogger(zap.New(core)).
			Build("Manager")
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		b = newBench(obi.DefaultWidths())
	})

	AfterEach(func() {
		_ = b.stop()
	})

	It("should fail to build without a bus or a clock", func() {
		_, err := MakeBuilder().WithClock(b.clock).Build("Manager")
		Expect(err).To(HaveOccurred())

		_, err = MakeBuilder().WithBus(b.bus).Build("Manager")
		Expect(err).To(HaveOccurred())

		_, err = MakeBuilder().
			WithBus(b.bus).
			WithClock(b.clock).
			WithSpec(Spec{PendingCapacity: -1}).
			Build("Manager")
		Expect(err).To(HaveOccurred())
	})

	It("should start with idle outputs and rready high", func() {
		b.bus.Req.Force(1)
		build(Defaults())

		Expect(b.bus.Req.Bool()).To(BeFalse())
		Expect(b.bus.RReady.Bool()).To(BeTrue())
		Expect(comp.Idle()).To(BeTrue())
		Expect(logs.FilterMessage("OBI Manager configuration:").Len()).To(Equal(1))
		Expect(logs.All()[0].LoggerName).To(Equal("obi_manager.Bus"))
	})

	It("should assign increasing ids", func() {
		build(Defaults())

		id1, err := comp.ReadNoWait(0x0)
		Expect(err).NotTo(HaveOccurred())
		id2, err := comp.ReadNoWait(0x10, WithLength(8))
		Expect(err).NotTo(HaveOccurred())
		id3, err := comp.ReadNoWait(0x20)
		Expect(err).NotTo(HaveOccurred())

		Expect(id1).To(Equal(uint64(1)))
		Expect(id2).To(Equal(uint64(3)))
		Expect(id3).To(Equal(uint64(4)))
		Expect(comp.CountPending()).To(Equal(4))
		Expect(comp.EmptyPending()).To(BeFalse())
		Expect(comp.Idle()).To(BeFalse())
	})

	It("should split writes into beats", func() {
		build(Defaults())

		Expect(comp.WriteNoWait(0x100, Bytes{1, 2, 3, 4, 5, 6}, WithStrobe(0x13))).
			To(Succeed())

		Expect(comp.CountPending()).To(Equal(2))

		first := comp.pending.Pop().(*beat)
		second := comp.pending.Pop().(*beat)

		Expect(first.addr).To(Equal(uint64(0x100)))
		Expect(first.data).To(Equal([]byte{1, 2, 3, 4}))
		Expect(first.strobe).To(Equal(uint64(0x3)))
		Expect(second.addr).To(Equal(uint64(0x104)))
		Expect(second.data).To(Equal([]byte{5, 6, 0, 0}))
		Expect(second.strobe).To(Equal(uint64(0x3)))
	})

	It("should slice the expected data of reads", func() {
		build(Defaults())

		_, err := comp.ReadNoWait(0x0, WithExpected(Uint(0x1122334455)))
		Expect(err).NotTo(HaveOccurred())

		Expect(comp.CountPending()).To(Equal(2))
		Expect(comp.pending.Pop().(*beat).expected).
			To(Equal([]byte{0x55, 0x44, 0x33, 0x22}))
		Expect(comp.pending.Pop().(*beat).expected).
			To(Equal([]byte{0x11, 0, 0, 0}))
	})

	It("should reject calls that do not fit in the pending queue", func() {
		build(Spec{TimeoutCycles: 10, PendingCapacity: 2})

		err := comp.WriteNoWait(0x0, Bytes(make([]byte, 12)))
		Expect(err).To(MatchError(ErrQueueFull))
		Expect(comp.CountPending()).To(BeZero())

		Expect(comp.WriteNoWait(0x0, Bytes(make([]byte, 8)))).To(Succeed())
	})

	It("should clear the queues", func() {
		build(Defaults())

		Expect(comp.WriteNoWait(0x0, Uint(1))).To(Succeed())
		_, err := comp.ReadNoWait(0x4)
		Expect(err).NotTo(HaveOccurred())

		comp.Clear()

		Expect(comp.EmptyPending()).To(BeTrue())
		Expect(comp.EmptyCompleted()).To(BeTrue())
	})

	It("should time out waiting for gnt", func() {
		build(Spec{TimeoutCycles: 5})

		b.start()
		err := comp.Write(testContext(), 0x40, Uint(0xab))

		Expect(err).To(MatchError(obi.ErrProtocolTimeout))

		var te *obi.TimeoutError
		Expect(errors.As(err, &te)).To(BeTrue())
		Expect(te.Phase).To(Equal(obi.PhaseGrant))
		Expect(te.Cycles).To(Equal(5))
		Expect(te.Addr).To(Equal(uint64(0x40)))
		Expect(err.Error()).To(Equal(
			"Request timeout: No gnt after 5 cycles (addr=0x00000040)"))

		Expect(b.stop()).To(MatchError(obi.ErrProtocolTimeout))
		Expect(comp.Err()).To(MatchError(obi.ErrProtocolTimeout))
		Expect(comp.WriteNoWait(0x0, Uint(1))).To(MatchError(obi.ErrProtocolTimeout))
	})

	It("should hold the request until gnt arrives", func() {
		build(Spec{TimeoutCycles: 5})
		Expect(comp.WriteNoWait(0x8, Uint(0x55))).To(Succeed())

		Expect(b.clock.RunCycles(3)).To(Succeed())

		Expect(b.bus.Req.Bool()).To(BeTrue())
		Expect(b.bus.We.Bool()).To(BeTrue())
		Expect(b.bus.Addr.Uint64()).To(Equal(uint64(0x8)))
		Expect(b.bus.WData.Uint64()).To(Equal(uint64(0x55)))
		Expect(b.bus.BE.Uint64()).To(Equal(uint64(0xf)))
		Expect(b.bus.AID.Uint64()).To(Equal(uint64(1)))
	})

	It("should wait forever with the timeout disabled", func() {
		build(Spec{TimeoutCycles: -1})
		Expect(comp.WriteNoWait(0x8, Uint(0x55))).To(Succeed())

		Expect(b.clock.RunCycles(2000)).To(Succeed())
		Expect(comp.Err()).NotTo(HaveOccurred())
		Expect(b.bus.Req.Bool()).To(BeTrue())
	})

	It("should time out waiting for rvalid", func() {
		build(Spec{TimeoutCycles: 4})
		b.clock.RegisterTicker(&grantOnly{bus: b.bus})

		b.start()
		_, err := comp.Read(testContext(), 0x20)

		var te *obi.TimeoutError
		Expect(errors.As(err, &te)).To(BeTrue())
		Expect(te.Phase).To(Equal(obi.PhaseResponse))
		Expect(te.Cycles).To(Equal(4))
		Expect(err.Error()).To(ContainSubstring("Response timeout: No rvalid"))
	})

	It("should deassert the request after gnt", func() {
		build(Defaults())
		b.clock.RegisterTicker(&grantOnly{bus: b.bus})
		Expect(comp.WriteNoWait(0x8, Uint(0x55))).To(Succeed())

		Expect(b.clock.RunCycles(3)).To(Succeed())

		Expect(b.bus.Req.Bool()).To(BeFalse())
		Expect(b.bus.We.Bool()).To(BeFalse())
		Expect(b.bus.Addr.Uint64()).To(BeZero())
		Expect(comp.state).To(Equal(stateResponseWait))
	})

	It("should fail on an unexpected err flag", func() {
		build(Defaults())
		b.clock.RegisterTicker(&respondOnce{bus: b.bus, err: true})

		b.start()
		err := comp.Write(testContext(), 0x4, Uint(1))

		Expect(err).To(MatchError(obi.ErrUnexpectedErrorFlag))
		Expect(err.Error()).To(Equal(
			"ERR: incorrect error received 1 (expected 0) at addr 0x00000004"))
		Expect(comp.ExceptionOccurred()).To(BeTrue())
	})

	It("should only record an unexpected err flag with exceptions disabled", func() {
		build(Defaults())
		comp.SetExceptionsEnabled(false)
		b.clock.RegisterTicker(&respondOnce{bus: b.bus, err: true, rdata: 0x77})

		b.start()
		data, err := comp.Read(testContext(), 0x4)

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{0x77, 0, 0, 0}))
		Expect(comp.ExceptionOccurred()).To(BeTrue())
		Expect(logs.FilterLevelExact(zapcore.WarnLevel).Len()).To(Equal(1))
	})

	It("should accept an expected err flag", func() {
		build(Defaults())
		b.clock.RegisterTicker(&respondOnce{bus: b.bus, err: true})

		b.start()
		Expect(comp.Write(testContext(), 0x4, Uint(1), ExpectError())).
			To(Succeed())
		Expect(comp.ExceptionOccurred()).To(BeFalse())
	})

	It("should fail when an expected err flag is missing", func() {
		build(Defaults())
		b.clock.RegisterTicker(&respondOnce{bus: b.bus})

		b.start()
		err := comp.Write(testContext(), 0x4, Uint(1), ExpectError())

		var fe *obi.ErrorFlagError
		Expect(errors.As(err, &fe)).To(BeTrue())
		Expect(fe.Got).To(BeFalse())
		Expect(fe.Expected).To(BeTrue())
	})

	It("should compare read data with the expected value", func() {
		build(Defaults())
		b.clock.RegisterTicker(&respondOnce{bus: b.bus, rdata: 0x1234})

		b.start()
		_, err := comp.Read(testContext(), 0x10, WithExpected(Uint(0x4321)))

		Expect(err).To(MatchError(obi.ErrDataMismatch))
		Expect(err.Error()).To(Equal(
			"Expected 0x00004321 doesn't match returned 0x00001234 (addr=0x00000010)"))
	})

	It("should reject addresses that do not fit", func() {
		w := obi.DefaultWidths()
		w.Addr = 8
		b = newBench(w)
		build(Defaults())

		b.start()
		err := comp.Write(testContext(), 0x100, Uint(1))

		Expect(err).To(MatchError(obi.ErrAddressOutOfRange))
	})

	It("should restart after a failure", func() {
		build(Spec{TimeoutCycles: 3})

		b.start()
		Expect(comp.Write(testContext(), 0x0, Uint(1))).
			To(MatchError(obi.ErrProtocolTimeout))
		_ = b.stop()

		b.clock.RegisterTicker(&respondOnce{bus: b.bus})
		comp.Restart()
		Expect(comp.Err()).NotTo(HaveOccurred())

		b.start()
		Expect(comp.Write(testContext(), 0x0, Uint(1))).To(Succeed())
	})

	It("should trace every beat", func() {
		build(Defaults())
		b.clock.RegisterTicker(&respondOnce{bus: b.bus})

		var positions []*sim.HookPos
		var tasks []tracing.Task
		comp.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			positions = append(positions, ctx.Pos)
			tasks = append(tasks, ctx.Item.(tracing.Task))
		}))

		b.start()
		Expect(comp.Write(testContext(), 0x8, Uint(3))).To(Succeed())
		Expect(b.stop()).To(Succeed())

		Expect(positions).To(Equal([]*sim.HookPos{
			tracing.HookPosTaskStart,
			tracing.HookPosTaskStep,
			tracing.HookPosTaskEnd,
		}))
		Expect(tasks[0].Kind).To(Equal("req_out"))
		Expect(tasks[0].What).To(Equal("write"))
		Expect(tasks[0].Where).To(Equal("Manager"))
		Expect(tasks[0].Detail).To(Equal(TaskDetail{Addr: 0x8, ID: 1, Write: true}))
		Expect(tasks[1].Steps[0].What).To(Equal("granted"))
		Expect(tasks[2].ID).To(Equal(tasks[0].ID))
	})

	It("should log accesses at info level", func() {
		build(Defaults())
		b.clock.RegisterTicker(&respondOnce{bus: b.bus, rdata: 0xbeef})

		b.start()
		_, err := comp.Read(testContext(), 0x10)
		Expect(err).NotTo(HaveOccurred())

		Expect(logs.FilterMessage("Read addr: 0x00000010").Len()).To(Equal(1))
		Expect(logs.FilterMessage("Value read: 0x0000beef").Len()).To(Equal(1))
	})
})
