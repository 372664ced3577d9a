package monitor

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
)

var _ = Describe("Comp", func() {
	var (
		clock *sim.Clock
		bus   *obi.Bus
		comp  *Comp
	)

	request := func(we bool, addr, wdata, id uint64) {
		bus.Req.Force(1)
		bus.We.Force(0)
		if we {
			bus.We.Force(1)
		}
		bus.Addr.Force(addr)
		bus.BE.Force(0xf)
		bus.WData.Force(wdata)
		bus.AID.Force(id)
	}

	respond := func(rdata, id uint64, err bool) {
		bus.Req.Force(0)
		bus.RValid.Force(1)
		bus.RData.Force(rdata)
		bus.RID.Force(id)
		bus.Err.Force(0)
		if err {
			bus.Err.Force(1)
		}
	}

	BeforeEach(func() {
		clock = sim.NewClock("Clk", sim.NewSerialEngine())
		bus = obi.MustNewBus("Bus", obi.DefaultWidths())
		bus.Register(clock)

		var err error
		comp, err = MakeBuilder().WithBus(bus).WithClock(clock).Build("Monitor")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should need a bus and a clock", func() {
		_, err := MakeBuilder().WithClock(clock).Build("Monitor")
		Expect(err).To(HaveOccurred())

		_, err = MakeBuilder().WithBus(bus).Build("Monitor")
		Expect(err).To(HaveOccurred())
	})

	It("should pair a request with its response", func() {
		request(true, 0x10, 0x87654321, 3)
		Expect(clock.RunCycles(1)).To(Succeed())
		Expect(comp.Len()).To(BeZero())

		respond(0, 3, false)
		bus.RReady.Force(1)
		Expect(clock.RunCycles(1)).To(Succeed())

		t, ok := comp.TryRecv()
		Expect(ok).To(BeTrue())
		Expect(t).To(Equal(Transaction{
			Cycle:  2,
			Addr:   0x10,
			We:     true,
			BE:     0xf,
			WData:  []byte{0x21, 0x43, 0x65, 0x87},
			AID:    3,
			RValid: true,
			RData:  []byte{0, 0, 0, 0},
			Err:    false,
			RID:    3,
		}))

		_, ok = comp.TryRecv()
		Expect(ok).To(BeFalse())
	})

	It("should catch a response in the same cycle as the request", func() {
		request(false, 0x4, 0, 1)
		bus.RValid.Force(1)
		bus.RData.Force(0xab)
		bus.RReady.Force(1)
		Expect(clock.RunCycles(1)).To(Succeed())

		t, ok := comp.TryRecv()
		Expect(ok).To(BeTrue())
		Expect(t.Addr).To(Equal(uint64(0x4)))
		Expect(t.RData).To(Equal([]byte{0xab, 0, 0, 0}))
	})

	It("should ignore responses without a request", func() {
		respond(0x1, 0, false)
		bus.RReady.Force(1)
		Expect(clock.RunCycles(3)).To(Succeed())

		Expect(comp.Len()).To(BeZero())
	})

	It("should queue a held response every cycle until rready", func() {
		request(false, 0x8, 0, 2)
		Expect(clock.RunCycles(1)).To(Succeed())

		respond(0x55, 2, true)
		bus.RReady.Force(0)
		Expect(clock.RunCycles(3)).To(Succeed())
		Expect(comp.Len()).To(Equal(3))

		bus.RReady.Force(1)
		Expect(clock.RunCycles(1)).To(Succeed())
		Expect(comp.Len()).To(Equal(4))

		bus.RValid.Force(0)
		Expect(clock.RunCycles(2)).To(Succeed())
		Expect(comp.Len()).To(Equal(4))

		t, _ := comp.TryRecv()
		Expect(t.Err).To(BeTrue())
		Expect(obi.LittleEndianUint(t.RData)).To(Equal(uint64(0x55)))
	})

	It("should not observe while stopped", func() {
		comp.Stop()

		request(false, 0x8, 0, 2)
		Expect(clock.RunCycles(1)).To(Succeed())
		respond(0x55, 2, false)
		bus.RReady.Force(1)
		Expect(clock.RunCycles(1)).To(Succeed())
		Expect(comp.Len()).To(BeZero())

		comp.Start()
		bus.RValid.Force(0)
		request(false, 0xc, 0, 3)
		Expect(clock.RunCycles(1)).To(Succeed())
		respond(0x66, 3, false)
		Expect(clock.RunCycles(1)).To(Succeed())

		t, ok := comp.TryRecv()
		Expect(ok).To(BeTrue())
		Expect(t.Addr).To(Equal(uint64(0xc)))
	})

	It("should build stopped", func() {
		other, err := MakeBuilder().
			WithBus(bus).
			WithClock(clock).
			Stopped().
			Build("Stopped")
		Expect(err).NotTo(HaveOccurred())

		request(false, 0x8, 0, 2)
		bus.RValid.Force(1)
		bus.RReady.Force(1)
		Expect(clock.RunCycles(1)).To(Succeed())

		Expect(other.Len()).To(BeZero())
		Expect(comp.Len()).To(Equal(1))
	})

	It("should invoke hooks for every transaction", func() {
		var seen []Transaction
		comp.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			Expect(ctx.Pos).To(Equal(HookPosTransaction))
			seen = append(seen, ctx.Item.(Transaction))
		}))

		request(true, 0x0, 0x1, 1)
		bus.RValid.Force(1)
		bus.RReady.Force(1)
		Expect(clock.RunCycles(1)).To(Succeed())

		Expect(seen).To(HaveLen(1))
		Expect(seen[0].We).To(BeTrue())
	})

	It("should wait for transactions", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		got := make(chan Transaction, 1)
		go func() {
			defer GinkgoRecover()

			t, err := comp.Recv(ctx)
			Expect(err).NotTo(HaveOccurred())
			got <- t
		}()

		request(false, 0x18, 0, 4)
		bus.RValid.Force(1)
		bus.RReady.Force(1)
		Expect(clock.RunCycles(1)).To(Succeed())

		var t Transaction
		Eventually(got).Should(Receive(&t))
		Expect(t.Addr).To(Equal(uint64(0x18)))
	})

	It("should give up waiting when the context ends", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := comp.Recv(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Transaction", func() {
	It("should format", func() {
		t := Transaction{
			Addr: 0x10, We: true, BE: 0xf, WData: []byte{0x34, 0x12, 0, 0},
			AID: 1, RValid: true, RID: 1,
		}

		Expect(t.String()).To(Equal(
			"ObiTransaction(addr=0x00000010, we=true, be=0xf, wdata=0x00001234, " +
				"aid=1, rvalid=true, rdata=0x0, err=false, rid=1)"))
	})
})
