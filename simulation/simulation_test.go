package simulation

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type runEntry struct {
	Cycle uint64
}

var _ = Describe("Simulation", func() {
	var (
		mockCtrl   *gomock.Controller
		simulation *Simulation
		comp       *MockTicker
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		var err error
		simulation, err = MakeBuilder().Build()
		Expect(err).ToNot(HaveOccurred())

		comp = NewMockTicker(mockCtrl)
		comp.EXPECT().Name().Return("Comp").AnyTimes()
	})

	AfterEach(func() {
		Expect(simulation.Terminate()).To(Succeed())
	})

	It("should register a component", func() {
		simulation.RegisterComponent(comp)

		Expect(simulation.GetComponentByName("Comp")).To(Equal(comp))
		Expect(simulation.GetComponentByName("Other")).To(BeNil())
		Expect(simulation.Components()).To(HaveLen(1))
	})

	It("should panic when a name is registered twice", func() {
		simulation.RegisterComponent(comp)

		Expect(func() { simulation.RegisterComponent(comp) }).To(Panic())
	})

	It("should have no recorder or monitor by default", func() {
		Expect(simulation.DataRecorder()).To(BeNil())
		Expect(simulation.Monitor()).To(BeNil())
		Expect(simulation.Start()).To(Succeed())
		Expect(simulation.ID()).ToNot(BeEmpty())
	})

	It("should tick registered tickers until the context ends", func() {
		ctx, cancel := context.WithCancel(context.Background())
		simulation.Clock().RegisterTicker(comp)

		comp.EXPECT().Tick(gomock.Any()).DoAndReturn(func(cycle uint64) error {
			if cycle == 3 {
				cancel()
			}

			return nil
		}).MinTimes(3)

		Expect(simulation.Run(ctx)).To(Succeed())
		Expect(simulation.Clock().Cycle()).To(BeNumerically(">=", 3))
		Expect(simulation.Engine().CurrentTime()).To(BeNumerically(">=", 3))
	})

	It("should record into the given file", func() {
		Expect(simulation.Terminate()).To(Succeed())

		output := filepath.Join(GinkgoT().TempDir(), "custom")

		var err error
		simulation, err = MakeBuilder().WithOutputFileName(output).Build()
		Expect(err).ToNot(HaveOccurred())
		Expect(simulation.DataRecorder()).ToNot(BeNil())

		simulation.DataRecorder().CreateTable("run", runEntry{})
		simulation.DataRecorder().InsertData("run", runEntry{Cycle: 1})
		Expect(simulation.Terminate()).To(Succeed())

		_, err = os.Stat(output + ".sqlite3")
		Expect(err).ToNot(HaveOccurred())
	})

	It("should register components with the monitor", func() {
		Expect(simulation.Terminate()).To(Succeed())

		var err error
		simulation, err = MakeBuilder().WithMonitoring().Build()
		Expect(err).ToNot(HaveOccurred())

		simulation.RegisterComponent(comp)
		Expect(simulation.Start()).To(Succeed())

		Expect(simulation.Monitor()).ToNot(BeNil())
		Expect(simulation.Terminate()).To(Succeed())
	})

	It("should refuse monitor options without monitoring", func() {
		Expect(func() { _, _ = MakeBuilder().WithMonitorPort(8080).Build() }).
			To(Panic())
	})
})
