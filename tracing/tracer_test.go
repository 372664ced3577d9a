package tracing

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/obi/sim"
)

type taskRecorder struct {
	started, stepped, ended []Task
}

func (r *taskRecorder) StartTask(t Task) { r.started = append(r.started, t) }
func (r *taskRecorder) StepTask(t Task)  { r.stepped = append(r.stepped, t) }
func (r *taskRecorder) EndTask(t Task)   { r.ended = append(r.ended, t) }

type tracedDomain struct {
	*sim.HookableBase
}

func (d tracedDomain) Name() string { return "Domain" }

var _ = Describe("CollectTrace", func() {
	It("should route hook positions to the tracer", func() {
		domain := tracedDomain{sim.NewHookableBase()}
		tracer := &taskRecorder{}
		CollectTrace(domain, tracer)

		StartTask("1", "", domain, "req_out", "write", nil)
		AddTaskStep("1", domain, "granted")
		EndTask("1", domain)
		domain.InvokeHook(sim.HookCtx{Pos: HookPosTaskEnd, Item: "not a task"})

		Expect(tracer.started).To(HaveLen(1))
		Expect(tracer.started[0].Where).To(Equal("Domain"))
		Expect(tracer.stepped).To(HaveLen(1))
		Expect(tracer.ended).To(HaveLen(1))
	})

	It("should not attach the same tracer twice", func() {
		domain := tracedDomain{sim.NewHookableBase()}
		tracer := &taskRecorder{}
		CollectTrace(domain, tracer)

		Expect(func() { CollectTrace(domain, tracer) }).To(Panic())
	})
})

var _ = Describe("Time tracers", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		now        sim.VTimeInCycle
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		now = 0
		timeTeller.EXPECT().CurrentTime().DoAndReturn(func() sim.VTimeInCycle {
			return now
		}).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should average the task durations", func() {
		t := NewAverageTimeTracer(timeTeller, KindFilter("req_out"))

		now = 10
		t.StartTask(Task{ID: "1", Kind: "req_out"})
		t.StartTask(Task{ID: "2", Kind: "other"})
		now = 14
		t.EndTask(Task{ID: "1"})
		t.EndTask(Task{ID: "2"})

		now = 20
		t.StartTask(Task{ID: "3", Kind: "req_out"})
		t.StepTask(Task{ID: "3"})
		now = 30
		t.EndTask(Task{ID: "3"})

		Expect(t.TotalCount()).To(Equal(uint64(2)))
		Expect(t.AverageTime()).To(BeNumerically("~", 7.0))
	})

	It("should add up the task durations", func() {
		t := NewTotalTimeTracer(timeTeller, AllTasks)

		now = 1
		t.StartTask(Task{ID: "1"})
		now = 2
		t.StartTask(Task{ID: "2"})
		now = 5
		t.EndTask(Task{ID: "1"})
		t.EndTask(Task{ID: "2"})
		t.EndTask(Task{ID: "missing"})

		Expect(t.TotalTime()).To(Equal(sim.VTimeInCycle(7)))
	})

	It("should write finished tasks with their steps", func() {
		var buf bytes.Buffer
		writer := NewCSVTraceWriterTo(&buf)
		t := NewDBTracer(timeTeller, writer)

		now = 3
		t.StartTask(Task{ID: "1", Kind: "req_out", What: "read", Where: "M"})
		now = 4
		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "granted"}}})
		now = 6
		t.EndTask(Task{ID: "1"})

		now = 7
		t.StartTask(Task{ID: "2", Kind: "req_out", What: "write", Where: "M"})
		now = 9
		t.Terminate()

		Expect(buf.String()).To(Equal(
			"ID, ParentID, Kind, What, Where, Start, End\n" +
				"1, , req_out, read, M, 3, 6\n" +
				"2, , req_out, write, M, 7, 9\n"))
	})
})
