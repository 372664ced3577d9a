package tracing

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/obi/datarecording"
	"github.com/sarchlab/obi/sim"
)

type fixedTime struct {
	now sim.VTimeInCycle
}

func (t *fixedTime) CurrentTime() sim.VTimeInCycle {
	return t.now
}

var _ = Describe("DBTracer with a recorder", func() {
	var (
		db         *sql.DB
		timeTeller *fixedTime
		tracer     *DBTracer
	)

	BeforeEach(func() {
		var err error
		db, err = sql.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)
		DeferCleanup(db.Close)

		recorder := datarecording.NewWithDB(db)
		timeTeller = &fixedTime{}
		tracer = NewDBTracer(timeTeller, NewRecorderWriter(recorder, "trace"))
	})

	It("should store tasks and steps", func() {
		timeTeller.now = 2
		tracer.StartTask(Task{ID: "7", Kind: "req_out", What: "write", Where: "M"})
		timeTeller.now = 3
		tracer.StepTask(Task{ID: "7", Steps: []TaskStep{{What: "granted"}}})
		tracer.StepTask(Task{ID: "missing", Steps: []TaskStep{{What: "granted"}}})
		timeTeller.now = 5
		tracer.EndTask(Task{ID: "7"})
		tracer.Terminate()

		var (
			kind, location string
			start, end     int64
		)
		Expect(db.QueryRow(
			"SELECT Kind, Location, StartTime, EndTime FROM trace_task WHERE ID = '7'",
		).Scan(&kind, &location, &start, &end)).To(Succeed())
		Expect(kind).To(Equal("req_out"))
		Expect(location).To(Equal("M"))
		Expect(start).To(Equal(int64(2)))
		Expect(end).To(Equal(int64(5)))

		var (
			what string
			at   int64
		)
		Expect(db.QueryRow(
			"SELECT What, Time FROM trace_step WHERE TaskID = '7'",
		).Scan(&what, &at)).To(Succeed())
		Expect(what).To(Equal("granted"))
		Expect(at).To(Equal(int64(3)))
	})
})
