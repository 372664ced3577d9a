package tracing

import (
	"sync"

	"github.com/sarchlab/obi/datarecording"
	"github.com/sarchlab/obi/sim"
)

// DBTracer keeps the tasks in flight and hands every finished task, with its
// steps and time stamps, to a TaskWriter.
type DBTracer struct {
	lock       sync.Mutex
	timeTeller sim.TimeTeller
	writer     TaskWriter

	tracingTasks map[string]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(timeTeller sim.TimeTeller, writer TaskWriter) *DBTracer {
	return &DBTracer{
		timeTeller:   timeTeller,
		writer:       writer,
		tracingTasks: make(map[string]Task),
	}
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	t.tracingTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask records a milestone of a task.
func (t *DBTracer) StepTask(task Task) {
	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	for _, step := range task.Steps {
		step.Time = now
		original.Steps = append(original.Steps, step)
	}

	t.tracingTasks[task.ID] = original
}

// EndTask marks the end of a task and writes it.
func (t *DBTracer) EndTask(task Task) {
	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	original, ok := t.tracingTasks[task.ID]
	if ok {
		delete(t.tracingTasks, task.ID)
	}
	t.lock.Unlock()

	if !ok {
		return
	}

	original.EndTime = now
	t.writer.Write(original)
}

// Terminate writes the tasks that never ended, with the current time as the
// end time, and flushes the writer.
func (t *DBTracer) Terminate() {
	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	tasks := t.tracingTasks
	t.tracingTasks = make(map[string]Task)
	t.lock.Unlock()

	for _, task := range tasks {
		task.EndTime = now
		t.writer.Write(task)
	}

	t.writer.Flush()
}

type taskTableEntry struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime uint64
	EndTime   uint64
}

type stepTableEntry struct {
	TaskID string
	Time   uint64
	What   string
}

// RecorderWriter stores tasks and their steps in two tables of a data
// recorder.
type RecorderWriter struct {
	recorder  datarecording.DataRecorder
	taskTable string
	stepTable string
}

// NewRecorderWriter creates the tables <prefix>_task and <prefix>_step.
func NewRecorderWriter(
	recorder datarecording.DataRecorder,
	prefix string,
) *RecorderWriter {
	w := &RecorderWriter{
		recorder:  recorder,
		taskTable: prefix + "_task",
		stepTable: prefix + "_step",
	}

	recorder.CreateTable(w.taskTable, taskTableEntry{})
	recorder.CreateTable(w.stepTable, stepTableEntry{})

	return w
}

// Write inserts the task and its steps.
func (w *RecorderWriter) Write(task Task) {
	w.recorder.InsertData(w.taskTable, taskTableEntry{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Where,
		StartTime: uint64(task.StartTime),
		EndTime:   uint64(task.EndTime),
	})

	for _, step := range task.Steps {
		w.recorder.InsertData(w.stepTable, stepTableEntry{
			TaskID: task.ID,
			Time:   uint64(step.Time),
			What:   step.What,
		})
	}
}

// Flush flushes the recorder.
func (w *RecorderWriter) Flush() {
	w.recorder.Flush()
}
