package tracing

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// A TaskWriter stores finished tasks.
type TaskWriter interface {
	Write(task Task)
	Flush()
}

// CSVTraceWriter is a task writer that can store the tasks into a CSV file.
type CSVTraceWriter struct {
	path string
	out  io.Writer
	file *os.File

	tasks      []Task
	bufferSize int
}

// NewCSVTraceWriter creates a writer for the file <path>.csv. An empty path
// gets a random name.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// NewCSVTraceWriterTo creates a writer that writes to out. Init is not needed.
func NewCSVTraceWriterTo(out io.Writer) *CSVTraceWriter {
	w := &CSVTraceWriter{
		out:        out,
		bufferSize: 1000,
	}
	w.writeHeader()

	return w
}

// Init creates the tracing csv file. It fails if the file already exists.
// The buffered tasks are flushed when the program exits through atexit.
func (t *CSVTraceWriter) Init() error {
	if t.path == "" {
		t.path = "obi_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	t.file = file
	t.out = file
	t.writeHeader()

	atexit.Register(func() {
		t.Flush()
		_ = t.file.Close()
	})

	return nil
}

func (t *CSVTraceWriter) writeHeader() {
	fmt.Fprintf(t.out, "ID, ParentID, Kind, What, Where, Start, End\n")
}

// Write buffers a task.
func (t *CSVTraceWriter) Write(task Task) {
	t.tasks = append(t.tasks, task)
	if len(t.tasks) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered tasks.
func (t *CSVTraceWriter) Flush() {
	for _, task := range t.tasks {
		fmt.Fprintf(t.out, "%s, %s, %s, %s, %s, %d, %d\n",
			task.ID,
			task.ParentID,
			task.Kind,
			task.What,
			task.Where,
			task.StartTime,
			task.EndTime,
		)
	}

	t.tasks = nil
}
