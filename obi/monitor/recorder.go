package monitor

import (
	"context"

	"github.com/sarchlab/obi/datarecording"
	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
)

// transactionEntry keeps the address as int64 because SQLite integers are
// signed. The data beats are stored as hex strings so that buses wider than
// 64 bits are kept whole.
type transactionEntry struct {
	Monitor string
	Cycle   uint64
	Addr    int64
	We      bool
	BE      uint64
	WData   string
	AID     uint64
	RData   string
	Err     bool
	RID     uint64
}

// RecordingHook stores every transaction of the monitors it is attached to
// in a table of a data recorder.
type RecordingHook struct {
	recorder datarecording.DataRecorder
	table    string
}

// NewRecordingHook creates the table and returns the hook.
func NewRecordingHook(
	recorder datarecording.DataRecorder,
	table string,
) *RecordingHook {
	recorder.CreateTable(table, transactionEntry{})

	return &RecordingHook{
		recorder: recorder,
		table:    table,
	}
}

// Func records a queued transaction.
func (h *RecordingHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosTransaction {
		return
	}

	t := ctx.Item.(Transaction)

	name := ""
	if n, ok := ctx.Domain.(sim.Named); ok {
		name = n.Name()
	}

	h.recorder.InsertData(h.table, transactionEntry{
		Monitor: name,
		Cycle:   t.Cycle,
		Addr:    int64(t.Addr),
		We:      t.We,
		BE:      t.BE,
		WData:   obi.HexString(t.WData),
		AID:     t.AID,
		RData:   obi.HexString(t.RData),
		Err:     t.Err,
		RID:     t.RID,
	})
}

// RecordingSummary counts the transactions stored by a RecordingHook.
type RecordingSummary struct {
	Transactions int
	Writes       int
	Errors       int
}

// SummarizeRecording reads back a table written by a RecordingHook.
func SummarizeRecording(
	ctx context.Context,
	reader datarecording.DataReader,
	table string,
) (RecordingSummary, error) {
	reader.MapTable(table, transactionEntry{})

	count := func(where string, args ...any) (int, error) {
		_, total, err := reader.Query(ctx, table, datarecording.QueryParams{
			Where: where,
			Args:  args,
			Limit: 1,
		})

		return total, err
	}

	var (
		s   RecordingSummary
		err error
	)

	if s.Transactions, err = count(""); err != nil {
		return s, err
	}

	if s.Writes, err = count("We = ?", true); err != nil {
		return s, err
	}

	if s.Errors, err = count("Err = ?", true); err != nil {
		return s, err
	}

	return s, nil
}
