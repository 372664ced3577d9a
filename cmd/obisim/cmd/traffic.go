package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"

	"github.com/sarchlab/obi/datarecording"
	"github.com/sarchlab/obi/monitoring"
	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/obi/manager"
	"github.com/sarchlab/obi/obi/monitor"
	"github.com/sarchlab/obi/obi/subordinate"
	"github.com/sarchlab/obi/sim"
	"github.com/sarchlab/obi/simulation"
	"github.com/sarchlab/obi/tracing"
)

// trafficResult summarizes a finished run.
type trafficResult struct {
	Writes       int
	Reads        int
	Transactions int
	Cycles       uint64
	AverageBeat  float64
	TotalBeat    uint64
	Seed         int64

	// Recorded is read back from the recording, if there is one.
	Recorded *monitor.RecordingSummary
}

func (r trafficResult) String() string {
	out := fmt.Sprintf(
		"writes: %d, reads: %d, observed transactions: %d, cycles: %d, "+
			"average access: %.2f cycles, busy: %d cycles, seed: %d",
		r.Writes, r.Reads, r.Transactions, r.Cycles, r.AverageBeat,
		r.TotalBeat, r.Seed)

	if r.Recorded != nil {
		out += fmt.Sprintf(
			"\nrecorded transactions: %d (writes: %d, errors: %d)",
			r.Recorded.Transactions, r.Recorded.Writes, r.Recorded.Errors)
	}

	return out
}

// platform is one bus with everything attached to it.
type platform struct {
	sim   *simulation.Simulation
	clock *sim.Clock
	bus   *obi.Bus
	mgr   *manager.Comp
	sub   *subordinate.Comp
	mon   *monitor.Comp

	average *tracing.AverageTimeTracer
	total   *tracing.TotalTimeTracer
	tracers []*tracing.DBTracer
}

func newSimulation(s settings) (*simulation.Simulation, error) {
	b := simulation.MakeBuilder()

	if s.Record != "" {
		b = b.WithOutputFileName(s.Record)
	}

	if s.Monitor {
		b = b.WithMonitoring().WithMonitorPort(s.MonitorPort)
		if s.Browser {
			b = b.WithBrowser()
		}
	}

	return b.Build()
}

func buildPlatform(s settings, logger *zap.Logger) (*platform, error) {
	run, err := newSimulation(s)
	if err != nil {
		return nil, err
	}

	p := &platform{
		sim:   run,
		clock: run.Clock(),
	}

	bus, err := obi.NewBus("Bus", obi.DefaultWidths().WithDataWidth(s.DataWidth))
	if err != nil {
		return nil, err
	}

	p.bus = bus
	p.bus.Register(p.clock)

	p.mgr, err = manager.MakeBuilder().
		WithBus(p.bus).
		WithClock(p.clock).
		WithLogger(logger).
		Build("Manager")
	if err != nil {
		return nil, err
	}

	p.sub, err = subordinate.MakeBuilder().
		WithBus(p.bus).
		WithClock(p.clock).
		WithNewRAM(s.RAMSize).
		WithSeed(s.Seed).
		WithLogger(logger).
		Build("RAM")
	if err != nil {
		return nil, err
	}

	if s.Backpressure {
		p.sub.EnableBackpressure()
	}

	p.mon, err = monitor.MakeBuilder().
		WithBus(p.bus).
		WithClock(p.clock).
		Build("Observer")
	if err != nil {
		return nil, err
	}

	p.sim.RegisterComponent(p.mgr)
	p.sim.RegisterComponent(p.sub)
	p.sim.RegisterComponent(p.mon)

	p.average = tracing.NewAverageTimeTracer(p.mgr, tracing.AllTasks)
	tracing.CollectTrace(p.mgr, p.average)

	p.total = tracing.NewTotalTimeTracer(p.mgr, tracing.AllTasks)
	tracing.CollectTrace(p.mgr, p.total)

	if recorder := p.sim.DataRecorder(); recorder != nil {
		p.attachRecorder(recorder)
	}

	if err := p.attachCSVTrace(s); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *platform) attachRecorder(recorder datarecording.DataRecorder) {
	p.mon.AcceptHook(monitor.NewRecordingHook(recorder, transactionTable))

	tracer := tracing.NewDBTracer(p.mgr, tracing.NewRecorderWriter(recorder, "trace"))
	tracing.CollectTrace(p.mgr, tracer)
	p.tracers = append(p.tracers, tracer)
}

func (p *platform) attachCSVTrace(s settings) error {
	if s.Trace == "" {
		return nil
	}

	writer := tracing.NewCSVTraceWriter(s.Trace)
	if err := writer.Init(); err != nil {
		return err
	}

	tracer := tracing.NewDBTracer(p.mgr, writer)
	tracing.CollectTrace(p.mgr, tracer)
	p.tracers = append(p.tracers, tracer)

	return nil
}

// close flushes the tracers and the recorder.
func (p *platform) close() error {
	for _, t := range p.tracers {
		t.Terminate()
	}

	return p.sim.Terminate()
}

// runTraffic writes random values to random addresses and reads every
// written address back, expecting the last value written there. With a
// recording, the stored transactions are read back at the end.
func runTraffic(
	ctx context.Context,
	s settings,
	logger *zap.Logger,
) (trafficResult, error) {
	result, err := runPlatform(ctx, s, logger)
	if err != nil || s.Record == "" {
		return result, err
	}

	summary, err := readRecording(ctx, s.Record+".sqlite3")
	if err != nil {
		return result, fmt.Errorf("read back %s: %w", s.Record, err)
	}

	result.Recorded = &summary

	return result, nil
}

func readRecording(ctx context.Context, path string) (monitor.RecordingSummary, error) {
	reader, err := datarecording.NewReader(path)
	if err != nil {
		return monitor.RecordingSummary{}, err
	}
	defer reader.Close()

	return monitor.SummarizeRecording(ctx, reader, transactionTable)
}

const transactionTable = "obi_transaction"

func runPlatform(
	ctx context.Context,
	s settings,
	logger *zap.Logger,
) (result trafficResult, err error) {
	p, err := buildPlatform(s, logger)
	if err != nil {
		return result, err
	}

	defer func() {
		err = errors.Join(err, p.close())
	}()

	if err := p.sim.Start(); err != nil {
		return result, err
	}

	var bar *monitoring.ProgressBar
	if m := p.sim.Monitor(); m != nil {
		bar = m.CreateProgressBar("Traffic", uint64(2*s.Count))
		defer m.CompleteProgressBar(bar)
	}

	clockCtx, stopClock := context.WithCancel(ctx)
	clockDone := make(chan error, 1)

	go func() { clockDone <- p.sim.Run(clockCtx) }()

	trafficErr := p.drive(ctx, s, bar, &result)

	stopClock()
	clockErr := <-clockDone

	if err := errors.Join(trafficErr, clockErr); err != nil {
		return result, err
	}

	for {
		if _, ok := p.mon.TryRecv(); !ok {
			break
		}

		result.Transactions++
	}

	result.Cycles = p.clock.Cycle()
	result.AverageBeat = p.average.AverageTime()
	result.TotalBeat = uint64(p.total.TotalTime())
	result.Seed = p.sub.Seed()

	return result, nil
}

func (p *platform) drive(
	ctx context.Context,
	s settings,
	bar *monitoring.ProgressBar,
	result *trafficResult,
) error {
	rng := rand.New(rand.NewPCG(uint64(s.Seed), uint64(s.Seed)^0x9e3779b97f4a7c15))
	lane := uint64(s.DataWidth / 8)
	words := s.RAMSize / lane
	mask := ^uint64(0) >> (64 - s.DataWidth)

	model := make(map[uint64]uint64)

	for range s.Count {
		addr := rng.Uint64N(words) * lane
		value := rng.Uint64() & mask

		if bar != nil {
			bar.IncrementInProgress(1)
		}

		if err := p.mgr.Write(ctx, addr, manager.Uint(value)); err != nil {
			return fmt.Errorf("write 0x%x: %w", addr, err)
		}

		if bar != nil {
			bar.MoveInProgressToFinished(1)
		}

		model[addr] = value
		result.Writes++
	}

	addrs := make([]uint64, 0, len(model))
	for addr := range model {
		addrs = append(addrs, addr)
	}

	slices.Sort(addrs)

	for _, addr := range addrs {
		_, err := p.mgr.Read(ctx, addr,
			manager.WithExpected(manager.Uint(model[addr])))
		if err != nil {
			return fmt.Errorf("read 0x%x: %w", addr, err)
		}

		if bar != nil {
			bar.IncrementFinished(1)
		}

		result.Reads++
	}

	return nil
}
