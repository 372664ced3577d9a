package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// HookPosRisingEdge marks the end of a rising clock edge, after all the
// tickers have run and all the signals are committed.
var HookPosRisingEdge = &HookPos{Name: "RisingEdge"}

// ErrCycleLimit is returned by RunUntil when the condition is not met within
// the given number of cycles.
var ErrCycleLimit = errors.New("cycle limit reached")

// A Ticker samples and drives signals once per rising clock edge. Tick
// returns an error if the component hits a condition it cannot recover from.
type Ticker interface {
	Named
	Tick(cycle uint64) error
}

type edgeEvent struct {
	*EventBase
}

// A Clock produces rising edges on an engine. On every edge it ticks all the
// registered tickers in registration order and then commits all the
// registered signals.
type Clock struct {
	*HookableBase

	name   string
	engine Engine

	lock       sync.Mutex
	tickers    []Ticker
	committers []Committer
	cycle      uint64
	scheduled  bool
	remaining  int
	stopped    bool
}

// NewClock creates a clock that drives its edges on the given engine.
func NewClock(name string, engine Engine) *Clock {
	NameMustBeValid(name)

	return &Clock{
		HookableBase: NewHookableBase(),
		name:         name,
		engine:       engine,
	}
}

// Name returns the name of the clock.
func (c *Clock) Name() string {
	return c.name
}

// Engine returns the engine that the clock schedules its edges on.
func (c *Clock) Engine() Engine {
	return c.engine
}

// RegisterTicker adds a ticker. Tickers are evaluated in the order they are
// registered.
func (c *Clock) RegisterTicker(t Ticker) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, existing := range c.tickers {
		if existing == t {
			panic("ticker " + t.Name() + " already registered")
		}
	}

	c.tickers = append(c.tickers, t)
}

// RegisterSignal adds values that are committed at the end of every edge.
func (c *Clock) RegisterSignal(signals ...Committer) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.committers = append(c.committers, signals...)
}

// Cycle returns the number of rising edges produced so far.
func (c *Clock) Cycle() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.cycle
}

// CurrentTime returns the cycle of the last edge.
func (c *Clock) CurrentTime() VTimeInCycle {
	return VTimeInCycle(c.Cycle())
}

// RunCycles produces n rising edges and returns. It returns early with an
// error if a ticker fails.
func (c *Clock) RunCycles(n int) error {
	if n <= 0 {
		return nil
	}

	c.lock.Lock()
	c.remaining = n
	c.stopped = false
	c.scheduleNextEdge()
	c.lock.Unlock()

	return c.engine.Run()
}

// RunUntil produces rising edges until cond returns true. The condition is
// checked before every edge. It gives up after maxCycles edges.
func (c *Clock) RunUntil(cond func() bool, maxCycles int) error {
	for i := 0; i < maxCycles; i++ {
		if cond() {
			return nil
		}

		if err := c.RunCycles(1); err != nil {
			return err
		}
	}

	if cond() {
		return nil
	}

	return fmt.Errorf("%s: %w after %d cycles", c.name, ErrCycleLimit, maxCycles)
}

// Run keeps the clock running until the context is done or a ticker fails.
// Stopping with the context is not an error.
func (c *Clock) Run(ctx context.Context) error {
	c.lock.Lock()
	c.remaining = -1
	c.stopped = false
	c.scheduleNextEdge()
	c.lock.Unlock()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-done:
		}
	}()

	return c.engine.Run()
}

// Stop prevents the clock from producing more edges after the current one.
func (c *Clock) Stop() {
	c.lock.Lock()
	c.stopped = true
	c.lock.Unlock()
}

func (c *Clock) scheduleNextEdge() {
	if c.scheduled {
		return
	}

	c.scheduled = true
	t := VTimeInCycle(c.cycle + 1)
	if now := c.engine.CurrentTime(); t <= now {
		t = now + 1
	}

	c.engine.Schedule(edgeEvent{EventBase: NewEventBase(t, c)})
}

// Handle produces one rising edge.
func (c *Clock) Handle(e Event) error {
	if _, ok := e.(edgeEvent); !ok {
		return fmt.Errorf("clock %s cannot handle event of type %T", c.name, e)
	}

	c.lock.Lock()
	c.scheduled = false
	c.cycle++
	cycle := c.cycle
	tickers := c.tickers
	committers := c.committers
	c.lock.Unlock()

	for _, t := range tickers {
		if err := t.Tick(cycle); err != nil {
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
	}

	for _, s := range committers {
		s.Commit()
	}

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosRisingEdge,
		Item:   cycle,
	})

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.remaining > 0 {
		c.remaining--
	}

	if c.remaining != 0 && !c.stopped {
		c.scheduleNextEdge()
	}

	return nil
}
