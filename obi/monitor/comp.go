// Package monitor provides a passive observer of an OBI bus.
//
// The observer only samples signals. It pairs every accepted request with
// the response that follows it and queues the result as a Transaction.
//
// When rvalid is high while rready is low, the transaction is queued but the
// request stays in flight, so a response that is held for several cycles is
// queued once per cycle until rready rises.
package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
)

// HookPosTransaction marks that a transaction is queued. The hook item is the
// Transaction.
var HookPosTransaction = &sim.HookPos{Name: "Monitor Transaction"}

// Comp is a passive observer.
type Comp struct {
	*sim.HookableBase

	name string
	bus  *obi.Bus

	lock     sync.Mutex
	changed  chan struct{}
	running  bool
	active   bool
	inFlight Transaction
	queue    []Transaction
}

// Builder can build observers.
type Builder struct {
	bus     *obi.Bus
	clock   *sim.Clock
	stopped bool
}

// MakeBuilder returns a new Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithBus sets the bus to observe.
func (b Builder) WithBus(bus *obi.Bus) Builder {
	b.bus = bus
	return b
}

// WithClock sets the clock that samples the bus.
func (b Builder) WithClock(clock *sim.Clock) Builder {
	b.clock = clock
	return b
}

// Stopped makes the observer start stopped. Call Start to begin observing.
func (b Builder) Stopped() Builder {
	b.stopped = true
	return b
}

// Build creates the observer and registers it with the clock.
func (b Builder) Build(name string) (*Comp, error) {
	if b.bus == nil {
		return nil, fmt.Errorf("monitor %s: bus is not set", name)
	}

	if b.clock == nil {
		return nil, fmt.Errorf("monitor %s: clock is not set", name)
	}

	sim.NameMustBeValid(name)

	c := &Comp{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		bus:          b.bus,
		changed:      make(chan struct{}),
		running:      !b.stopped,
	}

	b.clock.RegisterTicker(c)

	return c, nil
}

// Name returns the name of the observer.
func (c *Comp) Name() string {
	return c.name
}

// Start resumes observing.
func (c *Comp) Start() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.running = true
}

// Stop pauses observing. A request in flight is forgotten.
func (c *Comp) Stop() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.running = false
	c.active = false
}

// Tick samples the bus.
func (c *Comp) Tick(cycle uint64) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.running {
		return nil
	}

	if !c.active && c.bus.Req.Bool() {
		c.active = true
		c.inFlight = Transaction{
			Addr:  c.bus.Addr.Uint64(),
			We:    c.bus.We.Bool(),
			BE:    c.bus.BE.Uint64(),
			WData: c.bus.WData.Bytes(),
			AID:   c.bus.AID.Uint64(),
		}
	}

	if c.active && c.bus.RValid.Bool() {
		t := c.inFlight
		t.Cycle = cycle
		t.RValid = true
		t.RData = c.bus.RData.Bytes()
		t.Err = c.bus.Err.Bool()
		t.RID = c.bus.RID.Uint64()

		c.queue = append(c.queue, t)
		c.notifyLocked()

		if c.bus.RReady.Bool() {
			c.active = false
			c.inFlight = Transaction{}
		}

		if c.NumHooks() > 0 {
			c.InvokeHook(sim.HookCtx{
				Domain: c,
				Pos:    HookPosTransaction,
				Item:   t,
			})
		}
	}

	return nil
}

func (c *Comp) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// Len returns the number of queued transactions.
func (c *Comp) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.queue)
}

// TryRecv removes and returns the oldest transaction, if any.
func (c *Comp) TryRecv() (Transaction, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.popLocked()
}

func (c *Comp) popLocked() (Transaction, bool) {
	if len(c.queue) == 0 {
		return Transaction{}, false
	}

	t := c.queue[0]
	c.queue = c.queue[1:]

	return t, true
}

// Recv waits for a transaction and removes it from the queue. Transactions
// come out in completion order.
func (c *Comp) Recv(ctx context.Context) (Transaction, error) {
	for {
		c.lock.Lock()
		if t, ok := c.popLocked(); ok {
			c.lock.Unlock()
			return t, nil
		}

		changed := c.changed
		c.lock.Unlock()

		select {
		case <-ctx.Done():
			return Transaction{}, ctx.Err()
		case <-changed:
		}
	}
}
