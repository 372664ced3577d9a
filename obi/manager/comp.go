// Package manager provides the bus-functional model of an OBI manager.
//
// The driver turns reads and writes of any length into bus-width beats and
// dispatches them one at a time through the request and response handshake.
// Blocking operations wait for the clock, which must be running in another
// goroutine, for example with sim.Clock.Run.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
)

// ErrQueueFull is returned when a call needs more pending slots than are
// free.
var ErrQueueFull = errors.New("pending queue full")

// beat is one bus-width request waiting to be dispatched.
type beat struct {
	write     bool
	addr      uint64
	data      []byte
	strobe    uint64
	expectErr bool
	expected  []byte
	id        uint64
	taskID    string
}

// completion is the response data of one read beat.
type completion struct {
	data []byte
	id   uint64
}

// Comp is a manager driver.
type Comp struct {
	*sim.HookableBase

	name  string
	bus   *obi.Bus
	cfg   obi.Config
	clock *sim.Clock
	spec  Spec
	log   *obi.Logger

	lock              sync.Mutex
	changed           chan struct{}
	pending           sim.Buffer
	completed         sim.Buffer
	nextID            uint64
	idle              bool
	exceptionsEnabled bool
	exceptionOccurred bool
	err               error

	state   dispatchState
	current *beat
	waited  int
}

// Name returns the name of the driver.
func (c *Comp) Name() string {
	return c.name
}

// Write enqueues a write and waits until the driver is idle again.
func (c *Comp) Write(
	ctx context.Context,
	addr uint64,
	data Data,
	opts ...Option,
) error {
	if err := c.WriteNoWait(addr, data, opts...); err != nil {
		return err
	}

	return c.Wait(ctx)
}

// WriteNoWait splits a write into beats and enqueues them.
func (c *Comp) WriteNoWait(addr uint64, data Data, opts ...Option) error {
	o := collectOptions(opts)
	lane := c.cfg.WBytes
	n := numBeats(data, o.length, lane)

	strobe := c.cfg.FullStrobe()
	if o.hasStrobe {
		strobe = o.strobe & c.cfg.FullStrobe()
	}

	beats := make([]*beat, n)
	for i := range beats {
		beats[i] = &beat{
			write:     true,
			addr:      addr + uint64(i*lane),
			data:      beatSlice(data, i, lane),
			strobe:    strobe,
			expectErr: o.expectErr,
		}
	}

	_, err := c.enqueue(beats)

	return err
}

// Read enqueues a read and returns the data of all its beats, concatenated
// in address order. It returns after the driver is idle again.
func (c *Comp) Read(
	ctx context.Context,
	addr uint64,
	opts ...Option,
) ([]byte, error) {
	ids, err := c.enqueueRead(addr, opts)
	if err != nil {
		return nil, err
	}

	var out []byte
	for _, id := range ids {
		data, err := c.WaitRead(ctx, id)
		if err != nil {
			return nil, err
		}

		out = append(out, data...)
	}

	if err := c.Wait(ctx); err != nil {
		return nil, err
	}

	return out, nil
}

// ReadNoWait enqueues a read and returns the correlation id of its last beat.
// Use WaitRead to collect the data.
func (c *Comp) ReadNoWait(addr uint64, opts ...Option) (uint64, error) {
	ids, err := c.enqueueRead(addr, opts)
	if err != nil {
		return 0, err
	}

	return ids[len(ids)-1], nil
}

func (c *Comp) enqueueRead(addr uint64, opts []Option) ([]uint64, error) {
	o := collectOptions(opts)
	lane := c.cfg.RBytes
	n := numBeats(o.expected, o.length, lane)

	beats := make([]*beat, n)
	for i := range beats {
		b := &beat{
			addr:      addr + uint64(i*lane),
			data:      make([]byte, c.cfg.WBytes),
			strobe:    c.cfg.FullStrobe(),
			expectErr: o.expectErr,
		}

		if o.expected != nil {
			b.expected = beatSlice(o.expected, i, lane)
		}

		beats[i] = b
	}

	return c.enqueue(beats)
}

func (c *Comp) enqueue(beats []*beat) ([]uint64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.err != nil {
		return nil, c.err
	}

	if capacity := c.pending.Capacity(); capacity > 0 &&
		c.pending.Size()+len(beats) > capacity {
		return nil, fmt.Errorf("%s: %w: %d beats do not fit", c.name,
			ErrQueueFull, len(beats))
	}

	ids := make([]uint64, len(beats))
	for i, b := range beats {
		c.nextID++
		b.id = c.nextID
		ids[i] = b.id
		c.pending.Push(b)
	}

	c.idle = false
	c.notifyLocked()

	return ids, nil
}

// WaitRead waits until the response of the read beat with the given
// correlation id arrives, removes it from the completed queue and returns
// its data.
func (c *Comp) WaitRead(ctx context.Context, id uint64) ([]byte, error) {
	var data []byte

	err := c.waitFor(ctx, func() bool {
		e := c.completed.RemoveFirst(func(e any) bool {
			return e.(*completion).id == id
		})
		if e == nil {
			return false
		}

		data = e.(*completion).data

		return true
	})

	return data, err
}

// Wait blocks until all the pending beats are dispatched and the driver is
// back in the idle state.
func (c *Comp) Wait(ctx context.Context) error {
	return c.waitFor(ctx, func() bool { return c.idle })
}

// waitFor blocks until cond, evaluated with the lock held, returns true. It
// gives up when the driver fails or the context ends.
func (c *Comp) waitFor(ctx context.Context, cond func() bool) error {
	for {
		c.lock.Lock()
		if cond() {
			c.lock.Unlock()
			return nil
		}

		if c.err != nil {
			err := c.err
			c.lock.Unlock()

			return err
		}

		changed := c.changed
		c.lock.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (c *Comp) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// CountPending returns the number of beats that are not dispatched yet.
func (c *Comp) CountPending() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.pending.Size()
}

// EmptyPending tells if no beat is waiting to be dispatched.
func (c *Comp) EmptyPending() bool {
	return c.CountPending() == 0
}

// CountCompleted returns the number of read responses not consumed yet.
func (c *Comp) CountCompleted() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.completed.Size()
}

// EmptyCompleted tells if no read response is waiting to be consumed.
func (c *Comp) EmptyCompleted() bool {
	return c.CountCompleted() == 0
}

// Idle tells if both queues are empty.
func (c *Comp) Idle() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.pending.Size() == 0 && c.completed.Size() == 0
}

// Clear drops all the queued beats and all the unconsumed responses. A beat
// that is already on the bus completes normally.
func (c *Comp) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.pending.Clear()
	c.completed.Clear()
	c.notifyLocked()
}

// Restart abandons the beat on the bus, if any, and starts dispatching again
// from the idle state. It also clears a previous failure. The queues are
// kept.
func (c *Comp) Restart() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.current != nil {
		c.log.Warnf("Abandoning beat addr: 0x%08x id: %d",
			c.current.addr, c.current.id)
	}

	c.state = stateIdle
	c.current = nil
	c.waited = 0
	c.err = nil
	c.driveIdleOutputs()
	c.notifyLocked()
}

// SetExceptionsEnabled selects whether an unexpected err flag fails the
// driver (true, the default) or is only logged and recorded.
func (c *Comp) SetExceptionsEnabled(enabled bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.exceptionsEnabled = enabled
}

// ExceptionOccurred tells if any response had an unexpected err flag. The
// flag is sticky.
func (c *Comp) ExceptionOccurred() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.exceptionOccurred
}

// Err returns the error that stopped the driver, or nil.
func (c *Comp) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.err
}

// EnableLogging turns on debug messages for this driver.
func (c *Comp) EnableLogging() {
	c.log.Enable()
}

// DisableLogging turns off debug messages for this driver.
func (c *Comp) DisableLogging() {
	c.log.Disable()
}

// CurrentTime returns the cycle of the clock that ticks the driver.
func (c *Comp) CurrentTime() sim.VTimeInCycle {
	return c.clock.CurrentTime()
}
