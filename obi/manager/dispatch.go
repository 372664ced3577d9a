package manager

import (
	"bytes"
	"fmt"

	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
	"github.com/sarchlab/obi/tracing"
)

type dispatchState int

const (
	stateIdle dispatchState = iota
	stateGrantWait
	stateResponseWait
	stateAdvance
)

func (s dispatchState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateGrantWait:
		return "grant-wait"
	case stateResponseWait:
		return "response-wait"
	case stateAdvance:
		return "advance"
	default:
		return fmt.Sprintf("dispatchState(%d)", int(s))
	}
}

// Tick runs one step of the dispatch state machine. A failed driver stays
// quiet until it is restarted.
func (c *Comp) Tick(_ uint64) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.err != nil {
		return nil
	}

	err := c.step()
	if err != nil {
		c.err = err
		c.notifyLocked()
	}

	return err
}

func (c *Comp) step() error {
	if c.state == stateAdvance {
		c.state = stateIdle
		c.notifyLocked()
	}

	switch c.state {
	case stateIdle:
		return c.issue()
	case stateGrantWait:
		return c.waitGrant()
	case stateResponseWait:
		return c.waitResponse()
	default:
		panic("unknown dispatch state " + c.state.String())
	}
}

func (c *Comp) issue() error {
	e := c.pending.Pop()
	if e == nil {
		if !c.idle {
			c.idle = true
			c.notifyLocked()
		}

		return nil
	}

	b := e.(*beat)
	c.notifyLocked()

	if !c.cfg.AddressInRange(b.addr) {
		err := &obi.AddressError{Addr: b.addr, Width: c.cfg.AddrWidth}
		c.log.Error(err.Error())

		return err
	}

	c.bus.Req.Set(1)
	c.bus.We.SetBool(b.write)
	c.bus.Addr.Set(b.addr)
	c.bus.AID.Set(b.id & c.cfg.IDMask())

	if b.write {
		c.log.Infof("Write addr: 0x%08x data: %s", b.addr, obi.HexString(b.data))
		c.bus.WData.SetBytes(b.data)
		c.bus.BE.Set(b.strobe)
	} else {
		c.log.Infof("Read addr: 0x%08x", b.addr)
		c.bus.WData.Set(0)
		c.bus.BE.Set(c.cfg.FullStrobe())
	}

	c.startTask(b)

	c.current = b
	c.state = stateGrantWait
	c.waited = 0

	return nil
}

func (c *Comp) waitGrant() error {
	if c.timedOut() {
		return c.timeout(obi.PhaseGrant)
	}

	if !c.bus.Gnt.Bool() {
		c.waited++
		return nil
	}

	c.driveIdleOutputs()
	tracing.AddTaskStep(c.current.taskID, c, "granted")

	c.state = stateResponseWait
	c.waited = 0

	return c.waitResponse()
}

func (c *Comp) waitResponse() error {
	if c.timedOut() {
		return c.timeout(obi.PhaseResponse)
	}

	if !c.bus.RValid.Bool() {
		c.waited++
		return nil
	}

	return c.finish()
}

func (c *Comp) finish() error {
	b := c.current
	defer tracing.EndTask(b.taskID, c)

	if errFlag := c.bus.Err.Bool(); errFlag != b.expectErr {
		c.exceptionOccurred = true

		err := &obi.ErrorFlagError{Addr: b.addr, Got: errFlag, Expected: b.expectErr}
		if c.exceptionsEnabled {
			c.log.Error(err.Error())
			return err
		}

		c.log.Warn(err.Error())
	}

	if !b.write {
		data := c.bus.RData.Bytes()
		c.log.Infof("Value read: %s", obi.HexString(data))

		if b.expected != nil && !bytes.Equal(b.expected, data) {
			err := &obi.MismatchError{Addr: b.addr, Expected: b.expected, Got: data}
			c.log.Error(err.Error())

			return err
		}

		if !c.completed.CanPush() {
			err := fmt.Errorf("%w: completed queue holds %d responses",
				ErrQueueFull, c.completed.Size())
			c.log.Error(err.Error())

			return err
		}

		c.completed.Push(&completion{data: data, id: b.id})
	}

	c.current = nil
	c.state = stateAdvance
	c.notifyLocked()

	return nil
}

func (c *Comp) timedOut() bool {
	return c.spec.timeoutEnabled() &&
		c.waited > 0 &&
		c.waited >= c.spec.TimeoutCycles
}

func (c *Comp) timeout(phase string) error {
	err := &obi.TimeoutError{
		Phase:  phase,
		Addr:   c.current.addr,
		Cycles: c.waited,
	}
	c.log.Error(err.Error())
	tracing.EndTask(c.current.taskID, c)

	return err
}

// TaskDetail is attached to the trace task of every beat.
type TaskDetail struct {
	Addr  uint64
	ID    uint64
	Write bool
}

func (c *Comp) startTask(b *beat) {
	if c.NumHooks() == 0 {
		return
	}

	b.taskID = sim.GetIDGenerator().Generate()

	what := "read"
	if b.write {
		what = "write"
	}

	tracing.StartTask(b.taskID, "", c, "req_out", what,
		TaskDetail{Addr: b.addr, ID: b.id, Write: b.write})
}

func (c *Comp) driveIdleOutputs() {
	c.bus.Req.Set(0)
	c.bus.We.Set(0)
	c.bus.Addr.Set(0)
	c.bus.WData.Set(0)
	c.bus.BE.Set(0)
	c.bus.AID.Set(0)
}

func (c *Comp) forceIdleOutputs() {
	c.bus.Req.Force(0)
	c.bus.We.Force(0)
	c.bus.Addr.Force(0)
	c.bus.WData.Force(0)
	c.bus.BE.Force(0)
	c.bus.AID.Force(0)
}
