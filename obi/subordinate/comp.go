// Package subordinate provides the bus-functional model of an OBI
// subordinate.
//
// The driver accepts one request at a time, answers it from a Target and
// holds rvalid until the manager takes the response. Backpressure stalls
// random accesses to exercise the manager.
package subordinate

import (
	"fmt"
	"sync"

	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
)

type request struct {
	addr   uint64
	write  bool
	strobe uint64
	data   []byte
	id     uint64
}

// Comp is a subordinate driver.
type Comp struct {
	*sim.HookableBase

	name  string
	bus   *obi.Bus
	cfg   obi.Config
	clock *sim.Clock
	log   *obi.Logger

	lock      sync.Mutex
	target    Target
	bp        *backpressure
	active    bool
	current   *request
	delayLeft int
}

// Name returns the name of the driver.
func (c *Comp) Name() string {
	return c.name
}

// Tick samples the request channel and drives the response channel.
func (c *Comp) Tick(cycle uint64) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.bus.Gnt.Set(0)

	switch {
	case !c.active && c.bus.Req.Bool():
		c.accept(cycle)
	case c.current != nil && c.delayLeft > 0:
		c.delayLeft--
		if c.delayLeft == 0 {
			c.respond(cycle)
		}
	}

	if c.bus.RValid.Bool() && c.bus.RReady.Bool() {
		c.bus.RValid.Set(0)
		c.bus.Err.Set(0)
		c.active = false
	}

	return nil
}

func (c *Comp) accept(cycle uint64) {
	c.active = true
	c.bus.Gnt.Set(1)

	req := &request{
		addr:   c.bus.Addr.Uint64(),
		write:  c.bus.We.Bool(),
		strobe: c.bus.BE.Uint64(),
		data:   c.bus.WData.Bytes(),
		id:     c.bus.AID.Uint64(),
	}
	c.current = req
	c.bus.RID.Set(req.id)

	c.delayLeft = c.bp.delay()
	if c.delayLeft > 0 {
		c.log.Debugf("Stalling 0x%08x for %d cycles", req.addr, c.delayLeft)
		return
	}

	c.respond(cycle)
}

func (c *Comp) respond(cycle uint64) {
	req := c.current
	c.current = nil

	access := Access{
		Cycle:  cycle,
		Addr:   req.addr,
		Write:  req.write,
		Strobe: req.strobe,
		ID:     req.id,
	}

	var err error
	if req.write {
		access.Data = req.data
		err = c.write(req.addr, req.data, req.strobe)
	} else {
		access.Data, err = c.read(req.addr)
	}

	c.bus.RValid.Set(1)

	if err != nil {
		access.Err = fmt.Errorf("%w: %w", obi.ErrTargetFailure, err)
		access.Data = nil

		c.log.Warnf("Access 0x%08x Invalid: %v", req.addr, err)
		c.bus.Err.Set(1)
		c.bus.RData.Set(0)
	} else {
		c.bus.Err.Set(0)

		if req.write {
			c.log.Debugf("Write 0x%08x %s", req.addr, obi.HexString(req.data))
			c.bus.RData.Set(0)
		} else {
			c.log.Debugf("Read  0x%08x %s", req.addr, obi.HexString(access.Data))
			c.bus.RData.SetBytes(access.Data)
		}
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosAccess,
			Item:   access,
		})
	}
}

// EnableBackpressure makes random accesses wait before the response. A seed,
// if given, restarts the generator.
func (c *Comp) EnableBackpressure(seed ...int64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.bp.enabled = true
	if len(seed) > 0 {
		c.bp.reseed(seed[0])
		c.log.Debugf("Seed is set to %d", seed[0])
	}
}

// DisableBackpressure makes every access respond without extra delay.
func (c *Comp) DisableBackpressure() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.bp.enabled = false
}

// BackpressureEnabled tells if backpressure is on.
func (c *Comp) BackpressureEnabled() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.bp.enabled
}

// Seed returns the seed of the backpressure generator.
func (c *Comp) Seed() int64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.bp.seed
}

// Target returns the store behind the driver.
func (c *Comp) Target() Target {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.target
}

// SetTarget replaces the store behind the driver. A nil target selects a new
// storage that covers the whole address space.
func (c *Comp) SetTarget(t Target) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if t == nil {
		t = c.defaultTarget()
	}

	c.target = t
}

// Restart drops the request in progress, if any, and drives the response
// channel low.
func (c *Comp) Restart() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.active = false
	c.current = nil
	c.delayLeft = 0

	c.bus.Gnt.Set(0)
	c.bus.RValid.Set(0)
	c.bus.Err.Set(0)
	c.bus.RData.Set(0)
}

// EnableLogging turns on debug messages for this driver.
func (c *Comp) EnableLogging() {
	c.log.Enable()
}

// DisableLogging turns off debug messages for this driver.
func (c *Comp) DisableLogging() {
	c.log.Disable()
}
