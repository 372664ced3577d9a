package subordinate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sarchlab/obi/mem"
	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
)

// A Builder can build subordinate drivers.
type Builder struct {
	bus     *obi.Bus
	clock   *sim.Clock
	target  Target
	seed    *int64
	ramSize uint64
	logger  *zap.Logger
}

// MakeBuilder returns a new Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithBus sets the bus that the driver answers.
func (b Builder) WithBus(bus *obi.Bus) Builder {
	b.bus = bus
	return b
}

// WithClock sets the clock that ticks the driver.
func (b Builder) WithClock(clock *sim.Clock) Builder {
	b.clock = clock
	return b
}

// WithTarget sets the store behind the driver. Without a target, the driver
// uses a storage that covers the whole address space.
func (b Builder) WithTarget(target Target) Builder {
	b.target = target
	return b
}

// WithNewRAM makes the driver use a RAM of size bytes that wraps around.
func (b Builder) WithNewRAM(size uint64) Builder {
	b.ramSize = size
	return b
}

// WithSeed sets the seed of the backpressure generator. Without a seed, a
// random one is picked and logged.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = &seed
	return b
}

// WithLogger sets the logger that the driver derives its own logger from.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates the driver and registers it with the clock. The response
// outputs and gnt start low.
func (b Builder) Build(name string) (*Comp, error) {
	if b.bus == nil {
		return nil, fmt.Errorf("subordinate %s: bus is not set", name)
	}

	if b.clock == nil {
		return nil, fmt.Errorf("subordinate %s: clock is not set", name)
	}

	if b.target != nil && b.ramSize > 0 {
		return nil, fmt.Errorf("subordinate %s: target and RAM are exclusive", name)
	}

	sim.NameMustBeValid(name)

	seed := randomSeed()
	if b.seed != nil {
		seed = *b.seed
	}

	c := &Comp{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		bus:          b.bus,
		cfg:          b.bus.Config(),
		clock:        b.clock,
		log:          obi.NewLogger(b.logger, "subordinate", b.bus.Name()),
		bp:           newBackpressure(seed),
	}

	switch {
	case b.target != nil:
		c.target = b.target
	case b.ramSize > 0:
		c.target = mem.NewRAM(b.ramSize)
	default:
		c.target = c.defaultTarget()
	}

	c.bus.Gnt.Force(0)
	c.bus.RValid.Force(0)
	c.bus.RData.Force(0)
	c.bus.Err.Force(0)
	c.bus.RID.Force(0)

	c.log.Infof("OBI %s configuration:", name)
	c.log.Infof("  Address width: %d bits", c.cfg.AddrWidth)
	c.log.Infof("  Data width: %d bits (%d bytes)", c.cfg.WDataWidth, c.cfg.WBytes)
	c.log.Debugf("Seed is set to %d", seed)

	b.clock.RegisterTicker(c)

	return c, nil
}

func (c *Comp) defaultTarget() Target {
	return mem.NewStorage(c.cfg.AddressSpace())
}
