package manager

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
)

// A Builder can build manager drivers.
type Builder struct {
	bus    *obi.Bus
	clock  *sim.Clock
	spec   Spec
	logger *zap.Logger
}

// MakeBuilder returns a Builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		spec: Defaults(),
	}
}

// WithBus sets the bus that the driver drives.
func (b Builder) WithBus(bus *obi.Bus) Builder {
	b.bus = bus
	return b
}

// WithClock sets the clock that ticks the driver.
func (b Builder) WithClock(clock *sim.Clock) Builder {
	b.clock = clock
	return b
}

// WithSpec replaces the whole configuration.
func (b Builder) WithSpec(spec Spec) Builder {
	b.spec = spec
	return b
}

// WithTimeout sets the number of cycles to wait for gnt and for rvalid. A
// negative value disables the timeout.
func (b Builder) WithTimeout(cycles int) Builder {
	b.spec.TimeoutCycles = cycles
	return b
}

// WithLogger sets the logger that the driver derives its own logger from.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates the driver and registers it with the clock. The request
// outputs start idle and rready is held high.
func (b Builder) Build(name string) (*Comp, error) {
	if b.bus == nil {
		return nil, fmt.Errorf("manager %s: bus is not set", name)
	}

	if b.clock == nil {
		return nil, fmt.Errorf("manager %s: clock is not set", name)
	}

	if err := b.spec.Validate(); err != nil {
		return nil, fmt.Errorf("manager %s: %w", name, err)
	}

	sim.NameMustBeValid(name)

	c := &Comp{
		HookableBase:      sim.NewHookableBase(),
		name:              name,
		bus:               b.bus,
		cfg:               b.bus.Config(),
		clock:             b.clock,
		spec:              b.spec,
		log:               obi.NewLogger(b.logger, "manager", b.bus.Name()),
		changed:           make(chan struct{}),
		pending:           sim.NewBuffer(sim.BuildName(name, "Pending"), b.spec.PendingCapacity),
		completed:         sim.NewBuffer(sim.BuildName(name, "Completed"), b.spec.CompletedCapacity),
		idle:              true,
		exceptionsEnabled: true,
	}

	c.forceIdleOutputs()
	c.bus.RReady.Force(1)
	c.logConfig()

	b.clock.RegisterTicker(c)

	return c, nil
}

func (c *Comp) logConfig() {
	c.log.Infof("OBI %s configuration:", c.name)
	c.log.Infof("  Address width: %d bits", c.cfg.AddrWidth)
	c.log.Infof("  Data width: %d bits (%d bytes)", c.cfg.WDataWidth, c.cfg.WBytes)
	c.log.Infof("  BE width: %d bits", c.cfg.BEWidth)

	if c.spec.timeoutEnabled() {
		c.log.Infof("  Timeout: %d clock cycles", c.spec.TimeoutCycles)
	} else {
		c.log.Info("  Timeout: disabled")
	}

	c.log.Info("OBI signals:")
	for _, s := range c.bus.Signals() {
		c.log.Infof("  %s width: %d bits", s.Name(), s.Width())
	}
}
