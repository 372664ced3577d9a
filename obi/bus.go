// Package obi models the Open Bus Interface, a split-transaction bus with a
// request channel (A) and a response channel (R).
//
// The package provides the signal bundle shared by the bus-functional models
// in the manager, subordinate and monitor sub-packages. Every signal is a
// sim.Signal, so all the models attached to the same sim.Clock sample the
// committed value of an edge and drive the value of the next one.
package obi

import (
	"github.com/sarchlab/obi/sim"
)

// Widths lists the number of bits of each sized signal of the bus. The 1-bit
// handshake signals are not configurable.
type Widths struct {
	Addr  int
	WData int
	RData int
	BE    int
	AID   int
	RID   int
}

// DefaultWidths returns the widths of a 32-bit OBI bus with 8-bit ids.
func DefaultWidths() Widths {
	return Widths{
		Addr:  32,
		WData: 32,
		RData: 32,
		BE:    4,
		AID:   8,
		RID:   8,
	}
}

// WithDataWidth returns a copy that uses the same width for write data and
// read data, and a byte enable for each byte lane.
func (w Widths) WithDataWidth(bits int) Widths {
	w.WData = bits
	w.RData = bits
	w.BE = bits / 8

	return w
}

// Bus is the set of OBI signals of one manager-subordinate link.
//
// The manager drives Req, Addr, We, BE, WData, AID and RReady. The
// subordinate drives Gnt, RValid, RData, Err and RID.
type Bus struct {
	name string

	// Request channel.
	Req   *sim.Signal
	Gnt   *sim.Signal
	Addr  *sim.Signal
	We    *sim.Signal
	BE    *sim.Signal
	WData *sim.Signal
	AID   *sim.Signal

	// Response channel.
	RValid *sim.Signal
	RReady *sim.Signal
	RData  *sim.Signal
	Err    *sim.Signal
	RID    *sim.Signal
}

// NewBus creates the signals of a bus. The name prefixes all the signal
// names, so "SObi" gives "SObi.Req", "SObi.Gnt" and so on.
func NewBus(name string, widths Widths) (*Bus, error) {
	cfg := configFromWidths(widths)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sig := func(n string, width int) *sim.Signal {
		return sim.NewSignal(sim.BuildName(name, n), width)
	}

	b := &Bus{
		name:   name,
		Req:    sig("Req", 1),
		Gnt:    sig("Gnt", 1),
		Addr:   sig("Addr", widths.Addr),
		We:     sig("We", 1),
		BE:     sig("BE", widths.BE),
		WData:  sig("WData", widths.WData),
		AID:    sig("AID", widths.AID),
		RValid: sig("RValid", 1),
		RReady: sig("RReady", 1),
		RData:  sig("RData", widths.RData),
		Err:    sig("Err", 1),
		RID:    sig("RID", widths.RID),
	}

	return b, nil
}

// MustNewBus is like NewBus but panics on invalid widths.
func MustNewBus(name string, widths Widths) *Bus {
	b, err := NewBus(name, widths)
	if err != nil {
		panic(err)
	}

	return b
}

// Name returns the name of the bus.
func (b *Bus) Name() string {
	return b.name
}

// Signals returns all the signals, request channel first.
func (b *Bus) Signals() []*sim.Signal {
	return []*sim.Signal{
		b.Req, b.Gnt, b.Addr, b.We, b.BE, b.WData, b.AID,
		b.RValid, b.RReady, b.RData, b.Err, b.RID,
	}
}

// Register registers all the signals with the clock so that their staged
// values are committed on every edge.
func (b *Bus) Register(clock *sim.Clock) {
	for _, s := range b.Signals() {
		clock.RegisterSignal(s)
	}
}

// Config returns the configuration derived from the signal widths.
func (b *Bus) Config() Config {
	return configFromWidths(Widths{
		Addr:  b.Addr.Width(),
		WData: b.WData.Width(),
		RData: b.RData.Width(),
		BE:    b.BE.Width(),
		AID:   b.AID.Width(),
		RID:   b.RID.Width(),
	})
}
