package obi

import "fmt"

// Config is the immutable shape of a bus, derived from its signal widths.
type Config struct {
	AddrWidth  int
	WDataWidth int
	RDataWidth int
	BEWidth    int
	AIDWidth   int
	RIDWidth   int

	// WBytes and RBytes are the byte lanes of one write and one read beat.
	WBytes int
	RBytes int
}

func configFromWidths(w Widths) Config {
	return Config{
		AddrWidth:  w.Addr,
		WDataWidth: w.WData,
		RDataWidth: w.RData,
		BEWidth:    w.BE,
		AIDWidth:   w.AID,
		RIDWidth:   w.RID,
		WBytes:     w.WData / 8,
		RBytes:     w.RData / 8,
	}
}

// Validate checks that the widths describe a legal bus.
func (c Config) Validate() error {
	if c.AddrWidth <= 0 || c.AddrWidth > 64 {
		return fmt.Errorf("address width must be in [1, 64], got %d", c.AddrWidth)
	}

	if c.WDataWidth <= 0 || c.WDataWidth%8 != 0 {
		return fmt.Errorf(
			"write data width must be a positive multiple of 8, got %d",
			c.WDataWidth)
	}

	if c.RDataWidth <= 0 || c.RDataWidth%8 != 0 {
		return fmt.Errorf(
			"read data width must be a positive multiple of 8, got %d",
			c.RDataWidth)
	}

	if c.BEWidth != c.WDataWidth/8 {
		return fmt.Errorf(
			"byte enable width must be %d for %d-bit write data, got %d",
			c.WDataWidth/8, c.WDataWidth, c.BEWidth)
	}

	if c.BEWidth > 64 {
		return fmt.Errorf("at most 64 byte lanes are supported, got %d", c.BEWidth)
	}

	if c.AIDWidth <= 0 || c.RIDWidth <= 0 {
		return fmt.Errorf("id widths must be positive")
	}

	return nil
}

// AddressInRange tells if addr is in [0, 2^AddrWidth).
func (c Config) AddressInRange(addr uint64) bool {
	if c.AddrWidth >= 64 {
		return true
	}

	return addr < uint64(1)<<c.AddrWidth
}

// AddressSpace returns 2^AddrWidth, saturated at the largest uint64.
func (c Config) AddressSpace() uint64 {
	if c.AddrWidth >= 64 {
		return ^uint64(0)
	}

	return uint64(1) << c.AddrWidth
}

// FullStrobe returns the byte enable value with all the lanes enabled.
func (c Config) FullStrobe() uint64 {
	if c.BEWidth >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << c.BEWidth) - 1
}

// IDMask returns the mask that truncates a correlation id to the width of
// the aid signal.
func (c Config) IDMask() uint64 {
	if c.AIDWidth >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << c.AIDWidth) - 1
}
