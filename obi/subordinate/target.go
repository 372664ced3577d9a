package subordinate

import (
	"fmt"

	"github.com/sarchlab/obi/obi"
	"github.com/sarchlab/obi/sim"
)

// A Target stores the data behind a subordinate. It returns an error for an
// access it cannot serve, and the subordinate answers that access with the
// err signal set.
type Target interface {
	Read(addr, length uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
}

// A StrobedTarget can apply a partial write in one call. Bit i of strobe
// enables data[i].
type StrobedTarget interface {
	Target
	WriteStrobed(addr uint64, data []byte, strobe uint64) error
}

// HookPosAccess marks a completed access to the target. The hook item is an
// Access.
var HookPosAccess = &sim.HookPos{Name: "Subordinate Access"}

// Access describes one access to the target.
type Access struct {
	Cycle  uint64
	Addr   uint64
	Write  bool
	Strobe uint64
	ID     uint64

	// Data is the write data or the read data.
	Data []byte

	// Err is set if the target rejected the access. It wraps
	// obi.ErrTargetFailure.
	Err error
}

func (a Access) String() string {
	kind := "Read "
	if a.Write {
		kind = "Write"
	}

	s := fmt.Sprintf("%s 0x%08x %s", kind, a.Addr, obi.HexString(a.Data))
	if a.Err != nil {
		s += " err: " + a.Err.Error()
	}

	return s
}

func (c *Comp) write(addr uint64, data []byte, strobe uint64) error {
	if strobe == c.cfg.FullStrobe() {
		return c.target.Write(addr, data)
	}

	if t, ok := c.target.(StrobedTarget); ok {
		return t.WriteStrobed(addr, data, strobe)
	}

	for i, b := range data {
		if strobe&(1<<i) == 0 {
			continue
		}

		if err := c.target.Write(addr+uint64(i), []byte{b}); err != nil {
			return err
		}
	}

	return nil
}

func (c *Comp) read(addr uint64) ([]byte, error) {
	data, err := c.target.Read(addr, uint64(c.cfg.RBytes))
	if err != nil {
		return nil, err
	}

	if len(data) != c.cfg.RBytes {
		return nil, fmt.Errorf("target returned %d bytes, want %d",
			len(data), c.cfg.RBytes)
	}

	return data, nil
}
