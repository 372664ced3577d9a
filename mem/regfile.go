package mem

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Errors of register accesses.
var (
	ErrReadOnly  = errors.New("register is read-only")
	ErrWriteOnly = errors.New("register is write-only")
	ErrUnmapped  = errors.New("no register at address")
)

// AccessMode tells how software can access a register.
type AccessMode int

// Access modes.
const (
	ReadWrite AccessMode = iota
	ReadOnly
	WriteOnly
)

func (m AccessMode) String() string {
	switch m {
	case ReadWrite:
		return "RW"
	case ReadOnly:
		return "RO"
	case WriteOnly:
		return "WO"
	default:
		return fmt.Sprintf("AccessMode(%d)", int(m))
	}
}

type register struct {
	name  string
	mode  AccessMode
	reset uint64
	value []byte
}

// RegisterFile is a block of word-aligned registers. Every register is as
// wide as one bus word. Accesses to an address without a register, reads of
// write-only registers and writes to read-only registers fail.
type RegisterFile struct {
	lock      sync.Mutex
	wordBytes uint64
	regs      map[uint64]*register
}

// NewRegisterFile creates an empty register file with registers of
// wordBytes bytes.
func NewRegisterFile(wordBytes int) *RegisterFile {
	if wordBytes <= 0 || wordBytes > 8 {
		panic(fmt.Sprintf("register width must be in [1, 8] bytes, got %d",
			wordBytes))
	}

	return &RegisterFile{
		wordBytes: uint64(wordBytes),
		regs:      make(map[uint64]*register),
	}
}

// AddRegister maps a register at a word-aligned address.
func (f *RegisterFile) AddRegister(
	name string,
	addr uint64,
	mode AccessMode,
	reset uint64,
) error {
	if addr%f.wordBytes != 0 {
		return fmt.Errorf("register %s at 0x%x is not aligned to %d bytes",
			name, addr, f.wordBytes)
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	if existing, ok := f.regs[addr]; ok {
		return fmt.Errorf("register %s at 0x%x overlaps %s",
			name, addr, existing.name)
	}

	r := &register{name: name, mode: mode, reset: reset}
	r.value = f.encode(reset)
	f.regs[addr] = r

	return nil
}

// Addresses returns the addresses of all the registers, in increasing order.
func (f *RegisterFile) Addresses() []uint64 {
	f.lock.Lock()
	defer f.lock.Unlock()

	addrs := make([]uint64, 0, len(f.regs))
	for a := range f.regs {
		addrs = append(addrs, a)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	return addrs
}

// Reset puts every register back to its reset value.
func (f *RegisterFile) Reset() {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, r := range f.regs {
		r.value = f.encode(r.reset)
	}
}

func (f *RegisterFile) encode(v uint64) []byte {
	out := make([]byte, f.wordBytes)
	for i := range out {
		out[i] = byte(v >> (8 * i))
	}

	return out
}

func (f *RegisterFile) lookup(addr uint64) (*register, uint64, error) {
	offset := addr % f.wordBytes

	r, ok := f.regs[addr-offset]
	if !ok {
		return nil, 0, fmt.Errorf("%w 0x%x", ErrUnmapped, addr)
	}

	return r, offset, nil
}

// Read returns length bytes starting at addr. The range may cover several
// registers.
func (f *RegisterFile) Read(addr, length uint64) ([]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	out := make([]byte, length)
	for i := uint64(0); i < length; i++ {
		r, offset, err := f.lookup(addr + i)
		if err != nil {
			return nil, err
		}

		if r.mode == WriteOnly {
			return nil, fmt.Errorf("%s: %w", r.name, ErrWriteOnly)
		}

		out[i] = r.value[offset]
	}

	return out, nil
}

// Write stores data starting at addr. Nothing is written if any byte is
// rejected.
func (f *RegisterFile) Write(addr uint64, data []byte) error {
	return f.WriteStrobed(addr, data, ^uint64(0))
}

// WriteStrobed stores the bytes of data whose strobe bit is set. Nothing is
// written if any enabled byte is rejected.
func (f *RegisterFile) WriteStrobed(addr uint64, data []byte, strobe uint64) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	type byteWrite struct {
		r      *register
		offset uint64
		b      byte
	}

	writes := make([]byteWrite, 0, len(data))
	for i, b := range data {
		if i < 64 && strobe&(1<<i) == 0 {
			continue
		}

		r, offset, err := f.lookup(addr + uint64(i))
		if err != nil {
			return err
		}

		if r.mode == ReadOnly {
			return fmt.Errorf("%s: %w", r.name, ErrReadOnly)
		}

		writes = append(writes, byteWrite{r, offset, b})
	}

	for _, w := range writes {
		w.r.value[w.offset] = w.b
	}

	return nil
}
