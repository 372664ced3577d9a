// Package mem provides byte-addressable targets for the OBI subordinate.
package mem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// ErrAddressOutOfRange is returned when an access falls outside a target.
var ErrAddressOutOfRange = errors.New("address out of range")

// A Target is a byte-addressable store.
type Target interface {
	Read(addr, length uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
}

// A StrobedTarget can write only some of the bytes of a beat. Bit i of strobe
// enables data[i].
type StrobedTarget interface {
	Target
	WriteStrobed(addr uint64, data []byte, strobe uint64) error
}

// A Storage keeps the data of a memory.
//
// The storage manages the data in units, similar to pages. No memory is
// allocated for the units that are never written, so a storage can cover a
// full 32-bit or 64-bit address space. Bytes that are never written read as
// zero.
type Storage struct {
	lock     sync.RWMutex
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		unitSize: 4096,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the number of bytes of the storage.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) checkRange(addr, length uint64) error {
	if addr >= s.capacity || length > s.capacity-addr {
		return fmt.Errorf("%w: 0x%x+%d beyond capacity 0x%x",
			ErrAddressOutOfRange, addr, length, s.capacity)
	}

	return nil
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// unit returns the unit that contains addr. Missing units are created only
// when create is true.
func (s *Storage) unit(addr uint64, create bool) []byte {
	baseAddr, _ := s.parseAddress(addr)

	u, ok := s.data[baseAddr]
	if !ok && create {
		u = make([]byte, s.unitSize)
		s.data[baseAddr] = u
	}

	return u
}

// Read returns length bytes starting at addr.
func (s *Storage) Read(addr, length uint64) ([]byte, error) {
	if err := s.checkRange(addr, length); err != nil {
		return nil, err
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]byte, length)
	offset := uint64(0)

	for offset < length {
		curr := addr + offset
		baseAddr, inUnitAddr := s.parseAddress(curr)
		n := min(length-offset, baseAddr+s.unitSize-curr)

		if u := s.unit(curr, false); u != nil {
			copy(res[offset:offset+n], u[inUnitAddr:inUnitAddr+n])
		}

		offset += n
	}

	return res, nil
}

// Write stores data starting at addr.
func (s *Storage) Write(addr uint64, data []byte) error {
	length := uint64(len(data))
	if err := s.checkRange(addr, length); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	offset := uint64(0)
	for offset < length {
		curr := addr + offset
		baseAddr, inUnitAddr := s.parseAddress(curr)
		n := min(length-offset, baseAddr+s.unitSize-curr)

		u := s.unit(curr, true)
		copy(u[inUnitAddr:inUnitAddr+n], data[offset:offset+n])

		offset += n
	}

	return nil
}

// WriteStrobed stores the bytes of data whose strobe bit is set. The other
// bytes keep their value.
func (s *Storage) WriteStrobed(addr uint64, data []byte, strobe uint64) error {
	if err := s.checkRange(addr, uint64(len(data))); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for i, b := range data {
		if i >= 64 || strobe&(1<<i) == 0 {
			continue
		}

		curr := addr + uint64(i)
		_, inUnitAddr := s.parseAddress(curr)
		s.unit(curr, true)[inUnitAddr] = b
	}

	return nil
}

// ReadUint8 returns the byte at addr.
func (s *Storage) ReadUint8(addr uint64) (byte, error) {
	b, err := s.Read(addr, 1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// ReadUint16 returns the little-endian 16-bit value at addr.
func (s *Storage) ReadUint16(addr uint64) (uint16, error) {
	b, err := s.Read(addr, 2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 returns the little-endian 32-bit value at addr.
func (s *Storage) ReadUint32(addr uint64) (uint32, error) {
	b, err := s.Read(addr, 4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 returns the little-endian 64-bit value at addr.
func (s *Storage) ReadUint64(addr uint64) (uint64, error) {
	b, err := s.Read(addr, 8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

// Clear drops all the data.
func (s *Storage) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = make(map[uint64][]byte)
}
