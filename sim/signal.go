package sim

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"
)

// A Committer holds values staged during a cycle that become visible when the
// clock edge completes.
type Committer interface {
	Commit()
}

// A Signal is a named bit-vector of fixed width, such as a wire or a register
// output of the device under test.
//
// A signal has two copies of its value. Readers always observe the committed
// value, while writers stage the next value. The clock commits all staged
// values after every component has sampled the current edge, so the order in
// which components tick within one edge never matters.
type Signal struct {
	lock  sync.RWMutex
	name  string
	width int
	cur   []byte
	next  []byte
}

// NewSignal creates a signal that is width bits wide. All the bits start as
// zero.
func NewSignal(name string, width int) *Signal {
	NameMustBeValid(name)

	if width <= 0 {
		log.Panicf("signal %s must be at least 1 bit wide, got %d", name, width)
	}

	n := (width + 7) / 8

	return &Signal{
		name:  name,
		width: width,
		cur:   make([]byte, n),
		next:  make([]byte, n),
	}
}

// Name returns the name of the signal.
func (s *Signal) Name() string {
	return s.name
}

// Width returns the number of bits of the signal.
func (s *Signal) Width() int {
	return s.width
}

// NumBytes returns the number of bytes required to hold the signal value.
func (s *Signal) NumBytes() int {
	return len(s.cur)
}

// Mask returns the largest value that fits in the signal, truncated to 64
// bits.
func (s *Signal) Mask() uint64 {
	if s.width >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << s.width) - 1
}

// Uint64 returns the lower 64 bits of the committed value.
func (s *Signal) Uint64() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return lowUint64(s.cur)
}

// Bool returns true if any bit of the committed value is set.
func (s *Signal) Bool() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	for _, b := range s.cur {
		if b != 0 {
			return true
		}
	}

	return false
}

// Bytes returns a copy of the committed value in little-endian order.
func (s *Signal) Bytes() []byte {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := make([]byte, len(s.cur))
	copy(out, s.cur)

	return out
}

// Set stages v as the next value of the signal. Bits beyond the signal width
// are dropped.
func (s *Signal) Set(v uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	putUint64(s.next, v)
	s.maskTop(s.next)
}

// SetBool stages 1 if b is true and 0 otherwise.
func (s *Signal) SetBool(b bool) {
	if b {
		s.Set(1)
		return
	}

	s.Set(0)
}

// SetBytes stages a little-endian value. Missing high bytes are zero and
// extra bytes are dropped.
func (s *Signal) SetBytes(data []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()

	clear(s.next)
	copy(s.next, data)
	s.maskTop(s.next)
}

// Force sets both the committed and the staged value. It is used to give the
// signal its initial value before the clock starts.
func (s *Signal) Force(v uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	putUint64(s.next, v)
	s.maskTop(s.next)
	copy(s.cur, s.next)
}

// Commit publishes the staged value.
func (s *Signal) Commit() {
	s.lock.Lock()
	copy(s.cur, s.next)
	s.lock.Unlock()
}

// String returns the committed value in hexadecimal.
func (s *Signal) String() string {
	v := s.Bytes()

	str := "0x"
	for i := len(v) - 1; i >= 0; i-- {
		str += fmt.Sprintf("%02x", v[i])
	}

	return str
}

func (s *Signal) maskTop(buf []byte) {
	rem := s.width % 8
	if rem == 0 {
		return
	}

	buf[len(buf)-1] &= byte(1<<rem) - 1
}

func lowUint64(buf []byte) uint64 {
	var tmp [8]byte
	copy(tmp[:], buf)

	return binary.LittleEndian.Uint64(tmp[:])
}

func putUint64(buf []byte, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)

	clear(buf)
	copy(buf, tmp[:])
}
