package manager

import (
	"math/big"
	"math/bits"
)

// Data is a payload that can be split into bus-width beats. Use Bytes, Uint
// or BigUint to create one.
type Data interface {
	// littleEndian returns the value with the least significant byte first.
	littleEndian() []byte

	// bitLen is the number of bits needed to carry the value.
	bitLen() int
}

// Bytes is a byte-sequence payload. The first byte goes to the lowest
// address.
type Bytes []byte

func (b Bytes) littleEndian() []byte {
	return b
}

func (b Bytes) bitLen() int {
	return len(b) * 8
}

// Uint is an integer payload.
type Uint uint64

func (u Uint) littleEndian() []byte {
	n := (bits.Len64(uint64(u)) + 7) / 8
	out := make([]byte, n)

	for i := range out {
		out[i] = byte(u >> (8 * i))
	}

	return out
}

func (u Uint) bitLen() int {
	return bits.Len64(uint64(u))
}

// BigUint is an integer payload wider than 64 bits. Negative values are not
// supported.
func BigUint(v *big.Int) Data {
	return bigUint{v: new(big.Int).Abs(v)}
}

type bigUint struct {
	v *big.Int
}

func (b bigUint) littleEndian() []byte {
	be := b.v.Bytes()
	out := make([]byte, len(be))

	for i, x := range be {
		out[len(be)-1-i] = x
	}

	return out
}

func (b bigUint) bitLen() int {
	return b.v.BitLen()
}

// numBeats returns how many beats of lane bytes carry the payload. An
// explicit length in bytes takes precedence over the size of the payload.
func numBeats(d Data, length int, lane int) int {
	laneBits := lane * 8

	n := 0
	switch {
	case length > 0:
		n = (length + lane - 1) / lane
	case d != nil:
		n = (d.bitLen() + laneBits - 1) / laneBits
	}

	if n < 1 {
		n = 1
	}

	return n
}

// beatSlice returns the lane bytes of beat i, zero padded.
func beatSlice(d Data, i int, lane int) []byte {
	out := make([]byte, lane)
	if d == nil {
		return out
	}

	le := d.littleEndian()

	start := i * lane
	if start >= len(le) {
		return out
	}

	copy(out, le[start:])

	return out
}

// An Option adjusts a single read or write call.
type Option func(o *options)

type options struct {
	strobe    uint64
	hasStrobe bool
	expectErr bool
	length    int
	expected  Data
}

// WithStrobe sets the byte enable of every write beat of the call. Bit i of
// mask enables byte lane i. Without it all the lanes are enabled.
func WithStrobe(mask uint64) Option {
	return func(o *options) {
		o.strobe = mask
		o.hasStrobe = true
	}
}

// ExpectError makes the call expect the subordinate to answer every beat
// with the err signal set.
func ExpectError() Option {
	return func(o *options) {
		o.expectErr = true
	}
}

// WithLength sets the number of bytes to transfer. It overrides the length
// derived from the payload.
func WithLength(n int) Option {
	return func(o *options) {
		o.length = n
	}
}

// WithExpected makes a read compare the returned data beat by beat with d.
// It also sizes the read when no length is given.
func WithExpected(d Data) Option {
	return func(o *options) {
		o.expected = d
	}
}

func collectOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
