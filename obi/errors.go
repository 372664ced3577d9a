package obi

import (
	"errors"
	"fmt"
)

// Errors reported by the bus-functional models. Use errors.Is to check the
// kind of a returned error.
var (
	// ErrProtocolTimeout means that no gnt or no rvalid was observed within
	// the configured number of cycles.
	ErrProtocolTimeout = errors.New("protocol timeout")

	// ErrAddressOutOfRange means that an address does not fit in the address
	// signal.
	ErrAddressOutOfRange = errors.New("address out of range")

	// ErrUnexpectedErrorFlag means that the err signal of a response does
	// not match what the caller expected.
	ErrUnexpectedErrorFlag = errors.New("unexpected error flag")

	// ErrDataMismatch means that read data does not match the expected
	// value supplied by the caller.
	ErrDataMismatch = errors.New("data mismatch")

	// ErrTargetFailure means that the storage behind a subordinate rejected
	// an access.
	ErrTargetFailure = errors.New("target failure")
)

// Handshake phases that can time out.
const (
	PhaseGrant    = "gnt"
	PhaseResponse = "rvalid"
)

// TimeoutError reports a handshake that did not complete in time.
type TimeoutError struct {
	Phase  string
	Addr   uint64
	Cycles int
}

func (e *TimeoutError) Error() string {
	kind := "Request"
	if e.Phase == PhaseResponse {
		kind = "Response"
	}

	return fmt.Sprintf("%s timeout: No %s after %d cycles (addr=0x%08x)",
		kind, e.Phase, e.Cycles, e.Addr)
}

// Is makes the error match ErrProtocolTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrProtocolTimeout
}

// AddressError reports an address that does not fit in the address signal.
type AddressError struct {
	Addr  uint64
	Width int
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address 0x%08x out of range for %d-bit address",
		e.Addr, e.Width)
}

// Is makes the error match ErrAddressOutOfRange.
func (e *AddressError) Is(target error) bool {
	return target == ErrAddressOutOfRange
}

// ErrorFlagError reports an err signal that differs from the expectation.
type ErrorFlagError struct {
	Addr     uint64
	Got      bool
	Expected bool
}

func (e *ErrorFlagError) Error() string {
	return fmt.Sprintf(
		"ERR: incorrect error received %d (expected %d) at addr 0x%08x",
		boolToBit(e.Got), boolToBit(e.Expected), e.Addr)
}

// Is makes the error match ErrUnexpectedErrorFlag.
func (e *ErrorFlagError) Is(target error) bool {
	return target == ErrUnexpectedErrorFlag
}

// MismatchError reports read data that differs from the expected value.
type MismatchError struct {
	Addr     uint64
	Expected []byte
	Got      []byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Expected %s doesn't match returned %s (addr=0x%08x)",
		HexString(e.Expected), HexString(e.Got), e.Addr)
}

// Is makes the error match ErrDataMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == ErrDataMismatch
}

func boolToBit(b bool) int {
	if b {
		return 1
	}

	return 0
}
