package obi_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/obi/obi"
)

var _ = Describe("Errors", func() {
	It("should format timeouts", func() {
		err := &obi.TimeoutError{Phase: obi.PhaseGrant, Addr: 0x10, Cycles: 5}
		Expect(err.Error()).To(Equal(
			"Request timeout: No gnt after 5 cycles (addr=0x00000010)"))

		err = &obi.TimeoutError{Phase: obi.PhaseResponse, Addr: 0x20, Cycles: 7}
		Expect(err.Error()).To(Equal(
			"Response timeout: No rvalid after 7 cycles (addr=0x00000020)"))
	})

	It("should format error flags", func() {
		err := &obi.ErrorFlagError{Addr: 0x4, Got: true}
		Expect(err.Error()).To(Equal(
			"ERR: incorrect error received 1 (expected 0) at addr 0x00000004"))
	})

	It("should format mismatches", func() {
		err := &obi.MismatchError{
			Addr:     0x8,
			Expected: []byte{0x21, 0x43},
			Got:      []byte{0x00, 0x43},
		}
		Expect(err.Error()).To(Equal(
			"Expected 0x4321 doesn't match returned 0x4300 (addr=0x00000008)"))
	})

	It("should match the sentinels through wrapping", func() {
		wrap := func(err error) error { return fmt.Errorf("outer: %w", err) }

		Expect(errors.Is(wrap(&obi.TimeoutError{}), obi.ErrProtocolTimeout)).
			To(BeTrue())
		Expect(errors.Is(wrap(&obi.AddressError{}), obi.ErrAddressOutOfRange)).
			To(BeTrue())
		Expect(errors.Is(wrap(&obi.ErrorFlagError{}), obi.ErrUnexpectedErrorFlag)).
			To(BeTrue())
		Expect(errors.Is(wrap(&obi.MismatchError{}), obi.ErrDataMismatch)).
			To(BeTrue())
		Expect(errors.Is(&obi.MismatchError{}, obi.ErrProtocolTimeout)).
			To(BeFalse())

		var te *obi.TimeoutError
		Expect(errors.As(wrap(&obi.TimeoutError{Cycles: 3}), &te)).To(BeTrue())
		Expect(te.Cycles).To(Equal(3))
	})
})

var _ = Describe("Little endian helpers", func() {
	It("should decode and encode", func() {
		Expect(obi.LittleEndianUint([]byte{0x21, 0x43, 0x65, 0x87})).
			To(Equal(uint64(0x87654321)))
		Expect(obi.LittleEndianUint(nil)).To(BeZero())
		Expect(obi.PutLittleEndian(0x87654321, 4)).
			To(Equal([]byte{0x21, 0x43, 0x65, 0x87}))
		Expect(obi.PutLittleEndian(0x1234, 3)).
			To(Equal([]byte{0x34, 0x12, 0x00}))
	})

	It("should format hex strings most significant byte first", func() {
		Expect(obi.HexString([]byte{0x01, 0xab})).To(Equal("0xab01"))
		Expect(obi.HexString(nil)).To(Equal("0x0"))
	})
})
