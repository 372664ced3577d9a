package mem

import "fmt"

// WrappingTarget folds every address into [0, size) before it reaches the
// inner target, so that a small RAM answers the whole address space.
type WrappingTarget struct {
	inner Target
	size  uint64
}

// NewWrappingTarget wraps inner, which must accept addresses in [0, size).
func NewWrappingTarget(inner Target, size uint64) *WrappingTarget {
	if size == 0 {
		panic("wrapping target size must not be zero")
	}

	return &WrappingTarget{inner: inner, size: size}
}

// NewRAM creates a storage of size bytes that wraps around.
func NewRAM(size uint64) *WrappingTarget {
	return NewWrappingTarget(NewStorage(size), size)
}

// Size returns the number of distinct bytes.
func (w *WrappingTarget) Size() uint64 {
	return w.size
}

// Read reads length bytes. The range wraps to address zero at the end.
func (w *WrappingTarget) Read(addr, length uint64) ([]byte, error) {
	if length > w.size {
		return nil, fmt.Errorf("%w: %d bytes from a %d-byte target",
			ErrAddressOutOfRange, length, w.size)
	}

	start := addr % w.size
	if start+length <= w.size {
		return w.inner.Read(start, length)
	}

	head, err := w.inner.Read(start, w.size-start)
	if err != nil {
		return nil, err
	}

	tail, err := w.inner.Read(0, length-(w.size-start))
	if err != nil {
		return nil, err
	}

	return append(head, tail...), nil
}

// Write writes data. The range wraps to address zero at the end.
func (w *WrappingTarget) Write(addr uint64, data []byte) error {
	length := uint64(len(data))
	if length > w.size {
		return fmt.Errorf("%w: %d bytes to a %d-byte target",
			ErrAddressOutOfRange, length, w.size)
	}

	start := addr % w.size
	if start+length <= w.size {
		return w.inner.Write(start, data)
	}

	split := w.size - start
	if err := w.inner.Write(start, data[:split]); err != nil {
		return err
	}

	return w.inner.Write(0, data[split:])
}

// WriteStrobed writes the enabled bytes of data, one at a time.
func (w *WrappingTarget) WriteStrobed(addr uint64, data []byte, strobe uint64) error {
	for i, b := range data {
		if i >= 64 || strobe&(1<<i) == 0 {
			continue
		}

		if err := w.inner.Write((addr+uint64(i))%w.size, []byte{b}); err != nil {
			return err
		}
	}

	return nil
}
