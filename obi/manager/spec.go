package manager

import "fmt"

// Spec configures a manager driver.
type Spec struct {
	// TimeoutCycles bounds the wait for gnt and the wait for rvalid of every
	// beat. A negative value disables the bound.
	TimeoutCycles int

	// PendingCapacity limits the number of beats waiting to be dispatched.
	// Zero means unbounded.
	PendingCapacity int

	// CompletedCapacity limits the number of read responses waiting to be
	// consumed. Zero means unbounded.
	CompletedCapacity int
}

// Defaults returns the default configuration.
func Defaults() Spec {
	return Spec{
		TimeoutCycles:     1000,
		PendingCapacity:   0,
		CompletedCapacity: 0,
	}
}

// Validate checks that the configuration is usable.
func (s Spec) Validate() error {
	if s.PendingCapacity < 0 {
		return fmt.Errorf("pending capacity must not be negative, got %d",
			s.PendingCapacity)
	}

	if s.CompletedCapacity < 0 {
		return fmt.Errorf("completed capacity must not be negative, got %d",
			s.CompletedCapacity)
	}

	return nil
}

func (s Spec) timeoutEnabled() bool {
	return s.TimeoutCycles >= 0
}
