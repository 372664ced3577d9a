package sim

import "log"

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &HookPos{Name: "Buffer Pop"}

// A Buffer is a fifo queue for anything
type Buffer interface {
	Named
	Hookable

	CanPush() bool
	Push(e any)
	Pop() any
	Peek() any
	Capacity() int
	Size() int

	// RemoveFirst removes and returns the oldest element that matches. It
	// returns nil if no element matches.
	RemoveFirst(match func(e any) bool) any

	// Remove all elements in the buffer
	Clear()
}

// NewBuffer creates a default buffer object. A capacity that is not positive
// makes the buffer unbounded.
func NewBuffer(name string, capacity int) Buffer {
	NameMustBeValid(name)

	return &bufferImpl{
		HookableBase: NewHookableBase(),
		name:         name,
		capacity:     capacity,
	}
}

type bufferImpl struct {
	*HookableBase

	name     string
	capacity int
	elements []any
}

// Name returns the name of the buffer.
func (b *bufferImpl) Name() string {
	return b.name
}

func (b *bufferImpl) CanPush() bool {
	return b.capacity <= 0 || len(b.elements) < b.capacity
}

func (b *bufferImpl) Push(e any) {
	if !b.CanPush() {
		log.Panicf("buffer %s overflow", b.name)
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}
}

func (b *bufferImpl) Pop() any {
	if len(b.elements) == 0 {
		return nil
	}

	e := b.elements[0]
	b.elements[0] = nil
	b.elements = b.elements[1:]

	b.popped(e)

	return e
}

func (b *bufferImpl) RemoveFirst(match func(e any) bool) any {
	for i, e := range b.elements {
		if !match(e) {
			continue
		}

		b.elements = append(b.elements[:i], b.elements[i+1:]...)
		b.popped(e)

		return e
	}

	return nil
}

func (b *bufferImpl) popped(e any) {
	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}
}

func (b *bufferImpl) Peek() any {
	if len(b.elements) == 0 {
		return nil
	}

	return b.elements[0]
}

func (b *bufferImpl) Capacity() int {
	return b.capacity
}

func (b *bufferImpl) Size() int {
	return len(b.elements)
}

func (b *bufferImpl) Clear() {
	b.elements = nil
}
