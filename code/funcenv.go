package code

import (
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
)

// FiberData is the minimal view package fiber exposes back to FuncEnv so it
// can reach into a live fiber's value stack without code importing fiber
// (which itself imports code) — avoiding an import cycle. The fiber
// package's *Fiber satisfies this.
type FiberData interface {
	gc.Object
	StackSlot(offset int) value.Value
	SetStackSlot(offset int, v value.Value)
}

// FuncEnv is a captured activation record for upvalues (§3, §4.D). It is
// either on-stack (Offset > 0, aliasing a live fiber's data) or detached
// (Offset == 0, owning its own Values slice).
type FuncEnv struct {
	hdr gc.Header

	Fiber  FiberData
	Offset int
	Length int

	// Values holds the detached copy once the owning frame is popped while
	// the env is still referenced; nil while on-stack.
	Values []value.Value
}

// NewOnStackEnv creates a FuncEnv aliasing a live activation.
func NewOnStackEnv(h *gc.Heap, fiber FiberData, offset, length int) *FuncEnv {
	e := &FuncEnv{Fiber: fiber, Offset: offset, Length: length}
	h.Register(e, gc.KindFuncEnv, uint64(16+length*8))
	return e
}

// IsOnStack reports whether e still aliases a live fiber's data.
func (e *FuncEnv) IsOnStack() bool { return e.Offset > 0 }

// Get reads slot i (0-based within the captured activation).
func (e *FuncEnv) Get(i int) value.Value {
	if e.IsOnStack() {
		return e.Fiber.StackSlot(e.Offset + i)
	}
	return e.Values[i]
}

// Set writes slot i.
func (e *FuncEnv) Set(i int, v value.Value) {
	if e.IsOnStack() {
		e.Fiber.SetStackSlot(e.Offset+i, v)
		return
	}
	e.Values[i] = v
}

// Detach copies the on-stack slots into an owned Values array and clears
// Offset, per §4.D's "env detachment" rule: called when a frame that owns
// an on-stack env is about to be popped and the env is still referenced.
func (e *FuncEnv) Detach() {
	if !e.IsOnStack() {
		return
	}
	values := make([]value.Value, e.Length)
	for i := range values {
		values[i] = e.Fiber.StackSlot(e.Offset + i)
	}
	e.Values = values
	e.Offset = 0
	e.Fiber = nil
}

func (e *FuncEnv) GCHeader() *gc.Header { return &e.hdr }

func (e *FuncEnv) GCMark(h *gc.Heap, depth int) {
	if e.IsOnStack() {
		h.Mark(e.Fiber, depth+1)
		return
	}
	for _, v := range e.Values {
		if o, ok := v.(gc.Object); ok {
			h.Mark(o, depth+1)
		}
	}
}

func (e *FuncEnv) GCFinalize() {}
