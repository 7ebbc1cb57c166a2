package fiber

import (
	"fmt"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
)

// MaxCallDepth bounds the number of frames a fiber's call stack may hold,
// the analog of lang/machine's MaxCallStackDepth guard against runaway
// recursion exhausting memory instead of failing cleanly. A package
// variable rather than a const so a host (package vm's Config) can lower or
// raise it once at startup.
var MaxCallDepth = 4096

// Fiber is a green thread: its own value stack, its own call-frame stack,
// and the status/signal state machine that lets it suspend (YIELD) and be
// resumed by another fiber. Grounded on lang/machine's Thread (a live call
// stack plus a cancellation flag), generalized to a stack that can be
// paused and handed off instead of always running to completion.
//
// Unlike Janet's C implementation, which threads call-frame headers in the
// same array as value slots, Fiber keeps frames in a parallel slice: a
// StackFrame is not itself a value.Value, and modeling it as one would force
// every frame header through the Value interface for no benefit in Go. The
// two slices stay index-aligned (frame[i] describes the locals starting at
// data[base[i]+FrameSize]) so the semantic contract — contiguous locals per
// frame, frame overhead accounted against the same stack-growth bound — is
// preserved.
type Fiber struct {
	hdr gc.Header

	heap *gc.Heap

	data    []value.Value // value stack; data[0] is a reserved sentinel slot
	top     int            // index one past the last live value slot
	frame   []StackFrame   // call-frame stack
	base    []int          // base[i] = data index where frame[i] begins; its locals start FrameSize later
	stage   []value.Value  // pending PUSH/PUSH_2/PUSH_3/PUSH_ARRAY arguments
	retDest []int32        // dest slot recorded by the caller of each non-root frame
	yieldDest int32        // slot to receive the next resume's value, or -1

	status Status
	sig    Signal

	env *value.Table // fiber-local dynamic bindings, nil until first use

	parent *Fiber // the fiber that resumed this one, nil for a root fiber
	child  *Fiber // the fiber this one is currently resuming, nil if none

	lastValue value.Value // value passed to/returned from the last resume

	sigMask Mask // which child signals this fiber intercepts rather than reflects
}

// NewFiber creates a new fiber in status NEW with no frames pushed yet; Start
// installs the function it runs.
func NewFiber(h *gc.Heap, sigMask Mask) *Fiber {
	f := &Fiber{
		heap:      h,
		data:      make([]value.Value, 1, 64),
		sigMask:   sigMask,
		yieldDest: -1,
	}
	h.Register(f, gc.KindFiber, 64*8)
	return f
}

// Start installs fn as the fiber's root frame and readies it for its first
// Resume call. It must be called exactly once, before the fiber is ever
// resumed.
func (f *Fiber) Start(fn *code.Function, args []value.Value) error {
	return f.enterFunction(fn, args, false)
}

// Status reports the fiber's current state.
func (f *Fiber) Status() Status { return f.status }

// LastValue returns the value most recently passed into or returned from
// this fiber's resumption point.
func (f *Fiber) LastValue() value.Value { return f.lastValue }

// Parent returns the fiber that resumed this one, or nil.
func (f *Fiber) Parent() *Fiber { return f.parent }

// StackSlot implements code.FiberData.
func (f *Fiber) StackSlot(offset int) value.Value { return f.data[offset] }

// SetStackSlot implements code.FiberData.
func (f *Fiber) SetStackSlot(offset int, v value.Value) { f.data[offset] = v }

// ensure grows data so that indices up to n-1 are valid.
func (f *Fiber) ensure(n int) {
	if n <= len(f.data) {
		return
	}
	grown := make([]value.Value, n, n*2)
	copy(grown, f.data)
	f.data = grown
}

// currentFrame returns a pointer to the active frame, or nil if the fiber
// has no frames.
func (f *Fiber) currentFrame() *StackFrame {
	if len(f.frame) == 0 {
		return nil
	}
	return &f.frame[len(f.frame)-1]
}

// localsBase returns the data index of the active frame's first local slot.
func (f *Fiber) localsBase() int {
	return f.base[len(f.base)-1] + FrameSize
}

// pushFrame pushes a new frame for fn, reserving FrameSize+slotCount value
// slots at the top of the stack. It returns an error if the resulting depth
// or stack size would exceed the fiber's bounds.
func (f *Fiber) pushFrame(fn *code.Function, slotCount int, entrance bool) error {
	if len(f.frame) >= MaxCallDepth {
		return fmt.Errorf("fiber: call stack depth exceeded (%d)", MaxCallDepth)
	}
	base := f.top
	need := base + FrameSize + slotCount
	f.ensure(need)
	for i := base; i < need; i++ {
		f.data[i] = value.Nil
	}
	f.top = need

	sf := StackFrame{Fn: fn, PrevFrame: -1}
	if len(f.frame) > 0 {
		sf.PrevFrame = len(f.frame) - 1
	}
	if entrance {
		sf.setEntrance()
	}
	f.frame = append(f.frame, sf)
	f.base = append(f.base, base)
	return nil
}

// popFrame detaches the active frame's env if one was captured on-stack,
// then removes the frame and unwinds the value stack to its base.
func (f *Fiber) popFrame() {
	sf := f.currentFrame()
	if sf != nil && sf.Env != nil && sf.Env.IsOnStack() {
		sf.Env.Detach()
	}
	base := f.base[len(f.base)-1]
	f.frame = f.frame[:len(f.frame)-1]
	f.base = f.base[:len(f.base)-1]
	f.top = base
}

// replaceFrame reuses the active frame for a tail call to fn instead of
// pushing a new one, per §4.E: "TAILCALL reuses the current frame; the
// fiber's stack depth does not grow no matter how many tail calls chain".
func (f *Fiber) replaceFrame(fn *code.Function, slotCount int) error {
	sf := f.currentFrame()
	if sf.Env != nil && sf.Env.IsOnStack() {
		sf.Env.Detach()
	}
	base := f.base[len(f.base)-1]
	need := base + FrameSize + slotCount
	f.ensure(need)
	for i := base + FrameSize; i < need; i++ {
		f.data[i] = value.Nil
	}
	for i := need; i < f.top; i++ {
		f.data[i] = nil
	}
	f.top = need

	wasEntrance := sf.entrance()
	*sf = StackFrame{Fn: fn, PrevFrame: sf.PrevFrame}
	sf.setTailcall()
	if wasEntrance {
		sf.setEntrance()
	}
	return nil
}

func (f *Fiber) GCHeader() *gc.Header { return &f.hdr }

func (f *Fiber) GCMark(h *gc.Heap, depth int) {
	for i := 1; i < f.top; i++ {
		if o, ok := f.data[i].(gc.Object); ok {
			h.Mark(o, depth+1)
		}
	}
	for _, v := range f.stage {
		if o, ok := v.(gc.Object); ok {
			h.Mark(o, depth+1)
		}
	}
	for i := range f.frame {
		sf := &f.frame[i]
		if sf.Fn != nil {
			h.Mark(sf.Fn, depth+1)
		}
		if sf.Env != nil {
			h.Mark(sf.Env, depth+1)
		}
	}
	if f.env != nil {
		h.Mark(f.env, depth+1)
	}
	if f.child != nil {
		h.Mark(f.child, depth+1)
	}
	if o, ok := f.lastValue.(gc.Object); ok {
		h.Mark(o, depth+1)
	}
}

func (f *Fiber) GCFinalize() {}

func (f *Fiber) Kind() value.Kind { return value.KindFiber }

func (f *Fiber) String() string {
	return fmt.Sprintf("<fiber %p %s>", f, f.status)
}

// Arity satisfies value.Callable: resuming a fiber as a call always takes
// the single value passed to the next yield point.
func (f *Fiber) Arity() (min, max int) { return 0, 1 }

var _ value.Callable = (*Fiber)(nil)
var _ code.FiberData = (*Fiber)(nil)
