// Package gc implements the tracing mark-sweep collector that manages the
// lifetime of every heap-allocated runtime value (strings, symbols, arrays,
// buffers, tables, structs, tuples, functions, fibers, funcenvs, funcdefs and
// abstract values). Go already manages the memory behind every object this
// package tracks, so gc does not allocate or free bytes itself; instead it
// reproduces the language-level guarantees a host GC does not know about on
// its own: deterministic collection points, weak containers whose entries
// must be dropped when their key or value becomes unreachable, root pinning,
// and finalization of native resources (open file handles wrapped by an
// Abstract, detached FuncEnv backing arrays, and so on).
package gc

// Kind identifies the type of a heap-allocated object, mirroring the
// MEMORY_* type tags of the low bits of a GCObject's flags.
type Kind uint8

const (
	KindString Kind = iota
	KindSymbol
	KindKeyword
	KindArray
	KindBuffer
	KindTable
	KindStruct
	KindTuple
	KindFunction
	KindFiber
	KindFuncEnv
	KindFuncDef
	KindAbstract
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindKeyword:
		return "keyword"
	case KindArray:
		return "array"
	case KindBuffer:
		return "buffer"
	case KindTable:
		return "table"
	case KindStruct:
		return "struct"
	case KindTuple:
		return "tuple"
	case KindFunction:
		return "function"
	case KindFiber:
		return "fiber"
	case KindFuncEnv:
		return "funcenv"
	case KindFuncDef:
		return "funcdef"
	case KindAbstract:
		return "abstract"
	default:
		return "unknown"
	}
}

const (
	flagReachable uint32 = 1 << iota
	flagDisabled         // gc-pinned: never swept regardless of reachability
	flagWeak             // lives on the weak heap list, not the main list
)

// Header is the embedded GC bookkeeping struct every heap-allocated value
// carries (the analog of Janet's GCObject: flags plus an intrusive next
// pointer threading the heap's free-list-free linked list of live objects).
type Header struct {
	kind  Kind
	flags uint32
	next  *Header
	obj   Object
}

// Kind reports the object's type tag.
func (h *Header) Kind() Kind { return h.kind }

// Disable pins the object so that it survives collection regardless of
// reachability, the per-object analog of Janet's DISABLED bit.
func (h *Header) Disable() { h.flags |= flagDisabled }

// Enable clears the per-object GC pin installed by Disable.
func (h *Header) Enable() { h.flags &^= flagDisabled }

func (h *Header) reachable() bool { return h.flags&flagReachable != 0 }
func (h *Header) disabled() bool  { return h.flags&flagDisabled != 0 }

// Object is implemented by every heap-allocated runtime value.
type Object interface {
	// GCHeader returns the object's embedded bookkeeping header.
	GCHeader() *Header
	// GCMark marks every value directly reachable from this object. depth is
	// this object's nesting level below the root that started marking;
	// implementations mark each child with Heap.Mark(child, depth+1), which
	// schedules the child as overflow work instead of recursing once depth
	// reaches RecursionGuard.
	GCMark(h *Heap, depth int)
	// GCFinalize releases any native resource owned by the object (backing
	// arrays, file descriptors held by an Abstract, etc). It is called
	// exactly once, right before the object is unlinked from the heap.
	GCFinalize()
}

// WeakPurger is implemented by weak containers (weak-key, weak-value,
// weak-both tables, and weak arrays). During the weak-heap pre-pass of a
// collection cycle, PurgeUnreachable is called on every weak container that
// is itself reachable, so it can drop entries whose key and/or value did not
// survive marking.
type WeakPurger interface {
	PurgeUnreachable(h *Heap)
}

// headerSize approximates sizeof(GCObject) for interval amortization; it has
// no effect on correctness, only on how eagerly Collect is retriggered.
const headerSize = 32

// Heap is the per-VM GC context: the live object lists, the root stack, the
// collection-suspend counter and scratch memory. Spec §9's design note calls
// for an explicit VM-context handle rather than thread-local globals; Heap is
// that handle for the memory-management concern.
type Heap struct {
	head     *Header // main heap list
	weakHead *Header // weak heap list
	count    int

	roots   []Object
	suspend int

	nextCollection uint64
	interval       uint64

	pending []Object // overflow work scheduled by recursion-guarded marking

	scratch []scratchBlock
}

type scratchBlock struct {
	data     []byte
	finalize func()
}

// NewHeap returns a Heap whose first collection triggers once interval
// bytes' worth of allocation pressure have accumulated.
func NewHeap(interval uint64) *Heap {
	if interval == 0 {
		interval = 4096
	}
	return &Heap{interval: interval}
}

// Register links a freshly allocated object into the main heap list and
// applies size bytes of allocation pressure, the analog of gc_alloc.
func (h *Heap) Register(o Object, kind Kind, size uint64) {
	hdr := o.GCHeader()
	hdr.kind = kind
	hdr.obj = o
	hdr.next = h.head
	h.head = hdr
	h.count++
	h.Pressure(size)
}

// RegisterWeak links o into the separate weak-heap list instead of the main
// list, per spec §4.B.
func (h *Heap) RegisterWeak(o Object, kind Kind, size uint64) {
	hdr := o.GCHeader()
	hdr.kind = kind
	hdr.flags |= flagWeak
	hdr.obj = o
	hdr.next = h.weakHead
	h.weakHead = hdr
	h.count++
	h.Pressure(size)
}

// Pressure increments the running allocation counter that triggers a
// collection once it crosses the current interval.
func (h *Heap) Pressure(n uint64) { h.nextCollection += n }

// ShouldCollect reports whether accumulated pressure has crossed the
// interval and collection is not currently suspended.
func (h *Heap) ShouldCollect() bool {
	return h.suspend == 0 && h.nextCollection >= h.interval
}

// MaybeCollect runs a collection if pressure has crossed the interval and
// collection is not suspended; extraRoots are additional values to treat as
// reachable for this cycle only (typically the currently running fiber).
// It reports whether a collection actually ran.
func (h *Heap) MaybeCollect(extraRoots ...Object) bool {
	if !h.ShouldCollect() {
		return false
	}
	h.Collect(extraRoots...)
	return true
}

// RecursionGuard bounds the depth of recursive marking before remaining work
// is scheduled on an overflow work list instead of growing the Go call
// stack, mirroring Janet's RECURSION_GUARD.
const RecursionGuard = 1024

// Collect runs one full mark-sweep cycle. It is a no-op while collection is
// suspended (Lock held). extraRoots lets the caller mark additional values,
// such as the currently executing fiber, without permanently rooting them.
func (h *Heap) Collect(extraRoots ...Object) {
	if h.suspend > 0 {
		return
	}

	h.pending = h.pending[:0]
	for _, r := range extraRoots {
		h.mark(r, 0)
	}
	// Marking may itself push more roots (spec §4.B step 3): re-reading
	// len(h.roots) on every iteration keeps scanning until the root stack
	// stops growing.
	for i := 0; i < len(h.roots); i++ {
		h.mark(h.roots[i], 0)
	}
	h.drainPending()

	h.sweepWeak()
	h.sweepMain()
	h.clearReachable()

	h.nextCollection = 0
	if want := uint64(h.count) * headerSize; want > h.interval {
		h.interval = want
	}
	h.freeScratch()
}

func (h *Heap) drainPending() {
	for len(h.pending) > 0 {
		batch := h.pending
		h.pending = nil
		for _, o := range batch {
			o.GCMark(h, 0)
		}
	}
}

// mark marks o reachable and, while depth is below RecursionGuard, recurses
// into it via GCMark. At RecursionGuard the object is scheduled for a later,
// iterative marking pass instead of recursing further.
func (h *Heap) mark(o Object, depth int) {
	if o == nil {
		return
	}
	hdr := o.GCHeader()
	if hdr.reachable() {
		return
	}
	hdr.flags |= flagReachable
	if depth >= RecursionGuard {
		h.pending = append(h.pending, o)
		return
	}
	o.GCMark(h, depth)
}

// Mark is the entry point compound objects use from within GCMark to mark a
// child value; it is equivalent to mark but exported for use outside the
// package (container and fiber implementations live in other packages).
func (h *Heap) Mark(o Object, depth int) { h.mark(o, depth) }

// IsReachable reports whether o survived the most recent mark phase. Weak
// containers call this from PurgeUnreachable to decide which entries to
// drop.
func (h *Heap) IsReachable(o Object) bool {
	if o == nil {
		return false
	}
	return o.GCHeader().reachable()
}

func (h *Heap) sweepWeak() {
	for cur := h.weakHead; cur != nil; cur = cur.next {
		if cur.reachable() {
			if wp, ok := cur.obj.(WeakPurger); ok {
				wp.PurgeUnreachable(h)
			}
		}
	}

	var prev *Header
	cur := h.weakHead
	for cur != nil {
		next := cur.next
		if !cur.reachable() && !cur.disabled() {
			cur.obj.GCFinalize()
			h.count--
			if prev == nil {
				h.weakHead = next
			} else {
				prev.next = next
			}
		} else {
			prev = cur
		}
		cur = next
	}
}

func (h *Heap) sweepMain() {
	var prev *Header
	cur := h.head
	for cur != nil {
		next := cur.next
		if !cur.reachable() && !cur.disabled() {
			cur.obj.GCFinalize()
			h.count--
			if prev == nil {
				h.head = next
			} else {
				prev.next = next
			}
		} else {
			prev = cur
		}
		cur = next
	}
}

func (h *Heap) clearReachable() {
	for cur := h.head; cur != nil; cur = cur.next {
		cur.flags &^= flagReachable
	}
	for cur := h.weakHead; cur != nil; cur = cur.next {
		cur.flags &^= flagReachable
	}
}

// Root pushes v onto the GC root stack, pinning it and everything
// transitively reachable from it against collection.
func (h *Heap) Root(v Object) { h.roots = append(h.roots, v) }

// Unroot removes the top-most occurrence of v (by identity) from the root
// stack. It reports whether an occurrence was found.
func (h *Heap) Unroot(v Object) bool {
	for i := len(h.roots) - 1; i >= 0; i-- {
		if h.roots[i] == v {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return true
		}
	}
	return false
}

// UnrootAll removes every occurrence of v from the root stack, returning how
// many were removed.
func (h *Heap) UnrootAll(v Object) int {
	n := 0
	out := h.roots[:0]
	for _, r := range h.roots {
		if r == v {
			n++
			continue
		}
		out = append(out, r)
	}
	h.roots = out
	return n
}

// LockHandle is the opaque suspend-count snapshot returned by Lock.
type LockHandle struct{ prev int }

// Lock suspends collection, returning a handle that restores the prior
// suspend count when passed to Unlock. Lock/Unlock calls may be nested.
func (h *Heap) Lock() LockHandle {
	prev := h.suspend
	h.suspend++
	return LockHandle{prev: prev}
}

// Unlock restores the suspend counter to its value before the matching
// Lock call.
func (h *Heap) Unlock(handle LockHandle) { h.suspend = handle.prev }

// Suspended reports whether collection is currently suspended.
func (h *Heap) Suspended() bool { return h.suspend > 0 }

// ScratchAlloc allocates a scratch memory block of n bytes that will be
// released (via finalize, if non-nil) en masse at the end of the next
// collection cycle, or explicitly via ScratchFree.
func (h *Heap) ScratchAlloc(n int, finalize func()) []byte {
	b := make([]byte, n)
	h.scratch = append(h.scratch, scratchBlock{data: b, finalize: finalize})
	return b
}

// ScratchFree explicitly releases a block previously returned by
// ScratchAlloc. It is a linear search by design (scratch lists are expected
// to be short-lived and small) and fails fatally (panics) on an unknown
// pointer, matching srealloc's documented behavior.
func (h *Heap) ScratchFree(p []byte) {
	for i, b := range h.scratch {
		if &b.data[0] == &p[0] {
			if b.finalize != nil {
				b.finalize()
			}
			h.scratch = append(h.scratch[:i], h.scratch[i+1:]...)
			return
		}
	}
	panic("gc: ScratchFree of unknown pointer")
}

func (h *Heap) freeScratch() {
	for _, b := range h.scratch {
		if b.finalize != nil {
			b.finalize()
		}
	}
	h.scratch = h.scratch[:0]
}

// Count returns the number of live objects currently tracked (main heap plus
// weak heap).
func (h *Heap) Count() int { return h.count }
