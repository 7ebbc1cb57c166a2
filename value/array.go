package value

import (
	"strings"

	"github.com/mna/corevm/gc"
)

// Array is a mutable, growable sequence of values (§3, §4.C). It grows
// geometrically (capacity at least doubles) to amortize append cost, the
// same strategy janet's native array uses.
type Array struct {
	hdr  gc.Header
	data []Value
}

// NewArray allocates and registers a new empty Array with the given heap,
// pre-sizing its backing store to capacity.
func NewArray(h *gc.Heap, capacity int) *Array {
	a := &Array{data: make([]Value, 0, capacity)}
	h.Register(a, gc.KindArray, uint64(8+capacity*16))
	return a
}

func (a *Array) Kind() Kind { return KindArray }

func (a *Array) String() string {
	var sb strings.Builder
	sb.WriteByte('@')
	sb.WriteByte('[')
	for i, v := range a.data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (a *Array) Length() int { return len(a.data) }

func (a *Array) GetIndex(i int) (Value, error) {
	if i < 0 || i >= len(a.data) {
		return nil, errIndexRange(i, len(a.data))
	}
	return a.data[i], nil
}

func (a *Array) SetIndex(i int, v Value) error {
	if i < 0 || i >= len(a.data) {
		return errIndexRange(i, len(a.data))
	}
	a.data[i] = v
	return nil
}

// Push appends v, growing the backing store geometrically when full.
func (a *Array) Push(v Value) {
	if len(a.data) == cap(a.data) {
		newCap := cap(a.data) * 2
		if newCap == 0 {
			newCap = 4
		}
		grown := make([]Value, len(a.data), newCap)
		copy(grown, a.data)
		a.data = grown
	}
	a.data = append(a.data, v)
}

// Pop removes and returns the last element, or (nil, false) if empty.
func (a *Array) Pop() (Value, bool) {
	if len(a.data) == 0 {
		return nil, false
	}
	v := a.data[len(a.data)-1]
	a.data[len(a.data)-1] = nil
	a.data = a.data[:len(a.data)-1]
	return v, true
}

// Peek returns the last element without removing it, or (nil, false) if
// empty (§4.C: "new(capacity), push, pop, peek, ...").
func (a *Array) Peek() (Value, bool) {
	if len(a.data) == 0 {
		return nil, false
	}
	return a.data[len(a.data)-1], true
}

// SetCount resizes the array to exactly n elements, filling any newly added
// slots with value.Nil and dropping any beyond n, per §4.C's "set_count
// (fills with nil/0)".
func (a *Array) SetCount(n int) {
	switch {
	case n <= len(a.data):
		for i := n; i < len(a.data); i++ {
			a.data[i] = nil
		}
		a.data = a.data[:n]
	default:
		a.Ensure(n, 1)
		for len(a.data) < n {
			a.data = append(a.data, Nil)
		}
	}
}

// Ensure grows the backing store, if needed, to hold at least capacity
// elements, reserving capacity*growth to amortize future pushes, per §4.C's
// "ensure(cap, growth) (geometric grow, saturating at INT32_MAX)". growth <
// 1 is treated as 1 (no extra headroom beyond capacity).
func (a *Array) Ensure(capacity, growth int) {
	if capacity <= cap(a.data) {
		return
	}
	if growth < 1 {
		growth = 1
	}
	newCap := capacity * growth
	const maxCap = 1<<31 - 1 // INT32_MAX
	if newCap > maxCap || newCap < 0 {
		newCap = maxCap
	}
	grown := make([]Value, len(a.data), newCap)
	copy(grown, a.data)
	a.data = grown
}

// Insert splices vals into the array starting at index at, shifting
// subsequent elements right. at may equal Length() to append.
func (a *Array) Insert(at int, vals ...Value) error {
	if at < 0 || at > len(a.data) {
		return errIndexRange(at, len(a.data))
	}
	if len(vals) == 0 {
		return nil
	}
	a.Ensure(len(a.data)+len(vals), 1)
	a.data = append(a.data, make([]Value, len(vals))...)
	copy(a.data[at+len(vals):], a.data[at:len(a.data)-len(vals)])
	copy(a.data[at:at+len(vals)], vals)
	return nil
}

// Remove deletes the n elements starting at index at, shifting subsequent
// elements left, and returns the removed elements.
func (a *Array) Remove(at, n int) ([]Value, error) {
	if at < 0 || n < 0 || at+n > len(a.data) {
		return nil, errIndexRange(at, len(a.data))
	}
	if n == 0 {
		return nil, nil
	}
	removed := make([]Value, n)
	copy(removed, a.data[at:at+n])
	copy(a.data[at:], a.data[at+n:])
	for i := len(a.data) - n; i < len(a.data); i++ {
		a.data[i] = nil
	}
	a.data = a.data[:len(a.data)-n]
	return removed, nil
}

// normalizeRange applies §4.C's slice semantics to raw bounds against a
// container of the given length: end == -1 means length, negative indices
// count from the end, and the result is clamped to a valid half-open
// [from,to) range with from <= to.
func normalizeRange(from, to, length int) (int, int) {
	if to == -1 {
		to = length
	}
	if from < 0 {
		from += length
	}
	if to < 0 {
		to += length
	}
	if from < 0 {
		from = 0
	}
	if from > length {
		from = length
	}
	if to < 0 {
		to = 0
	}
	if to > length {
		to = length
	}
	if from > to {
		from = to
	}
	return from, to
}

// Slice returns the elements in the half-open range [from,to) as a fresh Go
// slice (no copy-free aliasing: callers that want a new Array must build one
// explicitly), per §4.C's slice semantics (negative indices count from len,
// end=-1 means len).
func (a *Array) Slice(from, to int) []Value {
	from, to = normalizeRange(from, to, len(a.data))
	if from >= to {
		return nil
	}
	out := make([]Value, to-from)
	copy(out, a.data[from:to])
	return out
}

func (a *Array) Iterate() Iterator { return &sliceIterator{data: a.data} }

// GCHeader, GCMark and GCFinalize implement gc.Object.
func (a *Array) GCHeader() *gc.Header { return &a.hdr }

func (a *Array) GCMark(h *gc.Heap, depth int) {
	for _, v := range a.data {
		if o, ok := v.(gc.Object); ok {
			h.Mark(o, depth+1)
		}
	}
}

func (a *Array) GCFinalize() {}

type sliceIterator struct {
	data []Value
	pos  int
}

func (it *sliceIterator) Next() (Value, bool) {
	if it.pos >= len(it.data) {
		return nil, false
	}
	v := it.data[it.pos]
	it.pos++
	return v, true
}

func (it *sliceIterator) Done() {}
