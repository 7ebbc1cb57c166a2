package value

import (
	"strconv"

	"github.com/mna/corevm/gc"
)

// Buffer is a mutable, growable byte vector (§3, §4.C) — the mutable
// counterpart of String, used to build up text or binary data incrementally.
type Buffer struct {
	hdr  gc.Header
	data []byte
}

// NewBuffer allocates and registers a new empty Buffer with the given heap.
func NewBuffer(h *gc.Heap, capacity int) *Buffer {
	b := &Buffer{data: make([]byte, 0, capacity)}
	h.Register(b, gc.KindBuffer, uint64(8+capacity))
	return b
}

func (b *Buffer) Kind() Kind     { return KindBuffer }
func (b *Buffer) String() string { return strconv.Quote(string(b.data)) }
func (b *Buffer) Length() int    { return len(b.data) }
func (b *Buffer) Bytes() []byte  { return b.data }

func (b *Buffer) GetIndex(i int) (Value, error) {
	if i < 0 || i >= len(b.data) {
		return nil, errIndexRange(i, len(b.data))
	}
	return Number(b.data[i]), nil
}

func (b *Buffer) SetIndex(i int, v Value) error {
	if i < 0 || i >= len(b.data) {
		return errIndexRange(i, len(b.data))
	}
	n, ok := v.(Number)
	if !ok {
		return errWrongKind("buffer set-index", KindNumber, v)
	}
	b.data[i] = byte(AsInt(n))
	return nil
}

// Push appends raw bytes to the buffer.
func (b *Buffer) Push(p []byte) { b.data = append(b.data, p...) }

// PushString appends the UTF-8 bytes of s.
func (b *Buffer) PushString(s string) { b.data = append(b.data, s...) }

// Pop removes and returns the last byte, or (0, false) if empty.
func (b *Buffer) Pop() (byte, bool) {
	if len(b.data) == 0 {
		return 0, false
	}
	v := b.data[len(b.data)-1]
	b.data = b.data[:len(b.data)-1]
	return v, true
}

// Peek returns the last byte without removing it, or (0, false) if empty
// (§4.C: "new(capacity), push, pop, peek, ...").
func (b *Buffer) Peek() (byte, bool) {
	if len(b.data) == 0 {
		return 0, false
	}
	return b.data[len(b.data)-1], true
}

// SetCount resizes the buffer to exactly n bytes, filling any newly added
// bytes with 0 and dropping any beyond n, per §4.C's "set_count (fills with
// nil/0)".
func (b *Buffer) SetCount(n int) {
	switch {
	case n <= len(b.data):
		b.data = b.data[:n]
	default:
		b.Ensure(n, 1)
		for len(b.data) < n {
			b.data = append(b.data, 0)
		}
	}
}

// Ensure grows the backing store, if needed, to hold at least capacity
// bytes, reserving capacity*growth to amortize future pushes, per §4.C's
// "ensure(cap, growth) (geometric grow, saturating at INT32_MAX)". growth <
// 1 is treated as 1.
func (b *Buffer) Ensure(capacity, growth int) {
	if capacity <= cap(b.data) {
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
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
}

// Insert splices p into the buffer starting at index at, shifting subsequent
// bytes right. at may equal Length() to append.
func (b *Buffer) Insert(at int, p []byte) error {
	if at < 0 || at > len(b.data) {
		return errIndexRange(at, len(b.data))
	}
	if len(p) == 0 {
		return nil
	}
	b.Ensure(len(b.data)+len(p), 1)
	b.data = append(b.data, make([]byte, len(p))...)
	copy(b.data[at+len(p):], b.data[at:len(b.data)-len(p)])
	copy(b.data[at:at+len(p)], p)
	return nil
}

// Remove deletes the n bytes starting at index at, shifting subsequent bytes
// left, and returns the removed bytes.
func (b *Buffer) Remove(at, n int) ([]byte, error) {
	if at < 0 || n < 0 || at+n > len(b.data) {
		return nil, errIndexRange(at, len(b.data))
	}
	if n == 0 {
		return nil, nil
	}
	removed := make([]byte, n)
	copy(removed, b.data[at:at+n])
	copy(b.data[at:], b.data[at+n:])
	b.data = b.data[:len(b.data)-n]
	return removed, nil
}

// Slice returns the bytes in the half-open range [from,to) as a fresh copy,
// per §4.C's slice semantics (negative indices count from len, end=-1 means
// len).
func (b *Buffer) Slice(from, to int) []byte {
	from, to = normalizeRange(from, to, len(b.data))
	if from >= to {
		return nil
	}
	out := make([]byte, to-from)
	copy(out, b.data[from:to])
	return out
}

// Clear empties the buffer without releasing its backing array.
func (b *Buffer) Clear() { b.data = b.data[:0] }

func (b *Buffer) GCHeader() *gc.Header      { return &b.hdr }
func (b *Buffer) GCMark(h *gc.Heap, depth int) {}
func (b *Buffer) GCFinalize()               {}
