package value

import (
	"strings"

	"github.com/mna/corevm/gc"
)

// BracketKind distinguishes a tuple built with parens from one built with
// square brackets, a cosmetic flag janet keeps so the printer can round-trip
// the reader's original bracket choice (§3: "tuples... carry a bracket-kind
// flag (paren vs square) used only for printing").
type BracketKind uint8

const (
	BracketParen BracketKind = iota
	BracketSquare
)

// Tuple is an immutable, fixed-length sequence (§3). Its hash is computed
// once at construction and cached, since tuples are used as table/struct
// keys and frequently re-hashed.
type Tuple struct {
	hdr     gc.Header
	data    []Value
	hash    uint32
	bracket BracketKind
	// source line/col, for tuples produced by a reader with source tracking;
	// zero when not applicable (§3's sourcemap note applies to FuncDef, but
	// janet's tuple also optionally carries its own source position).
	line, col int
}

// NewTuple allocates an immutable Tuple from elems (copied) registered with h.
func NewTuple(h *gc.Heap, elems []Value, bracket BracketKind) *Tuple {
	data := append([]Value(nil), elems...)
	t := &Tuple{data: data, bracket: bracket}
	t.hash = hashTuple(data)
	h.Register(t, gc.KindTuple, uint64(16+len(data)*16))
	return t
}

// SetSourcePos records the reader position this tuple was parsed at.
func (t *Tuple) SetSourcePos(line, col int) { t.line, t.col = line, col }

// SourcePos returns the recorded reader position, or (0,0) if unset.
func (t *Tuple) SourcePos() (int, int) { return t.line, t.col }

func (t *Tuple) Kind() Kind        { return KindTuple }
func (t *Tuple) Bracket() BracketKind { return t.bracket }
func (t *Tuple) Length() int       { return len(t.data) }
func (t *Tuple) Hash() (uint32, error) { return t.hash, nil }

func (t *Tuple) String() string {
	var sb strings.Builder
	open, close := '(', ')'
	if t.bracket == BracketSquare {
		open, close = '[', ']'
	}
	sb.WriteRune(open)
	for i, v := range t.data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(v.String())
	}
	sb.WriteRune(close)
	return sb.String()
}

func (t *Tuple) GetIndex(i int) (Value, error) {
	if i < 0 || i >= len(t.data) {
		return nil, errIndexRange(i, len(t.data))
	}
	return t.data[i], nil
}

func (t *Tuple) Cmp(y Value) (int, error) {
	yt, ok := y.(*Tuple)
	if !ok {
		return 0, errNotOrdered(t, y)
	}
	n := len(t.data)
	if len(yt.data) < n {
		n = len(yt.data)
	}
	for i := 0; i < n; i++ {
		c, err := Compare(t.data[i], yt.data[i])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	switch {
	case len(t.data) < len(yt.data):
		return -1, nil
	case len(t.data) > len(yt.data):
		return 1, nil
	default:
		return 0, nil
	}
}

func (t *Tuple) Iterate() Iterator { return &sliceIterator{data: t.data} }

func (t *Tuple) GCHeader() *gc.Header { return &t.hdr }

func (t *Tuple) GCMark(h *gc.Heap, depth int) {
	for _, v := range t.data {
		if o, ok := v.(gc.Object); ok {
			h.Mark(o, depth+1)
		}
	}
}

func (t *Tuple) GCFinalize() {}

// hashTuple combines per-element hashes with an FNV-style mixing step,
// matching the way janet folds a tuple's element hashes into one value
// (§4.A: "tuple/struct hashing folds element hashes with the same FNV
// constant used for byte vectors").
func hashTuple(elems []Value) uint32 {
	h := uint32(2166136261)
	for _, v := range elems {
		eh, err := Hash(v)
		if err != nil {
			eh = 0
		}
		h ^= eh
		h *= 16777619
	}
	return h
}

// TupleBuilder incrementally constructs a Tuple (§3's begin/end builder
// pattern used by the interpreter's tuple-construction opcodes).
type TupleBuilder struct {
	elems   []Value
	bracket BracketKind
}

// BeginTuple starts a new tuple builder with room for n elements.
func BeginTuple(n int) *TupleBuilder {
	return &TupleBuilder{elems: make([]Value, 0, n)}
}

func (b *TupleBuilder) Put(v Value) { b.elems = append(b.elems, v) }

func (b *TupleBuilder) SetBracket(k BracketKind) { b.bracket = k }

// End finalizes the builder into an immutable Tuple registered with h.
func (b *TupleBuilder) End(h *gc.Heap) *Tuple {
	return NewTuple(h, b.elems, b.bracket)
}

// TuplePrepend returns a new tuple with v prepended to t's elements.
func TuplePrepend(h *gc.Heap, v Value, t *Tuple) *Tuple {
	out := make([]Value, 0, len(t.data)+1)
	out = append(out, v)
	out = append(out, t.data...)
	return NewTuple(h, out, t.bracket)
}

// TupleAppend returns a new tuple with v appended to t's elements.
func TupleAppend(h *gc.Heap, t *Tuple, v Value) *Tuple {
	out := make([]Value, 0, len(t.data)+1)
	out = append(out, t.data...)
	out = append(out, v)
	return NewTuple(h, out, t.bracket)
}

// TupleSlice returns a new tuple holding the half-open range [from,to) of
// t's elements, per §4.C's slice semantics: negative indices count from
// len(t), and to == -1 means len(t).
func TupleSlice(h *gc.Heap, t *Tuple, from, to int) *Tuple {
	from, to = normalizeRange(from, to, len(t.data))
	if from >= to {
		return NewTuple(h, nil, t.bracket)
	}
	return NewTuple(h, t.data[from:to], t.bracket)
}
