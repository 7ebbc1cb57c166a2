// Package marshal implements the bit-exact point-to-point wire format of
// spec component §6: a leading type-tag byte per value, length-prefixed
// bytes for byte-backed types, element streams for containers and a
// structural encoding for FuncDefs and Functions, with a shared-object table
// so that repeated references to the same array/table/struct/tuple/buffer/
// FuncDef/Function round-trip as the same shared object rather than being
// duplicated.
//
// There is no format in the example corpus or its dependencies that speaks
// this runtime's own tagged-value model, so — the same way package asm's
// textual form has no ecosystem counterpart — this is built directly on
// encoding/binary and bytes rather than adapted from a serialization
// library.
package marshal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/coreerr"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
)

type tag byte

const (
	tagNil tag = iota
	tagFalse
	tagTrue
	tagInt
	tagFloat
	tagString
	tagSymbol
	tagKeyword
	tagArray
	tagTupleParen
	tagTupleSquare
	tagTable
	tagStruct
	tagBuffer
	tagFuncDef
	tagFunction
	tagRef
)

// Marshal encodes v into corevm's wire format. Containers and closures
// that are reachable more than once from v are written once
// and referenced thereafter by id, matching §6's "reconstruct sharing" (same
// hash-consed tuple/struct inputs reproduce the same outputs) requirement.
func Marshal(v value.Value) ([]byte, error) {
	w := &writer{buf: new(bytes.Buffer), seen: map[any]uint32{}}
	if err := w.value(v); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// Unmarshal decodes corevm's wire format back into a Value, allocating any
// heap objects it reconstructs on h.
func Unmarshal(h *gc.Heap, data []byte) (value.Value, error) {
	r := &reader{buf: bytes.NewReader(data), heap: h, objects: map[uint32]any{}}
	v, err := r.value()
	if err != nil {
		return nil, err
	}
	if r.buf.Len() > 0 {
		return nil, coreerr.NewVerificationError(coreerr.Str("marshal: trailing bytes after value"))
	}
	return v, nil
}

type writer struct {
	buf  *bytes.Buffer
	seen map[any]uint32
	err  error
}

func (w *writer) value(v value.Value) error {
	if w.err != nil {
		return w.err
	}
	if v == nil {
		v = value.Nil
	}

	switch val := v.(type) {
	case value.NilType:
		w.tag(tagNil)
	case value.Bool:
		if val {
			w.tag(tagTrue)
		} else {
			w.tag(tagFalse)
		}
	case value.Number:
		w.number(val)
	case value.String:
		w.tag(tagString)
		w.bytes(val.Bytes())
	case value.Symbol:
		w.tag(tagSymbol)
		w.bytes(val.Bytes())
	case value.Keyword:
		w.tag(tagKeyword)
		w.bytes(val.Bytes())
	case *value.Array:
		return w.array(val)
	case *value.Tuple:
		return w.tuple(val)
	case *value.Table:
		return w.table(val)
	case *value.Struct:
		return w.structVal(val)
	case *value.Buffer:
		return w.buffer(val)
	case *code.FuncDef:
		return w.funcDef(val)
	case *code.Function:
		return w.function(val)
	default:
		w.err = coreerr.NewTypeError(coreerr.Str(fmt.Sprintf("marshal: unsupported value kind %s", v.Kind())))
	}
	return w.err
}

// refID returns (id, true) if obj was already written, registering it under
// a fresh id (recorded before the caller encodes obj's contents, so a
// mutable container that references itself still resolves) otherwise.
func (w *writer) refID(obj any) (uint32, bool) {
	if id, ok := w.seen[obj]; ok {
		return id, true
	}
	id := uint32(len(w.seen))
	w.seen[obj] = id
	return id, false
}

func (w *writer) array(a *value.Array) error {
	id, seen := w.refID(a)
	if seen {
		w.ref(id)
		return w.err
	}
	w.tag(tagArray)
	w.uvarint(uint64(id))
	n := a.Length()
	w.uvarint(uint64(n))
	for i := 0; i < n; i++ {
		el, err := a.GetIndex(i)
		if err != nil {
			return err
		}
		if err := w.value(el); err != nil {
			return err
		}
	}
	return w.err
}

func (w *writer) tuple(t *value.Tuple) error {
	id, seen := w.refID(t)
	if seen {
		w.ref(id)
		return w.err
	}
	if t.Bracket() == value.BracketSquare {
		w.tag(tagTupleSquare)
	} else {
		w.tag(tagTupleParen)
	}
	w.uvarint(uint64(id))
	n := t.Length()
	w.uvarint(uint64(n))
	for i := 0; i < n; i++ {
		el, err := t.GetIndex(i)
		if err != nil {
			return err
		}
		if err := w.value(el); err != nil {
			return err
		}
	}
	return w.err
}

func (w *writer) table(t *value.Table) error {
	id, seen := w.refID(t)
	if seen {
		w.ref(id)
		return w.err
	}
	w.tag(tagTable)
	w.uvarint(uint64(id))
	w.buf.WriteByte(byte(t.WeakMode()))
	if proto := t.Proto(); proto != nil {
		w.buf.WriteByte(1)
		if err := w.value(proto); err != nil {
			return err
		}
	} else {
		w.buf.WriteByte(0)
	}
	it := t.Iterate()
	defer it.Done()
	var pairs []value.Value
	for {
		el, ok := it.Next()
		if !ok {
			break
		}
		pairs = append(pairs, el)
	}
	w.uvarint(uint64(len(pairs) / 2))
	for _, el := range pairs {
		if err := w.value(el); err != nil {
			return err
		}
	}
	return w.err
}

func (w *writer) structVal(s *value.Struct) error {
	id, seen := w.refID(s)
	if seen {
		w.ref(id)
		return w.err
	}
	w.tag(tagStruct)
	w.uvarint(uint64(id))
	if proto := s.Proto(); proto != nil {
		w.buf.WriteByte(1)
		if err := w.value(proto); err != nil {
			return err
		}
	} else {
		w.buf.WriteByte(0)
	}
	it := s.Iterate()
	defer it.Done()
	var pairs []value.Value
	for {
		el, ok := it.Next()
		if !ok {
			break
		}
		pairs = append(pairs, el)
	}
	w.uvarint(uint64(len(pairs) / 2))
	for _, el := range pairs {
		if err := w.value(el); err != nil {
			return err
		}
	}
	return w.err
}

func (w *writer) buffer(b *value.Buffer) error {
	id, seen := w.refID(b)
	if seen {
		w.ref(id)
		return w.err
	}
	w.tag(tagBuffer)
	w.uvarint(uint64(id))
	w.bytes(b.Bytes())
	return w.err
}

func (w *writer) number(n value.Number) {
	if value.IsInt(n) {
		w.tag(tagInt)
		w.varint(value.AsInt(n))
		return
	}
	w.tag(tagFloat)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(float64(n)))
	w.buf.Write(tmp[:])
}

func (w *writer) tag(t tag)          { w.buf.WriteByte(byte(t)) }
func (w *writer) ref(id uint32)      { w.tag(tagRef); w.uvarint(uint64(id)) }
func (w *writer) uvarint(n uint64)   { var tmp [binary.MaxVarintLen64]byte; w.buf.Write(tmp[:binary.PutUvarint(tmp[:], n)]) }
func (w *writer) varint(n int64)     { var tmp [binary.MaxVarintLen64]byte; w.buf.Write(tmp[:binary.PutVarint(tmp[:], n)]) }

func (w *writer) bytes(b []byte) {
	w.uvarint(uint64(len(b)))
	w.buf.Write(b)
}
