// Package value implements the tagged value model the interpreter
// manipulates (spec component A) and the container kinds built on top of it
// (spec component C): Array, Buffer, Table, Tuple, Struct, String, Symbol
// and Keyword. It is adapted from the Value/Ordered/Iterable/Mapping
// interface family of github.com/mna/nenuphar's lang/machine and lang/types
// packages, generalized from nenuphar's Lisp-1-over-Starlark data model to
// janet's 16-variant tagged union.
package value

import "fmt"

// Kind identifies one of the sixteen primitive value variants of spec.md §3.
// The declaration order is the cross-type total order used by Compare: two
// values of different kinds compare by Kind alone.
type Kind uint8

const (
	KindNil Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindSymbol
	KindKeyword
	KindArray
	KindTuple
	KindTable
	KindStruct
	KindBuffer
	KindFunction
	KindCFunction
	KindFiber
	KindAbstract
	KindPointer
)

var kindNames = [...]string{
	KindNil:      "nil",
	KindBoolean:  "boolean",
	KindNumber:   "number",
	KindString:   "string",
	KindSymbol:   "symbol",
	KindKeyword:  "keyword",
	KindArray:    "array",
	KindTuple:    "tuple",
	KindTable:    "table",
	KindStruct:   "struct",
	KindBuffer:   "buffer",
	KindFunction: "function",
	KindCFunction: "cfunction",
	KindFiber:    "fiber",
	KindAbstract: "abstract",
	KindPointer:  "pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Value is implemented by every value the machine can manipulate.
type Value interface {
	Kind() Kind
	String() string
}

// Truthy reports the truth value of v. Only nil and false are false (§3).
func Truthy(v Value) bool {
	if v == nil || v.Kind() == KindNil {
		return false
	}
	if b, ok := v.(Bool); ok {
		return bool(b)
	}
	return true
}

// TypeOf returns the descriptive type tag of v, as the type_of operation of
// §4.A.
func TypeOf(v Value) Kind { return v.Kind() }

// Hashable is implemented by values that may be used as table/struct keys.
type Hashable interface {
	Value
	Hash() (uint32, error)
}

// Ordered is implemented by values whose Cmp defines a same-kind ordering;
// see Compare for the standalone, cross-kind entry point callers should use.
type Ordered interface {
	Value
	Cmp(y Value) (int, error)
}

// Lengthable is implemented by values with a defined Length (§4.A): byte
// sequences, indexed sequences and dictionaries.
type Lengthable interface {
	Value
	Length() int
}

// Indexable is a sequence of known length supporting random access by
// integer index.
type Indexable interface {
	Value
	Lengthable
	GetIndex(i int) (Value, error)
}

// Settable is an Indexable value whose elements may be assigned in place.
type Settable interface {
	Indexable
	SetIndex(i int, v Value) error
}

// Mapping is a dictionary-like value: Table or Struct.
type Mapping interface {
	Value
	Get(key Value) (Value, bool, error)
}

// SettableMapping is a Mapping that supports in-place key assignment.
type SettableMapping interface {
	Mapping
	Put(key, val Value) error
}

// Iterator yields a sequence of values to a caller, who must call Done once
// finished with it.
type Iterator interface {
	Next() (Value, bool)
	Done()
}

// Iterable is implemented by values that can produce an Iterator.
type Iterable interface {
	Value
	Iterate() Iterator
}
