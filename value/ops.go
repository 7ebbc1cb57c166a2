package value

import (
	"fmt"

	"github.com/mna/corevm/lang/token"
)

// Hash returns the hash of v, or an error if v's kind is not hashable (§4.A:
// mutable Array, Buffer and Table are not hashable by value).
func Hash(v Value) (uint32, error) {
	if h, ok := v.(Hashable); ok {
		return h.Hash()
	}
	return 0, errUnhashable(v)
}

// Equals reports whether x and y are structurally equal, dispatching to Cmp
// when both sides are Ordered and otherwise falling back to identity for
// reference kinds that don't implement a total order (e.g. two distinct
// Arrays are never equal, matching janet's array equality-by-identity).
func Equals(x, y Value) bool {
	if x.Kind() != y.Kind() {
		return false
	}
	if ox, ok := x.(Ordered); ok {
		c, err := ox.Cmp(y)
		return err == nil && c == 0
	}
	return x == y
}

// Compare performs the cross-kind total order of §4.A: values first compare
// by Kind (in the declaration order of the Kind enum), and same-kind values
// defer to their Cmp method when Ordered.
func Compare(x, y Value) (int, error) {
	if x.Kind() != y.Kind() {
		if x.Kind() < y.Kind() {
			return -1, nil
		}
		return 1, nil
	}
	if ox, ok := x.(Ordered); ok {
		return ox.Cmp(y)
	}
	// Same-kind, unordered reference types (Array, Buffer, Table, Function,
	// Fiber, Abstract, CFunction, Pointer): compare by identity via pointer
	// value, consistent with janet comparing these by address.
	if x == y {
		return 0, nil
	}
	return identityOrder(x, y), nil
}

// identityOrder provides a stable, arbitrary (but deterministic for a given
// run) order between two distinct reference values of the same
// non-Ordered kind, matching janet's use of raw pointer comparison.
func identityOrder(x, y Value) int {
	xs, ys := fmt.Sprintf("%p", x), fmt.Sprintf("%p", y)
	if xs < ys {
		return -1
	}
	return 1
}

// Length returns the length of v, or an error if v has no defined length.
func Length(v Value) (int, error) {
	if l, ok := v.(Lengthable); ok {
		return l.Length(), nil
	}
	return 0, errWrongKind("length", KindArray, v)
}

// GetIndex returns v[i] for an Indexable value.
func GetIndex(v Value, i int) (Value, error) {
	ix, ok := v.(Indexable)
	if !ok {
		return nil, errWrongKind("get-index", KindArray, v)
	}
	return ix.GetIndex(i)
}

// PutIndex sets v[i] = val for a Settable value.
func PutIndex(v Value, i int, val Value) error {
	sx, ok := v.(Settable)
	if !ok {
		return errWrongKind("put-index", KindArray, v)
	}
	return sx.SetIndex(i, val)
}

// Get looks up key in a Mapping value (Table or Struct), returning
// (value, true, nil) on hit, (nil, false, nil) on miss.
func Get(v Value, key Value) (Value, bool, error) {
	m, ok := v.(Mapping)
	if !ok {
		return nil, false, errWrongKind("get", KindTable, v)
	}
	return m.Get(key)
}

// Put sets key -> val in a SettableMapping value (Table).
func Put(v Value, key, val Value) error {
	m, ok := v.(SettableMapping)
	if !ok {
		return errWrongKind("put", KindTable, v)
	}
	if key == nil {
		return errNilKey()
	}
	return m.Put(key, val)
}

// In reports whether key is present in a Mapping, or an index is in range
// for an Indexable.
func In(v Value, key Value) (bool, error) {
	if m, ok := v.(Mapping); ok {
		_, found, err := m.Get(key)
		return found, err
	}
	if ix, ok := v.(Indexable); ok {
		n, isNum := key.(Number)
		if !isNum {
			return false, errWrongKind("in", KindNumber, key)
		}
		i := int(AsInt(n))
		return i >= 0 && i < ix.Length(), nil
	}
	return false, errWrongKind("in", KindTable, v)
}

// Next supports iteration over a Mapping or Indexable by key/index,
// mirroring janet's next() builtin: pass Nil to start, get back the next
// key or Nil when exhausted.
func Next(v Value, key Value) (Value, error) {
	it, ok := v.(Iterable)
	if !ok {
		return nil, errWrongKind("next", KindTable, v)
	}
	iter := it.Iterate()
	if _, isNil := key.(NilType); isNil || key == nil {
		val, ok := iter.Next()
		if !ok {
			return Nil, nil
		}
		return val, nil
	}
	// linear scan to key, then return the following one; adequate for the
	// small containers this runtime targets and matches §4.C's documented
	// O(n) worst case for next() over a Table mid-rehash.
	for {
		val, ok := iter.Next()
		if !ok {
			return Nil, nil
		}
		if Equals(val, key) {
			nv, ok := iter.Next()
			if !ok {
				return Nil, nil
			}
			return nv, nil
		}
	}
}

// HasBinary is implemented by values that participate in binary arithmetic
// or bitwise operators beyond the built-in Number x Number case.
type HasBinary interface {
	Value
	Binary(op token.Token, other Value, swapped bool) (Value, error)
}

// HasUnary is implemented by values with a custom unary operator (negation,
// bitwise complement).
type HasUnary interface {
	Value
	Unary(op token.Token) (Value, error)
}

// Binary dispatches an arithmetic/bitwise/comparison binary operator across
// two values. Number x Number is handled directly; anything else defers to
// a HasBinary implementation (operator overloading point for Abstract) or
// errors.
func Binary(op token.Token, x, y Value) (Value, error) {
	if token.IsComparison(op) {
		c, err := Compare(x, y)
		if err != nil {
			return nil, err
		}
		return Bool(compareSatisfies(op, c)), nil
	}
	xn, xIsNum := x.(Number)
	yn, yIsNum := y.(Number)
	if xIsNum && yIsNum {
		return numberBinary(op, xn, yn)
	}
	if hb, ok := x.(HasBinary); ok {
		return hb.Binary(op, y, false)
	}
	if hb, ok := y.(HasBinary); ok {
		return hb.Binary(op, x, true)
	}
	return nil, errBadOperand(op.String(), x)
}

func compareSatisfies(op token.Token, c int) bool {
	switch op {
	case token.LT:
		return c < 0
	case token.LE:
		return c <= 0
	case token.GT:
		return c > 0
	case token.GE:
		return c >= 0
	case token.EQL:
		return c == 0
	case token.NEQ:
		return c != 0
	default:
		return false
	}
}

func numberBinary(op token.Token, x, y Number) (Value, error) {
	switch op {
	case token.PLUS:
		return x + y, nil
	case token.MINUS:
		return x - y, nil
	case token.STAR:
		return x * y, nil
	case token.SLASH:
		if y == 0 {
			return nil, errBadOperand("/", y)
		}
		return x / y, nil
	case token.SLASHSLASH:
		return DivideInt(x, y)
	case token.PERCENT:
		return Modulo(x, y)
	case token.REM:
		return Remainder(x, y)
	case token.AMPERSAND:
		return Number(int64(x) & int64(y)), nil
	case token.PIPE:
		return Number(int64(x) | int64(y)), nil
	case token.CIRCUMFLEX:
		return Number(int64(x) ^ int64(y)), nil
	case token.LTLT:
		return Number(int64(x) << uint(int64(y))), nil
	case token.GTGT:
		return Number(int64(x) >> uint(int64(y))), nil
	default:
		return nil, errBadOperand(op.String(), x)
	}
}

// Unary dispatches a unary operator across a value.
func Unary(op token.Token, x Value) (Value, error) {
	if xn, ok := x.(Number); ok {
		switch op {
		case token.UMINUS:
			return -xn, nil
		case token.UPLUS:
			return xn, nil
		case token.TILDE:
			return Number(^int64(xn)), nil
		}
	}
	if hu, ok := x.(HasUnary); ok {
		return hu.Unary(op)
	}
	return nil, errBadOperand(op.String(), x)
}
