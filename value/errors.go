package value

import (
	"fmt"

	"github.com/mna/corevm/coreerr"
)

func errNotOrdered(a, b Value) error {
	return coreerr.NewTypeError(coreerr.Str(fmt.Sprintf("cannot compare %s and %s", a.Kind(), b.Kind())))
}

func errWrongKind(op string, want Kind, got Value) error {
	return coreerr.NewTypeError(coreerr.Str(fmt.Sprintf("%s: expected %s, got %s", op, want, got.Kind())))
}

func errUnhashable(v Value) error {
	return coreerr.NewKeyError(coreerr.Str(fmt.Sprintf("unhashable type: %s", v.Kind())))
}

func errIndexRange(i, length int) error {
	return coreerr.NewIndexError(coreerr.Str(fmt.Sprintf("index %d out of range [0,%d)", i, length)))
}

func errNilKey() error {
	return coreerr.NewKeyError(coreerr.Str("nil key in put"))
}

func errBadOperand(op string, v Value) error {
	return coreerr.NewTypeError(coreerr.Str(fmt.Sprintf("invalid operand for %s: %s", op, v.Kind())))
}
