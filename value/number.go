package value

import (
	"math"
	"strconv"

	"github.com/mna/corevm/coreerr"
)

// Number is the numeric value kind: an IEEE-754 double. Integers are numbers
// whose value is exactly representable in [-2^53, 2^53] (§3).
type Number float64

// MaxSafeInt and MinSafeInt bound the range of exactly representable
// integers in a float64, per §3.
const (
	MaxSafeInt = 1 << 53
	MinSafeInt = -(1 << 53)
)

func (n Number) Kind() Kind { return KindNumber }

func (n Number) String() string {
	if IsInt(n) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

// IsInt reports whether n is an integer within the safe integer range.
func IsInt(n Number) bool {
	f := float64(n)
	return f == math.Trunc(f) && f >= MinSafeInt && f <= MaxSafeInt && !math.IsInf(f, 0)
}

// AsInt returns n truncated to an int64; the caller should check IsInt first
// if exactness matters.
func AsInt(n Number) int64 { return int64(n) }

// NumberCmp performs janet's three-way comparison of numbers: NaN is
// considered less than every non-NaN value (and equal to itself), matching
// spec §4.A ("NaN < all non-NaN and NaN == NaN").
func NumberCmp(x, y Number) int {
	xf, yf := float64(x), float64(y)
	if xf < yf {
		return -1
	} else if xf > yf {
		return +1
	} else if xf == yf {
		return 0
	}
	// at least one NaN
	xNaN, yNaN := xf != xf, yf != yf
	switch {
	case xNaN && yNaN:
		return 0
	case xNaN:
		return -1
	default: // yNaN
		return +1
	}
}

func (n Number) Cmp(y Value) (int, error) {
	yn, ok := y.(Number)
	if !ok {
		return 0, errNotOrdered(n, y)
	}
	return NumberCmp(n, yn), nil
}

// NumberHash reinterprets the bits of n as a hash, canonicalizing every NaN
// bit pattern to a single representative one first (§4.A).
func NumberHash(n Number) uint32 {
	f := float64(n)
	if f != f {
		f = math.NaN() // canonical NaN bit pattern
	}
	bits := math.Float64bits(f)
	return uint32(bits) ^ uint32(bits>>32)
}

func (n Number) Hash() (uint32, error) { return NumberHash(n), nil }

// DivideInt performs janet's integer division (DIVIDE_INTEGER): truncating
// toward zero, raising on division by zero.
func DivideInt(x, y Number) (Number, error) {
	if y == 0 {
		return 0, coreerr.NewArithmeticError(coreerr.Str("integer division by zero"))
	}
	return Number(math.Trunc(float64(x) / float64(y))), nil
}

// Modulo implements janet's MOD: result has the sign of the divisor.
func Modulo(x, y Number) (Number, error) {
	if y == 0 {
		return 0, coreerr.NewArithmeticError(coreerr.Str("modulo by zero"))
	}
	m := math.Mod(float64(x), float64(y))
	if m != 0 && (m < 0) != (float64(y) < 0) {
		m += float64(y)
	}
	return Number(m), nil
}

// Remainder implements janet's REM: result has the sign of the dividend
// (Go's math.Mod already has this behavior).
func Remainder(x, y Number) (Number, error) {
	if y == 0 {
		return 0, coreerr.NewArithmeticError(coreerr.Str("remainder by zero"))
	}
	return Number(math.Mod(float64(x), float64(y))), nil
}
