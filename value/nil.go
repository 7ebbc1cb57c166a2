package value

// NilType is the type of Nil. Its only legal value is Nil (represented as a
// named byte, the same trick lang/machine/nil.go uses, so that
// Nil can be a package-level constant rather than needing an allocation).
type NilType byte

// Nil is the sole value of kind KindNil.
const Nil = NilType(0)

func (NilType) Kind() Kind     { return KindNil }
func (NilType) String() string { return "nil" }

func (NilType) Hash() (uint32, error) { return 0, nil }

func (n NilType) Cmp(y Value) (int, error) {
	if _, ok := y.(NilType); ok {
		return 0, nil
	}
	return 0, errNotOrdered(n, y)
}
