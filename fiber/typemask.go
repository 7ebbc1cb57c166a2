package fiber

import (
	"fmt"
	"strings"

	"github.com/mna/corevm/value"
)

// TypeMask is a 16-bit bitset of value.Kind tags, one bit per primitive
// variant, used by the TYPECHECK opcode (§9: "16-bit type-mask" argument).
type TypeMask uint16

// bitFor returns the TypeMask bit for a single value.Kind.
func bitFor(k value.Kind) TypeMask { return 1 << uint(k) }

// Test reports whether v's kind is set in the mask.
func (m TypeMask) Test(v value.Value) bool {
	return m&bitFor(v.Kind()) != 0
}

// typeAliases maps the assembler's symbolic type-mask names to the kinds (or
// union of kinds) they denote, per §9's fixed alias table.
var typeAliases = map[string]TypeMask{
	"nil":       bitFor(value.KindNil),
	"boolean":   bitFor(value.KindBoolean),
	"number":    bitFor(value.KindNumber),
	"string":    bitFor(value.KindString),
	"symbol":    bitFor(value.KindSymbol),
	"keyword":   bitFor(value.KindKeyword),
	"array":     bitFor(value.KindArray),
	"tuple":     bitFor(value.KindTuple),
	"table":     bitFor(value.KindTable),
	"struct":    bitFor(value.KindStruct),
	"buffer":    bitFor(value.KindBuffer),
	"function":  bitFor(value.KindFunction),
	"cfunction": bitFor(value.KindCFunction),
	"abstract":  bitFor(value.KindAbstract),
	"fiber":     bitFor(value.KindFiber),
	"pointer":   bitFor(value.KindPointer),

	// composite aliases
	"indexed":    bitFor(value.KindArray) | bitFor(value.KindTuple),
	"dictionary": bitFor(value.KindTable) | bitFor(value.KindStruct),
	"bytes":      bitFor(value.KindString) | bitFor(value.KindSymbol) | bitFor(value.KindKeyword) | bitFor(value.KindBuffer),
	"callable":   bitFor(value.KindFunction) | bitFor(value.KindCFunction) | bitFor(value.KindFiber),
}

var aliasNames = [...]string{
	value.KindNil:       "nil",
	value.KindBoolean:   "boolean",
	value.KindNumber:    "number",
	value.KindString:    "string",
	value.KindSymbol:    "symbol",
	value.KindKeyword:   "keyword",
	value.KindArray:     "array",
	value.KindTuple:     "tuple",
	value.KindTable:     "table",
	value.KindStruct:    "struct",
	value.KindBuffer:    "buffer",
	value.KindFunction:  "function",
	value.KindCFunction: "cfunction",
	value.KindFiber:     "fiber",
	value.KindAbstract:  "abstract",
	value.KindPointer:   "pointer",
}

// ParseTypeMask resolves one or more ':'-prefixed symbol names (as produced
// by the assembler for a tuple-of-symbols union, §9) into a TypeMask.
func ParseTypeMask(names ...string) (TypeMask, error) {
	var m TypeMask
	for _, n := range names {
		n = strings.TrimPrefix(n, ":")
		bits, ok := typeAliases[n]
		if !ok {
			return 0, fmt.Errorf("fiber: unknown type-mask alias %q", n)
		}
		m |= bits
	}
	return m, nil
}

// String renders the mask as the sorted, ':'-prefixed primitive kind names
// it covers (composite aliases are not reconstructed).
func (m TypeMask) String() string {
	var parts []string
	for k := value.KindNil; int(k) < len(aliasNames); k++ {
		if m&bitFor(k) != 0 {
			parts = append(parts, ":"+aliasNames[k])
		}
	}
	return strings.Join(parts, " ")
}
