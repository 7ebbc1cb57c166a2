package value

import (
	"strconv"
	"sync"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// hashSeed is XORed into every fnv32 hash's starting offset, defaulting to
// 0 (vanilla FNV-1a). A host can raise it once at startup (vm.Config's
// HashSeed) to defend against hash-flooding: an attacker who can predict
// the fixed offset can choose keys that all collide in the same Table
// bucket, degrading lookups to linear; salting the offset per process
// makes those collisions unpredictable without the seed.
var hashSeed uint32

// SetHashSeed installs the process-wide FNV-1a salt. It affects every
// String/Symbol/Keyword hashed afterward, not values already constructed
// (their hash is precomputed at construction time), so it must be called
// before any value is interned or hashed to take effect uniformly.
func SetHashSeed(seed uint32) { hashSeed = seed }

// fnv32 computes the 32-bit FNV-1a hash used to precompute the hash of every
// interned byte-string, matching §4.C's "precompute FNV-style 32-bit hash".
func fnv32(b []byte) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32) ^ hashSeed
	for _, c := range b {
		h ^= uint32(c)
		h *= prime32
	}
	return h
}

// String is an immutable byte vector with a precomputed hash (§3). Strings
// typically hold UTF-8 text but, like janet strings, are not required to be
// valid UTF-8.
type String struct {
	b    []byte
	hash uint32
}

// NewString returns a String wrapping a copy of b.
func NewString(b []byte) String {
	cp := append([]byte(nil), b...)
	return String{b: cp, hash: fnv32(cp)}
}

// NewStringFromString is a convenience constructor for Go string literals.
func NewStringFromString(s string) String { return NewString([]byte(s)) }

func (s String) Kind() Kind     { return KindString }
func (s String) String() string { return strconv.Quote(string(s.b)) }
func (s String) Bytes() []byte  { return s.b }
func (s String) Length() int    { return len(s.b) }
func (s String) Hash() (uint32, error) { return s.hash, nil }

func (s String) GetIndex(i int) (Value, error) {
	if i < 0 || i >= len(s.b) {
		return nil, errIndexRange(i, len(s.b))
	}
	return Number(s.b[i]), nil
}

func (s String) Cmp(y Value) (int, error) {
	ys, ok := y.(String)
	if !ok {
		return 0, errNotOrdered(s, y)
	}
	return compareBytes(s.b, ys.b), nil
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Symbol is an interned, immutable byte vector (§3). Two equal symbols
// always share the same Go value because NewSymbol interns by (bytes,hash)
// in a process-wide cache, matching janet's intern table.
type Symbol struct {
	b    []byte
	hash uint32
}

var (
	symbolInternMu    sync.Mutex
	symbolInternTable = swiss.NewMap[string, Symbol](64)
)

// NewSymbol returns the canonical interned Symbol for the given bytes,
// allocating it on first use.
func NewSymbol(b []byte) Symbol {
	key := string(b)
	symbolInternMu.Lock()
	defer symbolInternMu.Unlock()
	if sym, ok := symbolInternTable.Get(key); ok {
		return sym
	}
	sym := Symbol{b: []byte(key), hash: fnv32([]byte(key))}
	symbolInternTable.Put(key, sym)
	return sym
}

// InternedSymbols returns the text of every symbol interned so far, sorted.
// Intended for host diagnostics (dumping the intern table), not runtime use;
// swiss.Map has no built-in ordered-keys accessor, so this copies into a
// plain map first to reuse golang.org/x/exp/maps.Keys.
func InternedSymbols() []string {
	symbolInternMu.Lock()
	snapshot := make(map[string]struct{}, symbolInternTable.Count())
	symbolInternTable.Iter(func(k string, _ Symbol) bool {
		snapshot[k] = struct{}{}
		return false
	})
	symbolInternMu.Unlock()

	names := maps.Keys(snapshot)
	slices.Sort(names)
	return names
}

func (s Symbol) Kind() Kind            { return KindSymbol }
func (s Symbol) String() string        { return string(s.b) }
func (s Symbol) Bytes() []byte         { return s.b }
func (s Symbol) Length() int           { return len(s.b) }
func (s Symbol) Hash() (uint32, error) { return s.hash, nil }

func (s Symbol) Cmp(y Value) (int, error) {
	ys, ok := y.(Symbol)
	if !ok {
		return 0, errNotOrdered(s, y)
	}
	return compareBytes(s.b, ys.b), nil
}

// Keyword is an immutable byte vector (§3), conventionally self-evaluating
// and printed with a leading colon. Unlike Symbol, keywords are not required
// to be interned; equality is always structural.
type Keyword struct {
	b    []byte
	hash uint32
}

// NewKeyword returns a Keyword wrapping a copy of b.
func NewKeyword(b []byte) Keyword {
	cp := append([]byte(nil), b...)
	return Keyword{b: cp, hash: fnv32(cp)}
}

func (k Keyword) Kind() Kind            { return KindKeyword }
func (k Keyword) String() string        { return ":" + string(k.b) }
func (k Keyword) Bytes() []byte         { return k.b }
func (k Keyword) Length() int           { return len(k.b) }
func (k Keyword) Hash() (uint32, error) { return k.hash, nil }

func (k Keyword) Cmp(y Value) (int, error) {
	yk, ok := y.(Keyword)
	if !ok {
		return 0, errNotOrdered(k, y)
	}
	return compareBytes(k.b, yk.b), nil
}
