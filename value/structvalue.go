package value

import (
	"strings"

	"github.com/mna/corevm/gc"
	"golang.org/x/exp/slices"
)

type structEntry struct {
	key, val Value
}

// Struct is an immutable mapping of key->value pairs (§3, §4.C). Its entries
// are canonicalized into a fixed order at construction time (sorted by
// (hash(key), hash(value)), ties broken by Compare on the keys) so that two structs built from the same
// key/value pairs in any insertion order compare and hash identically,
// matching janet's requirement that structs be usable as table/struct keys
// themselves.
type Struct struct {
	hdr     gc.Header
	entries []structEntry
	hash    uint32
	proto   *Struct
}

// NewStruct builds an immutable Struct from the given key/value pairs
// (entries with a later duplicate key win, consistent with struct/new's
// documented last-write behavior), with an optional prototype struct.
func NewStruct(h *gc.Heap, pairs []structEntry, proto *Struct) *Struct {
	dedup := make(map[uint32][]int) // poor-man's de-dup by hash bucket index into out
	var out []structEntry
	for _, p := range pairs {
		kh, err := Hash(p.key)
		if err != nil {
			continue
		}
		replaced := false
		for _, idx := range dedup[kh] {
			if Equals(out[idx].key, p.key) {
				out[idx].val = p.val
				replaced = true
				break
			}
		}
		if !replaced {
			dedup[kh] = append(dedup[kh], len(out))
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b structEntry) int {
		ah, _ := Hash(a.key)
		bh, _ := Hash(b.key)
		if ah != bh {
			if ah < bh {
				return -1
			}
			return 1
		}
		avh, _ := Hash(a.val)
		bvh, _ := Hash(b.val)
		if avh < bvh {
			return -1
		} else if avh > bvh {
			return 1
		}
		c, _ := Compare(a.key, b.key)
		return c
	})

	s := &Struct{entries: out, proto: proto}
	s.hash = hashStructEntries(out)
	h.Register(s, gc.KindStruct, uint64(16+len(out)*32))
	return s
}

func hashStructEntries(entries []structEntry) uint32 {
	h := uint32(2166136261)
	for _, e := range entries {
		kh, _ := Hash(e.key)
		vh, _ := Hash(e.val)
		h ^= kh
		h *= 16777619
		h ^= vh
		h *= 16777619
	}
	return h
}

func (s *Struct) Kind() Kind            { return KindStruct }
func (s *Struct) Length() int           { return len(s.entries) }
func (s *Struct) Hash() (uint32, error) { return s.hash, nil }
func (s *Struct) Proto() *Struct        { return s.proto }

func (s *Struct) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.key.String())
		sb.WriteByte(' ')
		sb.WriteString(e.val.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// Get looks up key, walking the prototype chain (bounded by MaxProtoDepth)
// on a local miss, per §4.C.
func (s *Struct) Get(key Value) (Value, bool, error) {
	cur := s
	for depth := 0; cur != nil && depth < MaxProtoDepth; depth++ {
		for _, e := range cur.entries {
			if Equals(e.key, key) {
				return e.val, true, nil
			}
		}
		cur = cur.proto
	}
	return Nil, false, nil
}

func (s *Struct) Cmp(y Value) (int, error) {
	ys, ok := y.(*Struct)
	if !ok {
		return 0, errNotOrdered(s, y)
	}
	n := len(s.entries)
	if len(ys.entries) < n {
		n = len(ys.entries)
	}
	for i := 0; i < n; i++ {
		c, err := Compare(s.entries[i].key, ys.entries[i].key)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
		c, err = Compare(s.entries[i].val, ys.entries[i].val)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	switch {
	case len(s.entries) < len(ys.entries):
		return -1, nil
	case len(s.entries) > len(ys.entries):
		return 1, nil
	default:
		return 0, nil
	}
}

func (s *Struct) Iterate() Iterator {
	data := make([]Value, 0, len(s.entries)*2)
	for _, e := range s.entries {
		data = append(data, e.key, e.val)
	}
	return &sliceIterator{data: data}
}

func (s *Struct) GCHeader() *gc.Header { return &s.hdr }

func (s *Struct) GCMark(h *gc.Heap, depth int) {
	for _, e := range s.entries {
		if o, ok := e.key.(gc.Object); ok {
			h.Mark(o, depth+1)
		}
		if o, ok := e.val.(gc.Object); ok {
			h.Mark(o, depth+1)
		}
	}
	if s.proto != nil {
		h.Mark(s.proto, depth+1)
	}
}

func (s *Struct) GCFinalize() {}

// StructBuilder incrementally constructs a Struct (struct/new-style
// begin/put/end builder).
type StructBuilder struct {
	pairs []structEntry
	proto *Struct
}

// BeginStruct starts a new struct builder with room for n key/value pairs.
func BeginStruct(n int) *StructBuilder {
	return &StructBuilder{pairs: make([]structEntry, 0, n)}
}

func (b *StructBuilder) Put(key, val Value) { b.pairs = append(b.pairs, structEntry{key, val}) }

func (b *StructBuilder) SetProto(p *Struct) { b.proto = p }

// End finalizes the builder into an immutable Struct registered with h.
func (b *StructBuilder) End(h *gc.Heap) *Struct {
	return NewStruct(h, b.pairs, b.proto)
}
