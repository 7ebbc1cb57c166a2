package value

import (
	"strings"

	"github.com/mna/corevm/gc"
)

// MaxProtoDepth bounds how many prototype links Get/Put will walk before
// giving up, preventing a cyclic prototype chain from looping forever
// (§4.C's "bounded prototype chain").
const MaxProtoDepth = 200

// WeakMode selects which side(s) of a Table's entries are held weakly.
type WeakMode uint8

const (
	WeakNone WeakMode = iota
	WeakKeys
	WeakValues
	WeakBoth
)

type tableSlot struct {
	key, val Value
	used     bool
	deleted  bool // tombstone
}

// Table is the mutable hash table (§3, §4.C): open addressing with linear
// probing, a counted-tombstone deletion scheme, a rehash trigger at 2/3 load
// factor (counting tombstones against the load factor, so that a
// delete-heavy workload still reclaims space), and an optional prototype
// table consulted on a local miss.
type Table struct {
	hdr      gc.Header
	slots    []tableSlot
	count    int // live entries
	deleted  int // tombstones
	proto    *Table
	weakMode WeakMode
}

// NewTable allocates an empty Table with room for at least capacity entries
// before its first rehash.
func NewTable(h *gc.Heap, capacity int) *Table {
	size := tableSizeFor(capacity)
	t := &Table{slots: make([]tableSlot, size)}
	h.Register(t, gc.KindTable, uint64(16+size*32))
	return t
}

// NewWeakTable allocates an empty Table registered on the heap's weak list,
// whose entries are subject to PurgeUnreachable per mode.
func NewWeakTable(h *gc.Heap, capacity int, mode WeakMode) *Table {
	size := tableSizeFor(capacity)
	t := &Table{slots: make([]tableSlot, size), weakMode: mode}
	h.RegisterWeak(t, gc.KindTable, uint64(16+size*32))
	return t
}

func tableSizeFor(capacity int) int {
	size := 8
	for size*2 <= capacity*3 {
		size *= 2
	}
	return size
}

func (t *Table) Kind() Kind  { return KindTable }
func (t *Table) Length() int { return t.count }
func (t *Table) Proto() *Table { return t.proto }
func (t *Table) SetProto(p *Table) { t.proto = p }
func (t *Table) WeakMode() WeakMode { return t.weakMode }

func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString("@{")
	first := true
	for _, s := range t.slots {
		if !s.used || s.deleted {
			continue
		}
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(s.key.String())
		sb.WriteByte(' ')
		sb.WriteString(s.val.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// find locates key's slot index via linear probing, returning (index,
// found). When not found, index is the first free or tombstoned slot
// suitable for insertion.
func (t *Table) find(key Value) (int, bool, error) {
	kh, err := Hash(key)
	if err != nil {
		return 0, false, err
	}
	mask := len(t.slots) - 1
	i := int(kh) & mask
	firstFree := -1
	for probes := 0; probes < len(t.slots); probes++ {
		s := &t.slots[i]
		if !s.used {
			if firstFree == -1 {
				firstFree = i
			}
			return firstFree, false, nil
		}
		if s.deleted {
			if firstFree == -1 {
				firstFree = i
			}
		} else if Equals(s.key, key) {
			return i, true, nil
		}
		i = (i + 1) & mask
	}
	return firstFree, false, nil
}

// Get looks up key locally, falling back to the prototype chain on a miss
// (§4.C).
func (t *Table) Get(key Value) (Value, bool, error) {
	cur := t
	for depth := 0; cur != nil && depth < MaxProtoDepth; depth++ {
		idx, found, err := cur.find(key)
		if err != nil {
			return nil, false, err
		}
		if found {
			return cur.slots[idx].val, true, nil
		}
		cur = cur.proto
	}
	return Nil, false, nil
}

// GetLocal looks up key without consulting the prototype chain.
func (t *Table) GetLocal(key Value) (Value, bool, error) {
	idx, found, err := t.find(key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return Nil, false, nil
	}
	return t.slots[idx].val, true, nil
}

// RawGet is GetLocal under §4.C's own name ("get/rawget (no proto)").
func (t *Table) RawGet(key Value) (Value, bool, error) { return t.GetLocal(key) }

// Find locates key without consulting the prototype chain and returns its
// stored key and value together, per §4.C's "find(key) -> kv*".
func (t *Table) Find(key Value) (k, v Value, found bool, err error) {
	idx, found, err := t.find(key)
	if err != nil || !found {
		return nil, nil, false, err
	}
	return t.slots[idx].key, t.slots[idx].val, true, nil
}

// Put inserts or updates key -> val in the table directly (not the
// prototype chain), rehashing first if the 2/3 load-factor threshold
// (counting tombstones) would be exceeded.
func (t *Table) Put(key, val Value) error {
	if key == nil {
		return errNilKey()
	}
	if _, isNil := key.(NilType); isNil {
		return errNilKey()
	}
	if (t.count+t.deleted+1)*3 >= len(t.slots)*2 {
		t.rehash()
	}
	idx, found, err := t.find(key)
	if err != nil {
		return err
	}
	if found {
		t.slots[idx].val = val
		return nil
	}
	if t.slots[idx].deleted {
		t.deleted--
	}
	t.slots[idx] = tableSlot{key: key, val: val, used: true}
	t.count++
	return nil
}

// Delete removes key from the table if present, leaving a tombstone behind
// so later linear probes over the deleted slot still find subsequent
// entries.
func (t *Table) Delete(key Value) (Value, bool, error) {
	idx, found, err := t.find(key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return Nil, false, nil
	}
	old := t.slots[idx].val
	t.slots[idx] = tableSlot{deleted: true, used: true}
	t.count--
	t.deleted++
	return old, true, nil
}

func (t *Table) rehash() {
	newSize := len(t.slots) * 2
	if newSize < 8 {
		newSize = 8
	}
	old := t.slots
	t.slots = make([]tableSlot, newSize)
	t.count = 0
	t.deleted = 0
	for _, s := range old {
		if s.used && !s.deleted {
			// safe to ignore the error: s.key already hashed successfully once
			idx, _, _ := t.find(s.key)
			t.slots[idx] = tableSlot{key: s.key, val: s.val, used: true}
			t.count++
		}
	}
}

// Clone returns a new Table with the same entries and prototype as t: a
// deep copy of the table's own structure (a fresh slot array, independent of
// t's), but a shallow copy of the stored values, per §4.C's "clone
// (deep-copy of structure, shallow of values)".
func (t *Table) Clone(h *gc.Heap) *Table {
	c := NewTable(h, t.count)
	c.proto = t.proto
	for _, s := range t.slots {
		if s.used && !s.deleted {
			// safe to ignore the error: s.key already hashed successfully once
			_ = c.Put(s.key, s.val)
		}
	}
	return c
}

// MergeFrom copies every local entry of other into t, overwriting any
// existing key, per §4.C's "merge_from(other)". other's prototype chain is
// not consulted.
func (t *Table) MergeFrom(other *Table) error {
	for _, s := range other.slots {
		if s.used && !s.deleted {
			if err := t.Put(s.key, s.val); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToStruct returns an immutable snapshot of t's local entries as a Struct,
// per §4.C's "to_struct (immutable snapshot)". t's prototype chain is not
// consulted or carried over, since Struct has its own independent proto.
func (t *Table) ToStruct(h *gc.Heap) *Struct {
	b := BeginStruct(t.count)
	for _, s := range t.slots {
		if s.used && !s.deleted {
			b.Put(s.key, s.val)
		}
	}
	return b.End(h)
}

func (t *Table) Iterate() Iterator {
	data := make([]Value, 0, t.count*2)
	for _, s := range t.slots {
		if s.used && !s.deleted {
			data = append(data, s.key, s.val)
		}
	}
	return &sliceIterator{data: data}
}

func (t *Table) GCHeader() *gc.Header { return &t.hdr }

func (t *Table) GCMark(h *gc.Heap, depth int) {
	switch t.weakMode {
	case WeakKeys:
		for _, s := range t.slots {
			if s.used && !s.deleted {
				if o, ok := s.val.(gc.Object); ok {
					h.Mark(o, depth+1)
				}
			}
		}
	case WeakValues:
		for _, s := range t.slots {
			if s.used && !s.deleted {
				if o, ok := s.key.(gc.Object); ok {
					h.Mark(o, depth+1)
				}
			}
		}
	case WeakBoth:
		// neither side keeps its referent alive
	default:
		for _, s := range t.slots {
			if s.used && !s.deleted {
				if o, ok := s.key.(gc.Object); ok {
					h.Mark(o, depth+1)
				}
				if o, ok := s.val.(gc.Object); ok {
					h.Mark(o, depth+1)
				}
			}
		}
	}
	if t.proto != nil {
		h.Mark(t.proto, depth+1)
	}
}

func (t *Table) GCFinalize() {}

// PurgeUnreachable implements gc.WeakPurger: entries whose weak side did not
// survive marking are dropped, per the weakMode this table was created with.
func (t *Table) PurgeUnreachable(h *gc.Heap) {
	if t.weakMode == WeakNone {
		return
	}
	for i := range t.slots {
		s := &t.slots[i]
		if !s.used || s.deleted {
			continue
		}
		drop := false
		if t.weakMode == WeakKeys || t.weakMode == WeakBoth {
			if o, ok := s.key.(gc.Object); ok && !h.IsReachable(o) {
				drop = true
			}
		}
		if !drop && (t.weakMode == WeakValues || t.weakMode == WeakBoth) {
			if o, ok := s.val.(gc.Object); ok && !h.IsReachable(o) {
				drop = true
			}
		}
		if drop {
			*s = tableSlot{deleted: true, used: true}
			t.count--
			t.deleted++
		}
	}
}
