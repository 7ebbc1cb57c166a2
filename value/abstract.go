package value

import (
	"fmt"

	"github.com/mna/corevm/gc"
)

// AbstractVTable is the hook table a host type supplies to customize how its
// Abstract values behave inside the runtime (§3: "abstract values wrap an
// opaque host-owned payload behind a name and a fixed set of optional
// operation hooks"). Every hook is optional; a nil hook falls back to the
// documented default (unhashable, unordered by identity, not callable, not
// indexable, opaque tostring).
type AbstractVTable struct {
	Name string

	// Mark, if set, is called during GCMark to mark any Value fields the
	// payload holds. Most abstracts (file handles, raw buffers) have none.
	Mark func(payload any, h *gc.Heap, depth int)
	// Finalize releases native resources (e.g. closes a file descriptor).
	Finalize func(payload any)

	Get  func(payload any, key Value) (Value, bool, error)
	Put  func(payload any, key, val Value) error
	Next func(payload any, key Value) (Value, error)

	ToString func(payload any) string
	Compare  func(payload any, y Value) (int, error)
	Hash     func(payload any) (uint32, error)

	Call func(payload any, args []Value) (Value, error)
}

// Abstract is an opaque host-owned value (§3) whose behavior is entirely
// determined by its VTable. It is the extension point host code uses to
// embed native resources (files, sockets, compiled regexes, ...) into the
// value model without the core runtime knowing their concrete Go type.
type Abstract struct {
	hdr     gc.Header
	vtable  *AbstractVTable
	Payload any
}

// NewAbstract allocates and registers an Abstract wrapping payload,
// governed by vtable.
func NewAbstract(h *gc.Heap, vtable *AbstractVTable, payload any) *Abstract {
	a := &Abstract{vtable: vtable, Payload: payload}
	h.Register(a, gc.KindAbstract, 32)
	return a
}

func (a *Abstract) Kind() Kind { return KindAbstract }

func (a *Abstract) String() string {
	if a.vtable.ToString != nil {
		return a.vtable.ToString(a.Payload)
	}
	return fmt.Sprintf("<%s %p>", a.vtable.Name, a)
}

func (a *Abstract) VTableName() string { return a.vtable.Name }

func (a *Abstract) Get(key Value) (Value, bool, error) {
	if a.vtable.Get == nil {
		return Nil, false, nil
	}
	return a.vtable.Get(a.Payload, key)
}

func (a *Abstract) Put(key, val Value) error {
	if a.vtable.Put == nil {
		return errWrongKind("put", KindAbstract, a)
	}
	return a.vtable.Put(a.Payload, key, val)
}

func (a *Abstract) Cmp(y Value) (int, error) {
	if a.vtable.Compare != nil {
		return a.vtable.Compare(a.Payload, y)
	}
	ya, ok := y.(*Abstract)
	if !ok || ya.vtable != a.vtable {
		return 0, errNotOrdered(a, y)
	}
	if a == ya {
		return 0, nil
	}
	return identityOrder(a, ya), nil
}

func (a *Abstract) Hash() (uint32, error) {
	if a.vtable.Hash != nil {
		return a.vtable.Hash(a.Payload)
	}
	return 0, errUnhashable(a)
}

// Call invokes the abstract as a callable, if its vtable supports it.
func (a *Abstract) Call(args []Value) (Value, error) {
	if a.vtable.Call == nil {
		return nil, errWrongKind("call", KindFunction, a)
	}
	return a.vtable.Call(a.Payload, args)
}

func (a *Abstract) GCHeader() *gc.Header { return &a.hdr }

func (a *Abstract) GCMark(h *gc.Heap, depth int) {
	if a.vtable.Mark != nil {
		a.vtable.Mark(a.Payload, h, depth)
	}
}

func (a *Abstract) GCFinalize() {
	if a.vtable.Finalize != nil {
		a.vtable.Finalize(a.Payload)
	}
}
