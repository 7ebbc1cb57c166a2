package code

import (
	"fmt"

	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
)

// Function is a closure: a FuncDef paired with the captured environments
// its nested closures may reference (§3, §4.D).
type Function struct {
	hdr gc.Header

	Def  *FuncDef
	Envs []*FuncEnv
}

// NewFunction allocates a closure over def with the given captured envs
// (len(envs) must equal def's environments length; callers build that
// array per §4.D's "Closure creation" procedure when executing CLOSURE).
func NewFunction(h *gc.Heap, def *FuncDef, envs []*FuncEnv) *Function {
	f := &Function{Def: def, Envs: envs}
	h.Register(f, gc.KindFunction, uint64(16+len(envs)*8))
	return f
}

func (f *Function) Kind() value.Kind { return value.KindFunction }

func (f *Function) String() string {
	if f.Def.Name != "" {
		return fmt.Sprintf("<function %s>", f.Def.Name)
	}
	return fmt.Sprintf("<function %p>", f)
}

// Arity implements value.Callable.
func (f *Function) Arity() (int, int) { return f.Def.MinArity, f.Def.MaxArity }

func (f *Function) GCHeader() *gc.Header { return &f.hdr }

func (f *Function) GCMark(h *gc.Heap, depth int) {
	for _, e := range f.Envs {
		if e != nil {
			h.Mark(e, depth+1)
		}
	}
	h.Mark(f.Def, depth+1)
}

func (f *Function) GCFinalize() {}

var _ value.Callable = (*Function)(nil)
