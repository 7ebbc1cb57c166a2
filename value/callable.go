package value

import "fmt"

// Callable is implemented by every value that can appear in call position:
// Function and Fiber (defined in the code and fiber packages, which import
// this one) and CFunction (defined here, since a host-native function needs
// nothing from those packages). Keeping this as a marker interface in
// package value — rather than a concrete Function type — is what lets
// value not import code or fiber and so avoids the import cycle code/fiber
// would otherwise create by depending on value.
type Callable interface {
	Value
	Arity() (min, max int)
}

// CFunctionImpl is a host-native function body.
type CFunctionImpl func(args []Value) (Value, error)

// CFunction wraps a host-native Go function as a callable runtime value
// (§3's cfunction kind: "a function backed directly by host code rather
// than by a compiled FuncDef").
type CFunction struct {
	Name    string
	Impl    CFunctionImpl
	MinArgs int
	MaxArgs int // -1 for variadic
}

func (f *CFunction) Kind() Kind { return KindCFunction }

func (f *CFunction) String() string {
	if f.Name == "" {
		return fmt.Sprintf("<cfunction %p>", f)
	}
	return fmt.Sprintf("<cfunction %s>", f.Name)
}

func (f *CFunction) Arity() (int, int) { return f.MinArgs, f.MaxArgs }

// Call invokes the wrapped host function directly.
func (f *CFunction) Call(args []Value) (Value, error) { return f.Impl(args) }
