package vm

import (
	"context"
	"fmt"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/fiber"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
)

// VM is the explicit context a host constructs once and threads through
// every call into the core: the heap (and with it the root stack and
// scratch list gc.Heap already owns), the Universe table of predeclared
// bindings, and the interpreter driving fiber execution. A host never reaches
// for package-level state instead; everything it needs hangs off this value.
type VM struct {
	Config Config

	Heap     *gc.Heap
	Universe *value.Table
	Interp   *fiber.Interp
}

// New constructs a VM from cfg: a heap with cfg.GCInterval as its collection
// trigger, an empty Universe table, and an interpreter with cfg.MaxSteps as
// its default step budget. cfg.MaxCallStackDepth (when positive) and
// cfg.HashSeed are applied process-wide since the interpreter and the
// string/symbol hasher expose no other configuration hook; constructing a
// second VM with a different value for either overrides the first's,
// matching the single-VM-per-process concurrency model (spec.md §5).
func New(cfg Config) *VM {
	if cfg.MaxCallStackDepth > 0 {
		fiber.MaxCallDepth = cfg.MaxCallStackDepth
	}
	value.SetHashSeed(cfg.HashSeed)

	h := gc.NewHeap(cfg.GCInterval)
	universe := value.NewTable(h, 0)
	ip := fiber.NewInterp(h)
	ip.MaxSteps = cfg.MaxSteps

	return &VM{Config: cfg, Heap: h, Universe: universe, Interp: ip}
}

// Define installs v under name in the Universe table, the predeclared
// bindings every fresh fiber a host starts can resolve.
func (vm *VM) Define(name string, v value.Value) error {
	return vm.Universe.Put(value.NewSymbol([]byte(name)), v)
}

// Lookup resolves name against the Universe table.
func (vm *VM) Lookup(name string) (value.Value, bool, error) {
	return vm.Universe.Get(value.NewSymbol([]byte(name)))
}

// Call runs fn to completion on a fresh root fiber: it starts the fiber with
// args, resumes it until it returns, yields, errors or is cancelled via ctx,
// and surfaces whichever of those happened. A YIELD from a root fiber with no
// resumer to catch it is reported as an error, since there is nothing to
// resume it back.
func (vm *VM) Call(ctx context.Context, fn *code.Function, args []value.Value) (value.Value, error) {
	f := fiber.NewFiber(vm.Heap, fiber.MaskAll)
	if err := f.Start(fn, args); err != nil {
		return nil, fmt.Errorf("vm: starting fiber: %w", err)
	}
	val, sig, err := vm.Interp.Resume(ctx, f, value.Nil)
	if err != nil {
		return val, err
	}
	switch sig {
	case fiber.SignalOK:
		return val, nil
	case fiber.SignalYield:
		return val, fmt.Errorf("vm: fiber yielded with no resumer to catch it")
	default:
		return val, fmt.Errorf("vm: fiber stopped with signal %s", sig)
	}
}

// Collect forces an immediate mark-sweep cycle, bypassing cfg.GCInterval's
// automatic trigger. extraRoots are objects to treat as reachable for this
// cycle beyond the heap's pinned root stack, typically the fiber a host is
// mid-Resume on.
func (vm *VM) Collect(extraRoots ...gc.Object) {
	vm.Heap.Collect(extraRoots...)
}

// InternedSymbols returns the sorted text of every symbol interned so far,
// for host diagnostics (the process-wide intern cache is shared by every VM,
// so this is not scoped to vm alone).
func (vm *VM) InternedSymbols() []string {
	return value.InternedSymbols()
}
