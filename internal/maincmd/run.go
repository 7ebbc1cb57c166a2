package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/corevm/asm"
	"github.com/mna/corevm/code"
	"github.com/mna/corevm/vm"
	"github.com/mna/mainer"
)

// Run assembles each file's textual bytecode listing and executes it as a
// zero-argument function on a fresh VM, printing its return value.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := vm.LoadConfig()
	if err != nil {
		return printError(stdio, err)
	}
	corevm := vm.New(cfg)

	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}
		def, err := asm.Assemble(corevm.Heap, src)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		fn := code.NewFunction(corevm.Heap, def, nil)
		result, err := corevm.Call(ctx, fn, nil)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		fmt.Fprintf(stdio.Stdout, "%s => %s\n", path, result)
	}
	return nil
}
