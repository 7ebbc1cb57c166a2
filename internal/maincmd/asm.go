package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/corevm/asm"
	"github.com/mna/corevm/code"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/marshal"
	"github.com/mna/mainer"
)

// Asm assembles each file's textual bytecode listing and writes the marshaled
// binary form of the resulting function to stdout (or c.Output, if set).
// When more than one file is given, every file is assembled but only the
// last file's output is written, to stdout and to c.Output alike.
func (c *Cmd) Asm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	h := gc.NewHeap(0)
	var data []byte
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}
		def, err := asm.Assemble(h, src)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		fn := code.NewFunction(h, def, nil)
		data, err = marshal.Marshal(fn)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
	}

	if c.Output != "" {
		return printError(stdio, os.WriteFile(c.Output, data, 0o644))
	}
	_, err := stdio.Stdout.Write(data)
	return printError(stdio, err)
}
