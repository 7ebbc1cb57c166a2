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

// Dasm reads each file's marshaled binary function and writes its textual
// bytecode listing to stdout (or c.Output, if set). When more than one file
// is given, only the last file's listing is written.
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	h := gc.NewHeap(0)
	var out []byte
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}
		v, err := marshal.Unmarshal(h, data)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		fn, ok := v.(*code.Function)
		if !ok {
			return printError(stdio, fmt.Errorf("%s: not a marshaled function", path))
		}
		out, err = asm.Disassemble(fn.Def)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
	}

	if c.Output != "" {
		return printError(stdio, os.WriteFile(c.Output, out, 0o644))
	}
	_, err := stdio.Stdout.Write(out)
	return printError(stdio, err)
}
