package asm

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/fiber"
	"github.com/mna/corevm/value"
)

// Disassemble renders def back to the textual form Assemble consumes.
// FuncDef itself keeps no record of the names an assembler input used for
// slots, constants or closures, so disasm synthesizes canonical ones
// (slot0, slot1, ...); per §4.F this makes disasm ∘ asm an identity only up
// to those names and label placement, not a byte-for-byte one, while
// asm ∘ disasm on the binary side (FuncDef in, FuncDef out) is exact.
func Disassemble(def *code.FuncDef) ([]byte, error) {
	d := &disassembler{buf: new(bytes.Buffer)}
	d.function(def, 0)
	return d.buf.Bytes(), d.err
}

type disassembler struct {
	buf *bytes.Buffer
	err error
}

func (d *disassembler) function(def *code.FuncDef, indent int) {
	if d.err != nil {
		return
	}
	pad := strings.Repeat("\t", indent)

	d.writef("%sfunction: %s %d %d %d", pad, def.Name, def.Arity, def.MinArity, def.MaxArity)
	if def.Flags&code.FlagVararg != 0 {
		d.write(" +vararg")
	}
	d.write("\n")

	if def.Flags&code.FlagHasSource != 0 {
		d.writef("%s\tsource: %s\n", pad, strconv.Quote(def.Source))
	}
	if def.SourcePath != "" {
		d.writef("%s\tsourcepath: %s\n", pad, strconv.Quote(def.SourcePath))
	}

	d.writef("%s\tslots: %d\n", pad, def.SlotCount)
	for i := 0; i < def.SlotCount; i++ {
		d.writef("%s\t\tslot%d\n", pad, i)
	}

	if len(def.Constants) > 0 {
		d.writef("%s\tconstants:\n", pad)
		for i, c := range def.Constants {
			line, err := constantLine(c)
			if err != nil {
				d.err = err
				return
			}
			d.writef("%s\t\t%s\t# %d\n", pad, line, i)
		}
	}

	if len(def.Environments) > 0 {
		d.writef("%s\tenvironments:\n", pad)
		for _, e := range def.Environments {
			d.writef("%s\t\t%d\n", pad, e)
		}
	}

	if len(def.Defs) > 0 {
		d.writef("%s\tclosures:\n", pad)
		for _, child := range def.Defs {
			d.function(child, indent+2)
		}
	}

	d.writef("%s\tcode:\n", pad)
	targets := jumpTargets(def.Bytecode)
	for i, ins := range def.Bytecode {
		if targets[i] {
			d.writef("%s\tL%d:\n", pad, i)
		}
		line, err := instructionLine(ins, i)
		if err != nil {
			d.err = err
			return
		}
		d.writef("%s\t\t%s\t# %d\n", pad, line, i)
	}

	if len(def.SourceMap) > 0 {
		d.writef("%s\tsourcemap:\n", pad)
		for _, p := range def.SourceMap {
			line, col := p.LineCol()
			d.writef("%s\t\t%d %d\n", pad, line, col)
		}
	}
}

// jumpTargets reports which bytecode addresses at least one jump in code
// targets, so the disassembler knows where to print a label.
func jumpTargets(bytecode []code.Instruction) map[int]bool {
	targets := map[int]bool{}
	for i, ins := range bytecode {
		switch ins.Op() {
		case code.JUMP:
			targets[i+1+int(ins.L24())] = true
		case code.JUMP_IF, code.JUMP_IF_NOT, code.JUMP_IF_NIL, code.JUMP_IF_NOT_NIL:
			targets[i+1+int(ins.SArg16())] = true
		}
	}
	return targets
}

func instructionLine(ins code.Instruction, at int) (string, error) {
	op := ins.Op()
	kinds := operandsFor(op)
	vals := decodeOperands(ins)

	parts := make([]string, 0, len(kinds)+1)
	parts = append(parts, op.String())
	for i, k := range kinds {
		tok, err := renderOperand(k, vals[i], at)
		if err != nil {
			return "", err
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, " "), nil
}

func renderOperand(k operandKind, v int32, at int) (string, error) {
	switch k {
	case operandSlot, operandFarSlot, operandEnv, operandImmediate, operandConstant, operandChildDef:
		return strconv.Itoa(int(v)), nil
	case operandLabel:
		return fmt.Sprintf("L%d", at+1+int(v)), nil
	case operandTypeMask:
		return strings.Join(strings.Fields(fiber.TypeMask(v).String()), "|"), nil
	default:
		return "", fmt.Errorf("asm: unsupported operand kind %d", k)
	}
}

func constantLine(v value.Value) (string, error) {
	switch c := v.(type) {
	case value.NilType:
		return "nil", nil
	case value.Bool:
		if c {
			return "true", nil
		}
		return "false", nil
	case value.Number:
		if value.IsInt(c) {
			return fmt.Sprintf("int %d", value.AsInt(c)), nil
		}
		return fmt.Sprintf("float %g", float64(c)), nil
	case value.String:
		return fmt.Sprintf("string %s", strconv.Quote(string(c.Bytes()))), nil
	case value.Symbol:
		return fmt.Sprintf("symbol %s", string(c.Bytes())), nil
	case value.Keyword:
		return fmt.Sprintf("keyword %s", string(c.Bytes())), nil
	default:
		return "", fmt.Errorf("asm: unsupported constant type %T", v)
	}
}

func (d *disassembler) writef(format string, args ...any) {
	d.write(fmt.Sprintf(format, args...))
}

func (d *disassembler) write(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.buf.WriteString(s)
}
