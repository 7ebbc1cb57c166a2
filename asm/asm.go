package asm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/fiber"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/lang/token"
	"github.com/mna/corevm/value"
)

// sections lists every recognized header line; a subsection-parsing loop
// stops as soon as it sees one, whether that means "my section ended" or
// "a sibling closure's function: header starts here" — the same
// termination trick lang/compiler/asm.go's Asm uses.
var sections = map[string]bool{
	"function:":     true,
	"source:":       true,
	"sourcepath:":   true,
	"slots:":        true,
	"constants:":    true,
	"environments:": true,
	"closures:":     true,
	"code:":         true,
	"sourcemap:":    true,
}

// Assemble parses src's symbolic textual form (§4.F's FuncDef wire form,
// rendered as this package's line-oriented syntax rather than the spec's
// dictionary literal) into a verified FuncDef registered with h.
func Assemble(h *gc.Heap, src []byte) (*code.FuncDef, error) {
	a := &assembler{s: bufio.NewScanner(bytes.NewReader(src))}
	fields := a.next()
	def, fields := a.function(fields)
	if a.err == nil && len(fields) > 0 {
		a.err = fmt.Errorf("asm: unexpected trailing input: %s", strings.Join(fields, " "))
	}
	if a.err != nil {
		return nil, a.err
	}
	registerDef(h, def)
	if err := def.Verify(); err != nil {
		return nil, err
	}
	return def, nil
}

func registerDef(h *gc.Heap, def *code.FuncDef) {
	for _, child := range def.Defs {
		registerDef(h, child)
	}
	code.NewFuncDef(h, def)
}

type assembler struct {
	s       *bufio.Scanner
	rawLine string
	err     error
}

// fnState carries the named-slot/constant/closure/label maps for the one
// function currently being parsed; a fresh one is pushed per nested
// closure, while assembler.err is the single shared failure sentinel.
type fnState struct {
	def          *code.FuncDef
	slotNames    map[string]int32
	constNames   map[string]int32
	closureNames map[string]int32
	labels       map[string]int
}

type pendingInsn struct {
	op   code.Opcode
	args []string
}

func (a *assembler) function(fields []string) (*code.FuncDef, []string) {
	if a.err != nil {
		return nil, fields
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "function:") {
		msg := "asm: expected function: section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
		return nil, fields
	}
	if len(fields) < 5 {
		a.err = fmt.Errorf("asm: invalid function header, want 'function: NAME ARITY MINARITY MAXARITY [+vararg]', got %q", strings.Join(fields, " "))
		return nil, fields
	}

	def := &code.FuncDef{
		Name:     fields[1],
		Arity:    int(a.int(fields[2])),
		MinArity: int(a.int(fields[3])),
		MaxArity: int(a.int(fields[4])),
	}
	if def.Name != "" {
		def.Flags |= code.FlagHasName
	}
	if hasFlag(fields[5:], "+vararg") {
		def.Flags |= code.FlagVararg
	}
	if def.MinArity == def.MaxArity {
		def.Flags |= code.FlagFixedArity
	}

	fs := &fnState{
		def:          def,
		slotNames:    map[string]int32{},
		constNames:   map[string]int32{},
		closureNames: map[string]int32{},
		labels:       map[string]int{},
	}

	fields = a.next()
	fields = a.source(fs, fields)
	fields = a.sourcepath(fs, fields)
	fields = a.slots(fs, fields)
	fields = a.constants(fs, fields)
	fields = a.environments(fs, fields)
	fields = a.closures(fs, fields)
	fields = a.codeSection(fs, fields)
	fields = a.sourcemap(fs, fields)

	if a.err != nil {
		return nil, fields
	}
	return def, fields
}

func (a *assembler) source(fs *fnState, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "source:") {
		return fields
	}
	s, err := quotedValue(a.rawLine, "source:")
	if err != nil {
		a.err = err
		return fields
	}
	fs.def.Source = s
	fs.def.Flags |= code.FlagHasSource
	return a.next()
}

func (a *assembler) sourcepath(fs *fnState, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "sourcepath:") {
		return fields
	}
	s, err := quotedValue(a.rawLine, "sourcepath:")
	if err != nil {
		a.err = err
		return fields
	}
	fs.def.SourcePath = s
	return a.next()
}

func (a *assembler) slots(fs *fnState, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "slots:") {
		return fields
	}
	if len(fields) < 2 {
		a.err = errors.New("asm: slots: requires a slot count")
		return fields
	}
	fs.def.SlotCount = int(a.int(fields[1]))

	var idx int32
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		if fields[0] != "_" {
			fs.slotNames[fields[0]] = idx
		}
		idx++
	}
	return fields
}

func (a *assembler) constants(fs *fnState, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "constants:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		name, rest := "", fields
		if fields[0] == "def" {
			if len(fields) < 3 {
				a.err = errors.New("asm: def constant requires a name and a value")
				return fields
			}
			name, rest = fields[1], fields[2:]
		}
		v, err := a.parseConstant(rest)
		if err != nil {
			a.err = err
			return fields
		}
		idx := int32(len(fs.def.Constants))
		fs.def.Constants = append(fs.def.Constants, v)
		if name != "" {
			fs.constNames[name] = idx
		}
	}
	return fields
}

func (a *assembler) parseConstant(fields []string) (value.Value, error) {
	if len(fields) == 0 {
		return nil, errors.New("asm: empty constant")
	}
	switch fields[0] {
	case "nil":
		return value.Nil, nil
	case "true":
		return value.True, nil
	case "false":
		return value.False, nil
	case "int":
		if len(fields) != 2 {
			return nil, errors.New("asm: int constant requires one value")
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("asm: invalid int constant %q: %w", fields[1], err)
		}
		return value.Number(n), nil
	case "float":
		if len(fields) != 2 {
			return nil, errors.New("asm: float constant requires one value")
		}
		f, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("asm: invalid float constant %q: %w", fields[1], err)
		}
		return value.Number(f), nil
	case "string":
		s, err := quotedValue(a.rawLine, "string")
		if err != nil {
			return nil, err
		}
		return value.NewStringFromString(s), nil
	case "symbol":
		if len(fields) != 2 {
			return nil, errors.New("asm: symbol constant requires one name")
		}
		return value.NewSymbol([]byte(fields[1])), nil
	case "keyword":
		if len(fields) != 2 {
			return nil, errors.New("asm: keyword constant requires one name")
		}
		return value.NewKeyword([]byte(fields[1])), nil
	default:
		return nil, fmt.Errorf("asm: unknown constant type %q", fields[0])
	}
}

func (a *assembler) environments(fs *fnState, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "environments:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		fs.def.Environments = append(fs.def.Environments, int(a.int(fields[0])))
	}
	return fields
}

func (a *assembler) closures(fs *fnState, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "closures:") {
		return fields
	}
	fields = a.next()
	for a.err == nil && len(fields) > 0 && strings.EqualFold(fields[0], "function:") {
		var child *code.FuncDef
		child, fields = a.function(fields)
		if a.err != nil {
			return fields
		}
		idx := int32(len(fs.def.Defs))
		fs.def.Defs = append(fs.def.Defs, child)
		if child.Name != "" {
			fs.closureNames[child.Name] = idx
		}
	}
	return fields
}

func (a *assembler) codeSection(fs *fnState, fields []string) []string {
	if a.err != nil {
		return fields
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		a.err = errors.New("asm: missing code: section")
		return fields
	}

	var insns []pendingInsn
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		if len(fields) == 1 && strings.HasSuffix(fields[0], ":") {
			fs.labels[strings.TrimSuffix(fields[0], ":")] = len(insns)
			continue
		}
		op, ok := lookupOpcode(fields[0])
		if !ok {
			a.err = fmt.Errorf("asm: unknown opcode %q", fields[0])
			return fields
		}
		want := operandsFor(op)
		if len(fields)-1 != len(want) {
			a.err = fmt.Errorf("asm: %s expects %d operand(s), got %d", fields[0], len(want), len(fields)-1)
			return fields
		}
		insns = append(insns, pendingInsn{op: op, args: fields[1:]})
	}

	fs.def.Bytecode = make([]code.Instruction, len(insns))
	for i, pi := range insns {
		ins, err := a.encodeInsn(fs, i, pi)
		if err != nil {
			a.err = err
			return fields
		}
		fs.def.Bytecode[i] = ins
	}
	return fields
}

func (a *assembler) encodeInsn(fs *fnState, at int, pi pendingInsn) (code.Instruction, error) {
	kinds := operandsFor(pi.op)
	var vals [3]int32
	for i, k := range kinds {
		v, err := a.resolveOperand(fs, at, k, pi.args[i])
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	return code.MakeInstruction(pi.op, vals[0], vals[1], vals[2]), nil
}

func (a *assembler) resolveOperand(fs *fnState, at int, k operandKind, tok string) (int32, error) {
	switch k {
	case operandSlot:
		if n, ok := fs.slotNames[tok]; ok {
			return n, nil
		}
		return parseInt32(tok)
	case operandFarSlot, operandEnv, operandImmediate:
		return parseInt32(tok)
	case operandConstant:
		if n, ok := fs.constNames[tok]; ok {
			return n, nil
		}
		return parseInt32(tok)
	case operandChildDef:
		if n, ok := fs.closureNames[tok]; ok {
			return n, nil
		}
		return parseInt32(tok)
	case operandLabel:
		target, ok := fs.labels[tok]
		if !ok {
			return 0, fmt.Errorf("asm: unknown label %q", tok)
		}
		return int32(target - (at + 1)), nil
	case operandTypeMask:
		mask, err := fiber.ParseTypeMask(strings.Split(tok, "|")...)
		if err != nil {
			return 0, err
		}
		return int32(mask), nil
	default:
		return 0, fmt.Errorf("asm: unsupported operand kind %d", k)
	}
}

func parseInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("asm: invalid integer operand %q: %w", s, err)
	}
	return int32(n), nil
}

func (a *assembler) sourcemap(fs *fnState, fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "sourcemap:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		if len(fields) != 2 {
			a.err = errors.New("asm: sourcemap entry requires a line and a column")
			return fields
		}
		fs.def.SourceMap = append(fs.def.SourceMap, token.MakePos(int(a.int(fields[0])), int(a.int(fields[1]))))
	}
	return fields
}

func hasFlag(fields []string, flag string) bool {
	for _, f := range fields {
		if f == flag {
			return true
		}
	}
	return false
}

func (a *assembler) int(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		a.err = fmt.Errorf("asm: invalid integer %q: %w", s, err)
	}
	return n
}

// quotedValue extracts the quoted Go string literal following keyword on
// rawLine, since a string/source/sourcepath value may itself contain
// whitespace that strings.Fields would otherwise have already split apart.
func quotedValue(rawLine, keyword string) (string, error) {
	idx := strings.Index(rawLine, keyword)
	if idx < 0 {
		return "", fmt.Errorf("asm: expected %q on line %q", keyword, rawLine)
	}
	rest := strings.TrimSpace(rawLine[idx+len(keyword):])
	qs, err := strconv.QuotedPrefix(rest)
	if err != nil {
		return "", fmt.Errorf("asm: invalid quoted value: %w", err)
	}
	return strconv.Unquote(qs)
}

// next returns the fields of the next non-empty, non-comment line, stripped
// of any trailing '#' comment, so fields[0] identifies the line (a section
// header, a label, or an opcode mnemonic).
func (a *assembler) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		for i, f := range fields {
			if strings.HasPrefix(f, "#") {
				fields = fields[:i]
				break
			}
		}
		if len(fields) == 0 {
			continue
		}
		a.rawLine = line
		return fields
	}
	a.err = a.s.Err()
	return nil
}
