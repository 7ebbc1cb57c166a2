// Package asm implements the two-way symbolic assembler/disassembler of
// spec component F: a human-readable textual form for a FuncDef, and its
// inverse. Adapted from github.com/mna/nenuphar's lang/compiler/asm.go
// line-oriented bufio.Scanner parser, generalized from nenuphar's
// single-argument opcode encoding to this runtime's multi-operand, shaped
// instruction set.
package asm

import (
	"sort"

	"github.com/mna/corevm/code"
)

// operandKind classifies one positional operand of a mnemonic line, driving
// how the assembler resolves it (named-slot map, named-constant map, etc.)
// and how the disassembler renders it back.
type operandKind uint8

const (
	operandSlot     operandKind = iota // local slot, resolved via the named-slot map
	operandFarSlot                     // slot within a captured environment; numeric only
	operandEnv                         // captured-environment index; numeric only
	operandImmediate                   // signed integer literal
	operandConstant                    // index into Constants, resolved via the named-constant map
	operandChildDef                    // index into Defs, resolved via the named-closure map
	operandLabel                       // a label name, resolved to a signed jump offset
	operandTypeMask                    // a type name or a pipe-separated union of names (number|nil)
)

// opcodeOperands gives the positional operand-kind list for every opcode, in
// the same order MakeInstruction's (a, b, c) parameters occupy for that
// opcode's Shape — which, instruction by instruction, is also the order
// package fiber's interpreter reads them back out, so this table doubles as
// the one place that documents each opcode's argument semantics end to end.
var opcodeOperands = [...][]operandKind{
	code.NOOP:  {},
	code.DEBUG: {},

	code.LOAD_NIL:      {operandSlot},
	code.LOAD_TRUE:     {operandSlot},
	code.LOAD_FALSE:    {operandSlot},
	code.LOAD_INTEGER:  {operandSlot, operandImmediate},
	code.LOAD_CONSTANT: {operandSlot, operandConstant},
	code.LOAD_SELF:     {operandSlot},
	code.LOAD_UPVALUE:  {operandSlot, operandEnv, operandFarSlot},
	code.SET_UPVALUE:   {operandSlot, operandEnv, operandFarSlot},
	code.MOVE_NEAR:     {operandSlot, operandSlot},
	code.MOVE_FAR:      {operandSlot, operandSlot},

	code.LESS_THAN:          {operandSlot, operandSlot, operandSlot},
	code.LESS_THAN_EQUAL:    {operandSlot, operandSlot, operandSlot},
	code.GREATER_THAN:       {operandSlot, operandSlot, operandSlot},
	code.GREATER_THAN_EQUAL: {operandSlot, operandSlot, operandSlot},
	code.EQUALS:             {operandSlot, operandSlot, operandSlot},
	code.NOT_EQUALS:         {operandSlot, operandSlot, operandSlot},

	code.ADD:                      {operandSlot, operandSlot, operandSlot},
	code.ADD_IMMEDIATE:            {operandSlot, operandSlot, operandImmediate},
	code.SUBTRACT:                 {operandSlot, operandSlot, operandSlot},
	code.SUBTRACT_IMMEDIATE:       {operandSlot, operandSlot, operandImmediate},
	code.MULTIPLY:                 {operandSlot, operandSlot, operandSlot},
	code.MULTIPLY_IMMEDIATE:       {operandSlot, operandSlot, operandImmediate},
	code.DIVIDE:                   {operandSlot, operandSlot, operandSlot},
	code.DIVIDE_IMMEDIATE:         {operandSlot, operandSlot, operandImmediate},
	code.DIVIDE_INTEGER:           {operandSlot, operandSlot, operandSlot},
	code.DIVIDE_INTEGER_IMMEDIATE: {operandSlot, operandSlot, operandImmediate},
	code.MODULO:                   {operandSlot, operandSlot, operandSlot},
	code.MODULO_IMMEDIATE:         {operandSlot, operandSlot, operandImmediate},
	code.REMAINDER:                {operandSlot, operandSlot, operandSlot},
	code.REMAINDER_IMMEDIATE:      {operandSlot, operandSlot, operandImmediate},
	code.BAND:                     {operandSlot, operandSlot, operandSlot},
	code.BAND_IMMEDIATE:           {operandSlot, operandSlot, operandImmediate},
	code.BOR:                      {operandSlot, operandSlot, operandSlot},
	code.BOR_IMMEDIATE:            {operandSlot, operandSlot, operandImmediate},
	code.BXOR:                     {operandSlot, operandSlot, operandSlot},
	code.BXOR_IMMEDIATE:           {operandSlot, operandSlot, operandImmediate},
	code.BNOT:                     {operandSlot, operandSlot},
	code.SHIFT_LEFT:               {operandSlot, operandSlot, operandSlot},
	code.SHIFT_LEFT_IMMEDIATE:     {operandSlot, operandSlot, operandImmediate},
	code.SHIFT_RIGHT:              {operandSlot, operandSlot, operandSlot},
	code.SHIFT_RIGHT_IMMEDIATE:    {operandSlot, operandSlot, operandImmediate},

	code.JUMP:            {operandLabel},
	code.JUMP_IF:         {operandSlot, operandLabel},
	code.JUMP_IF_NOT:     {operandSlot, operandLabel},
	code.JUMP_IF_NIL:     {operandSlot, operandLabel},
	code.JUMP_IF_NOT_NIL: {operandSlot, operandLabel},

	code.MAKE_ARRAY:         {operandSlot, operandImmediate},
	code.MAKE_BUFFER:        {operandSlot, operandImmediate},
	code.MAKE_STRING:        {operandSlot, operandConstant},
	code.MAKE_STRUCT:        {operandSlot, operandImmediate},
	code.MAKE_TABLE:         {operandSlot, operandImmediate},
	code.MAKE_TUPLE:         {operandSlot, operandImmediate},
	code.MAKE_BRACKET_TUPLE: {operandSlot, operandImmediate},

	code.CALL:       {operandSlot, operandSlot},
	code.TAILCALL:   {operandSlot},
	code.RETURN:     {operandSlot},
	code.RETURN_NIL: {},

	code.RESUME:    {operandSlot, operandSlot, operandSlot},
	code.SIGNAL:    {operandSlot, operandSlot, operandImmediate},
	code.PROPAGATE: {operandSlot, operandSlot},
	code.YIELD:     {operandSlot, operandSlot},
	code.CANCEL:    {operandSlot, operandSlot},

	code.IN:        {operandSlot, operandSlot, operandSlot},
	code.GET:       {operandSlot, operandSlot, operandSlot},
	code.PUT:       {operandSlot, operandSlot, operandSlot},
	code.GET_INDEX: {operandSlot, operandSlot, operandSlot},
	code.PUT_INDEX: {operandSlot, operandSlot, operandSlot},
	code.LENGTH:    {operandSlot, operandSlot},
	code.NEXT:      {operandSlot, operandSlot, operandSlot},

	code.TYPECHECK: {operandSlot, operandTypeMask},
	code.CLOSURE:   {operandSlot, operandChildDef},

	code.PUSH:       {operandSlot},
	code.PUSH_2:     {operandSlot, operandSlot},
	code.PUSH_3:     {operandSlot, operandSlot, operandSlot},
	code.PUSH_ARRAY: {operandSlot},

	code.ERROR: {operandSlot},
}

func operandsFor(op code.Opcode) []operandKind {
	if int(op) < len(opcodeOperands) {
		return opcodeOperands[op]
	}
	return nil
}

type mnemonicEntry struct {
	name string
	op   code.Opcode
}

var mnemonicTable []mnemonicEntry

func init() {
	for op := code.Opcode(0); op < code.OpcodeMax; op++ {
		mnemonicTable = append(mnemonicTable, mnemonicEntry{name: op.String(), op: op})
	}
	sort.Slice(mnemonicTable, func(i, j int) bool { return mnemonicTable[i].name < mnemonicTable[j].name })
}

// lookupOpcode resolves a mnemonic to its Opcode by binary-searching the
// lexicographically sorted mnemonic table (§4.F: "binary-searched over a
// lexicographically sorted table").
func lookupOpcode(name string) (code.Opcode, bool) {
	lo, hi := 0, len(mnemonicTable)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case mnemonicTable[mid].name < name:
			lo = mid + 1
		case mnemonicTable[mid].name > name:
			hi = mid
		default:
			return mnemonicTable[mid].op, true
		}
	}
	return 0, false
}

// decodeOperands extracts ins's operands in the positional order
// opcodeOperands declares for its opcode, using the accessor appropriate to
// that opcode's Shape.
func decodeOperands(ins code.Instruction) []int32 {
	switch ins.Op().ArgShape() {
	case code.Shape0:
		return nil
	case code.ShapeS:
		return []int32{ins.A24()}
	case code.ShapeL:
		return []int32{ins.L24()}
	case code.ShapeSL:
		return []int32{ins.Slot8(), ins.SArg16()}
	case code.ShapeSI:
		return []int32{ins.Slot8(), ins.SArg16()}
	case code.ShapeSS, code.ShapeST, code.ShapeSU, code.ShapeSD, code.ShapeSC:
		return []int32{ins.Slot8(), ins.Arg16()}
	case code.ShapeSSI:
		return []int32{ins.Slot8(), ins.Slot16_2(), ins.SArg24_3()}
	case code.ShapeSSS, code.ShapeSSU, code.ShapeSES:
		return []int32{ins.Slot8(), ins.Slot16_2(), ins.Slot24_3()}
	default:
		return nil
	}
}
