package asm_test

import (
	"context"
	"testing"

	"github.com/mna/corevm/asm"
	"github.com/mna/corevm/code"
	"github.com/mna/corevm/fiber"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFunction(h *gc.Heap, def *code.FuncDef) *code.Function {
	return code.NewFunction(h, def, nil)
}

const factorialSrc = `
function: factorial 1 1 1
	slots: 6
		n
		one
		cond
		nm1
		acc
		self
	code:
		load-integer one 1
		less-than-equal cond n one
		jump-if-not cond rec
		load-integer acc 1
		return acc
	rec:
		subtract-immediate nm1 n 1
		push nm1
		load-self self
		call acc self
		multiply acc n acc
		return acc
`

func TestAssembleFactorialRuns(t *testing.T) {
	h := gc.NewHeap(0)
	def, err := asm.Assemble(h, []byte(factorialSrc))
	require.NoError(t, err)

	fn := newFunction(h, def)
	f := fiber.NewFiber(h, 0)
	require.NoError(t, f.Start(fn, []value.Value{value.Number(5)}))

	ip := fiber.NewInterp(h)
	val, sig, err := ip.Resume(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.SignalOK, sig)
	assert.Equal(t, value.Number(120), val)
}

func TestDisassembleAssembleRoundTrip(t *testing.T) {
	h := gc.NewHeap(0)
	def, err := asm.Assemble(h, []byte(factorialSrc))
	require.NoError(t, err)

	text, err := asm.Disassemble(def)
	require.NoError(t, err)

	h2 := gc.NewHeap(0)
	def2, err := asm.Assemble(h2, text)
	require.NoError(t, err)

	require.Equal(t, len(def.Bytecode), len(def2.Bytecode))
	for i := range def.Bytecode {
		assert.Equalf(t, def.Bytecode[i], def2.Bytecode[i], "instruction %d", i)
	}
	assert.Equal(t, def.SlotCount, def2.SlotCount)
	assert.Equal(t, def.Arity, def2.Arity)
	assert.Equal(t, def.MinArity, def2.MinArity)
	assert.Equal(t, def.MaxArity, def2.MaxArity)

	fn := newFunction(h2, def2)
	f := fiber.NewFiber(h2, 0)
	require.NoError(t, f.Start(fn, []value.Value{value.Number(6)}))
	ip := fiber.NewInterp(h2)
	val, sig, err := ip.Resume(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.SignalOK, sig)
	assert.Equal(t, value.Number(720), val)
}

const constAndTypecheckSrc = `
function: guarded 1 1 1 +vararg
	source: "demo.janet"
	slots: 2
		x
		ok
	constants:
		def greeting string "hello"
		int 42
	code:
		typecheck x number|nil
		load-constant ok greeting
		return ok
`

func TestAssembleConstantsAndTypecheck(t *testing.T) {
	h := gc.NewHeap(0)
	def, err := asm.Assemble(h, []byte(constAndTypecheckSrc))
	require.NoError(t, err)
	require.Len(t, def.Constants, 2)
	assert.Equal(t, value.NewStringFromString("hello"), def.Constants[0])
	assert.Equal(t, value.Number(42), def.Constants[1])
	assert.Equal(t, "demo.janet", def.Source)
	assert.True(t, def.Flags&code.FlagVararg != 0)

	fn := newFunction(h, def)
	f := fiber.NewFiber(h, 0)
	require.NoError(t, f.Start(fn, []value.Value{value.Number(1)}))
	ip := fiber.NewInterp(h)
	val, sig, err := ip.Resume(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.SignalOK, sig)
	assert.Equal(t, value.NewStringFromString("hello"), val)
}

func TestAssembleRejectsUnknownOpcode(t *testing.T) {
	h := gc.NewHeap(0)
	src := "function: bad 0 0 0\n\tslots: 1\n\t\tx\n\tcode:\n\t\tnot-an-opcode x\n"
	_, err := asm.Assemble(h, []byte(src))
	assert.Error(t, err)
}

func TestAssembleRejectsWrongOperandCount(t *testing.T) {
	h := gc.NewHeap(0)
	src := "function: bad 0 0 0\n\tslots: 1\n\t\tx\n\tcode:\n\t\tload-nil x x\n"
	_, err := asm.Assemble(h, []byte(src))
	assert.Error(t, err)
}
