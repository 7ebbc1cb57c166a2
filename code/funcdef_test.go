package code_test

import (
	"testing"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAcceptsWellFormedDef(t *testing.T) {
	h := gc.NewHeap(0)
	def := code.NewFuncDef(h, &code.FuncDef{
		Arity: 2, MinArity: 2, MaxArity: 2,
		SlotCount: 3,
		Constants: []value.Value{value.Number(1)},
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.ADD, 2, 0, 1),
			code.MakeInstruction(code.RETURN, 2, 0, 0),
		},
	})
	assert.NoError(t, def.Verify())
}

func TestVerifyRejectsSlotOutOfRange(t *testing.T) {
	h := gc.NewHeap(0)
	def := code.NewFuncDef(h, &code.FuncDef{
		Arity: 0, MinArity: 0, MaxArity: 0,
		SlotCount: 1,
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.RETURN, 5, 0, 0),
		},
	})
	assert.Error(t, def.Verify())
}

func TestVerifyRejectsBadArity(t *testing.T) {
	h := gc.NewHeap(0)
	def := code.NewFuncDef(h, &code.FuncDef{
		Arity: 0, MinArity: 2, MaxArity: 1,
		SlotCount: 1,
	})
	assert.Error(t, def.Verify())
}

func TestVerifyRejectsOutOfRangeJump(t *testing.T) {
	h := gc.NewHeap(0)
	def := code.NewFuncDef(h, &code.FuncDef{
		Arity: 0, MinArity: 0, MaxArity: 0,
		SlotCount: 1,
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.JUMP, 1000, 0, 0),
		},
	})
	assert.Error(t, def.Verify())
}

func TestVerifyRejectsOutOfRangeConstant(t *testing.T) {
	h := gc.NewHeap(0)
	def := code.NewFuncDef(h, &code.FuncDef{
		Arity: 0, MinArity: 0, MaxArity: 0,
		SlotCount: 1,
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.LOAD_CONSTANT, 0, 99, 0),
		},
	})
	assert.Error(t, def.Verify())
}

func TestFuncDefGCMarksConstantsAndDefs(t *testing.T) {
	h := gc.NewHeap(0)
	nested := code.NewFuncDef(h, &code.FuncDef{SlotCount: 1})
	str := value.NewStringFromString("hello")
	parent := code.NewFuncDef(h, &code.FuncDef{
		SlotCount: 1,
		Constants: []value.Value{str},
		Defs:      []*code.FuncDef{nested},
	})
	require.NotNil(t, parent)

	h.Root(parent)
	h.Collect()
	assert.Equal(t, 2, h.Count(), "parent and nested FuncDef both survive via the root")
}
