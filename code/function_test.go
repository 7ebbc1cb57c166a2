package code_test

import (
	"testing"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
)

func TestFunctionArityFromDef(t *testing.T) {
	h := gc.NewHeap(0)
	def := code.NewFuncDef(h, &code.FuncDef{Arity: 2, MinArity: 1, MaxArity: 3, SlotCount: 2})
	fn := code.NewFunction(h, def, nil)

	min, max := fn.Arity()
	assert.Equal(t, 1, min)
	assert.Equal(t, 3, max)
	assert.Equal(t, value.KindFunction, fn.Kind())
}

func TestFunctionGCMarksDefAndEnvs(t *testing.T) {
	h := gc.NewHeap(0)
	def := code.NewFuncDef(h, &code.FuncDef{SlotCount: 1})
	fiber := newFakeFiber(h, 4)
	env := code.NewOnStackEnv(h, fiber, 1, 1)
	fn := code.NewFunction(h, def, []*code.FuncEnv{env})

	h.Root(fn)
	h.Collect()
	// fn, def, env, fiber should all survive
	assert.Equal(t, 4, h.Count())
}
