package vm_test

import (
	"context"
	"testing"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/value"
	"github.com/mna/corevm/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesConfig(t *testing.T) {
	m := vm.New(vm.Config{GCInterval: 0, MaxSteps: 10, MaxCallStackDepth: 8, HashSeed: 1})
	require.NotNil(t, m.Heap)
	require.NotNil(t, m.Universe)
	require.NotNil(t, m.Interp)
	assert.EqualValues(t, 10, m.Interp.MaxSteps)
}

func TestDefineAndLookup(t *testing.T) {
	m := vm.New(vm.Config{})
	require.NoError(t, m.Define("pi", value.Number(3)))
	v, ok, err := m.Lookup("pi")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value.Number(3), v)

	_, ok, err = m.Lookup("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCallRunsToCompletion(t *testing.T) {
	m := vm.New(vm.Config{})
	def := code.NewFuncDef(m.Heap, &code.FuncDef{
		Name:      "const-one",
		Arity:     0,
		SlotCount: 1,
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.LOAD_INTEGER, 0, 1, 0),
			code.MakeInstruction(code.RETURN, 0, 0, 0),
		},
	})
	require.NoError(t, def.Verify())
	fn := code.NewFunction(m.Heap, def, nil)

	out, err := m.Call(context.Background(), fn, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Number(1), out)
}

func TestInternedSymbolsSorted(t *testing.T) {
	m := vm.New(vm.Config{})
	value.NewSymbol([]byte("zz-corevm-test"))
	value.NewSymbol([]byte("aa-corevm-test"))
	names := m.InternedSymbols()
	assert.Contains(t, names, "aa-corevm-test")
	assert.Contains(t, names, "zz-corevm-test")
}
