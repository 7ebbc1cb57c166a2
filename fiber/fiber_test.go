package fiber_test

import (
	"context"
	"testing"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/fiber"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkFunc(t *testing.T, h *gc.Heap, def *code.FuncDef) *code.Function {
	t.Helper()
	d := code.NewFuncDef(h, def)
	require.NoError(t, d.Verify())
	return code.NewFunction(h, d, nil)
}

// TestFiberFactorial runs a non-tail recursive factorial(n) = n <= 1 ? 1 :
// n * factorial(n-1), exercising CALL, LOAD_SELF, comparisons and
// arithmetic.
func TestFiberFactorial(t *testing.T) {
	h := gc.NewHeap(0)
	// Base case writes 1 into slot4 then returns it; the recursive branch
	// computes n-1, calls self, multiplies, returns.
	def := &code.FuncDef{
		Name: "factorial", Arity: 1, MinArity: 1, MaxArity: 1, SlotCount: 6,
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.LOAD_INTEGER, 1, 1, 0),     // idx0: slot1 = 1
		code.MakeInstruction(code.LESS_THAN_EQUAL, 2, 0, 1),  // idx1: slot2 = n <= 1
		code.MakeInstruction(code.JUMP_IF_NOT, 2, 2, 0),      // idx2: if !slot2, pc += 2 -> idx5
		code.MakeInstruction(code.LOAD_INTEGER, 4, 1, 0),     // idx3: slot4 = 1
		code.MakeInstruction(code.RETURN, 4, 0, 0),           // idx4: return slot4
		code.MakeInstruction(code.SUBTRACT_IMMEDIATE, 3, 0, 1), // idx5: slot3 = n - 1
		code.MakeInstruction(code.PUSH, 3, 0, 0),             // idx6: stage slot3
		code.MakeInstruction(code.LOAD_SELF, 5, 0, 0),        // idx7: slot5 = self
		code.MakeInstruction(code.CALL, 4, 5, 0),             // idx8: slot4 = call(slot5)
		code.MakeInstruction(code.MULTIPLY, 4, 0, 4),         // idx9: slot4 = n * slot4
		code.MakeInstruction(code.RETURN, 4, 0, 0),           // idx10: return slot4
		},
	}
	fn := mkFunc(t, h, def)

	f := fiber.NewFiber(h, 0)
	require.NoError(t, f.Start(fn, []value.Value{value.Number(5)}))

	ip := fiber.NewInterp(h)
	val, sig, err := ip.Resume(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.SignalOK, sig)
	assert.Equal(t, value.Number(120), val)
	assert.Equal(t, fiber.StatusDead, f.Status())
}

// TestFiberTailcallLoopBoundedStack sums 1..n via a self-tail-call loop. n is
// larger than MaxCallDepth, so the run only succeeds if every TAILCALL reuses
// the one frame instead of pushing a new one.
func TestFiberTailcallLoopBoundedStack(t *testing.T) {
	h := gc.NewHeap(0)
	def := &code.FuncDef{
		Name: "loop", Arity: 2, MinArity: 2, MaxArity: 2, SlotCount: 7,
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.LOAD_INTEGER, 2, 0, 0),        // idx0: slot2 = 0
			code.MakeInstruction(code.EQUALS, 3, 0, 2),              // idx1: slot3 = n == 0
			code.MakeInstruction(code.JUMP_IF_NOT, 3, 1, 0),         // idx2: if !slot3, pc += 1 -> idx4
			code.MakeInstruction(code.RETURN, 1, 0, 0),              // idx3: return acc
			code.MakeInstruction(code.ADD, 5, 1, 0),                 // idx4: slot5 = acc + n
			code.MakeInstruction(code.SUBTRACT_IMMEDIATE, 4, 0, 1),  // idx5: slot4 = n - 1
			code.MakeInstruction(code.LOAD_SELF, 6, 0, 0),           // idx6: slot6 = self
			code.MakeInstruction(code.PUSH_2, 4, 5, 0),              // idx7: stage slot4, slot5
			code.MakeInstruction(code.TAILCALL, 6, 0, 0),            // idx8: tailcall slot6
		},
	}
	fn := mkFunc(t, h, def)

	f := fiber.NewFiber(h, 0)
	const n = 10000
	require.NoError(t, f.Start(fn, []value.Value{value.Number(n), value.Number(0)}))

	ip := fiber.NewInterp(h)
	val, sig, err := ip.Resume(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.SignalOK, sig)
	assert.Equal(t, value.Number(n*(n+1)/2), val)
}

// TestFiberYieldResume exercises the suspend/resume ping-pong: the fiber
// yields a value, then doubles whatever value it is resumed with.
func TestFiberYieldResume(t *testing.T) {
	h := gc.NewHeap(0)
	def := &code.FuncDef{
		Name: "gen", SlotCount: 3,
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.LOAD_INTEGER, 0, 10, 0),
			code.MakeInstruction(code.YIELD, 1, 0, 0),
			code.MakeInstruction(code.MULTIPLY_IMMEDIATE, 2, 1, 2),
			code.MakeInstruction(code.RETURN, 2, 0, 0),
		},
	}
	fn := mkFunc(t, h, def)

	f := fiber.NewFiber(h, 0)
	require.NoError(t, f.Start(fn, nil))

	ip := fiber.NewInterp(h)
	val, sig, err := ip.Resume(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.SignalYield, sig)
	assert.Equal(t, value.Number(10), val)
	assert.Equal(t, fiber.StatusPending, f.Status())

	val, sig, err = ip.Resume(context.Background(), f, value.Number(7))
	require.NoError(t, err)
	assert.Equal(t, fiber.SignalOK, sig)
	assert.Equal(t, value.Number(14), val)
	assert.Equal(t, fiber.StatusDead, f.Status())
}

// TestFiberClosureCapture builds a counter-factory closure and asserts that
// each call mutates shared captured state, observing the 1,2 sequence after
// the outer activation that created it has been popped and its env
// detached.
func TestFiberClosureCapture(t *testing.T) {
	h := gc.NewHeap(0)
	inner := &code.FuncDef{
		Name: "incr", SlotCount: 2, Environments: []int{-1},
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.LOAD_UPVALUE, 0, 0, 0),
			code.MakeInstruction(code.ADD_IMMEDIATE, 1, 0, 1),
			code.MakeInstruction(code.SET_UPVALUE, 1, 0, 0),
			code.MakeInstruction(code.RETURN, 1, 0, 0),
		},
	}
	outer := &code.FuncDef{
		Name: "make_counter", SlotCount: 2,
		Defs: []*code.FuncDef{inner},
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.LOAD_INTEGER, 0, 0, 0),
			code.MakeInstruction(code.CLOSURE, 1, 0, 0),
			code.MakeInstruction(code.RETURN, 1, 0, 0),
		},
	}
	outerFn := mkFunc(t, h, outer)

	ip := fiber.NewInterp(h)

	f1 := fiber.NewFiber(h, 0)
	require.NoError(t, f1.Start(outerFn, nil))
	val, sig, err := ip.Resume(context.Background(), f1, nil)
	require.NoError(t, err)
	assert.Equal(t, fiber.SignalOK, sig)

	counter, ok := val.(*code.Function)
	require.True(t, ok)

	f2 := fiber.NewFiber(h, 0)
	require.NoError(t, f2.Start(counter, nil))
	v1, _, err := ip.Resume(context.Background(), f2, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Number(1), v1)

	f3 := fiber.NewFiber(h, 0)
	require.NoError(t, f3.Start(counter, nil))
	v2, _, err := ip.Resume(context.Background(), f3, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Number(2), v2)
}

// TestFiberErrorPropagationAcrossFibers resumes a fiber whose body raises an
// error; with the error bit off in the fiber's own mask the error is not
// trapped, so the fiber terminates with status ERROR and hands the error
// value to its resumer.
func TestFiberErrorPropagationAcrossFibers(t *testing.T) {
	h := gc.NewHeap(0)
	def := &code.FuncDef{
		Name: "boom", SlotCount: 1,
		Constants: []value.Value{value.NewStringFromString("boom")},
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.LOAD_CONSTANT, 0, 0, 0),
			code.MakeInstruction(code.ERROR, 0, 0, 0),
		},
	}
	fn := mkFunc(t, h, def)

	child := fiber.NewFiber(h, 0)
	require.NoError(t, child.Start(fn, nil))

	ip := fiber.NewInterp(h)
	val, sig, err := ip.Resume(context.Background(), child, nil)
	require.Error(t, err)
	assert.Equal(t, fiber.SignalError, sig)
	assert.Equal(t, fiber.StatusError, child.Status())
	assert.Equal(t, value.NewStringFromString("boom"), val)
}
