package code_test

import (
	"testing"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFiber struct {
	hdr  gc.Header
	data []value.Value
}

func newFakeFiber(h *gc.Heap, n int) *fakeFiber {
	f := &fakeFiber{data: make([]value.Value, n)}
	h.Register(f, gc.KindFiber, uint64(n*8))
	return f
}

func (f *fakeFiber) StackSlot(offset int) value.Value      { return f.data[offset] }
func (f *fakeFiber) SetStackSlot(offset int, v value.Value) { f.data[offset] = v }
func (f *fakeFiber) GCHeader() *gc.Header                   { return &f.hdr }
func (f *fakeFiber) GCMark(h *gc.Heap, depth int)           {}
func (f *fakeFiber) GCFinalize()                            {}

func TestFuncEnvOnStackReadWrite(t *testing.T) {
	h := gc.NewHeap(0)
	fiber := newFakeFiber(h, 10)
	fiber.data[3] = value.Number(42)
	fiber.data[4] = value.Number(43)

	env := code.NewOnStackEnv(h, fiber, 3, 2)
	assert.True(t, env.IsOnStack())
	assert.Equal(t, value.Number(42), env.Get(0))

	env.Set(1, value.Number(99))
	assert.Equal(t, value.Number(99), fiber.data[4])
}

func TestFuncEnvDetach(t *testing.T) {
	h := gc.NewHeap(0)
	fiber := newFakeFiber(h, 10)
	fiber.data[1] = value.Number(7)
	fiber.data[2] = value.Number(8)

	env := code.NewOnStackEnv(h, fiber, 1, 2)
	env.Detach()

	require.False(t, env.IsOnStack())
	assert.Equal(t, value.Number(7), env.Get(0))
	assert.Equal(t, value.Number(8), env.Get(1))

	// mutating the fiber after detach must not affect the env anymore
	fiber.data[1] = value.Number(999)
	assert.Equal(t, value.Number(7), env.Get(0))
}
