package value_test

import (
	"testing"

	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayPushPop(t *testing.T) {
	h := gc.NewHeap(0)
	a := value.NewArray(h, 0)
	assert.Equal(t, 0, a.Length())

	a.Push(value.Number(1))
	a.Push(value.Number(2))
	a.Push(value.Number(3))
	assert.Equal(t, 3, a.Length())

	v, err := a.GetIndex(1)
	require.NoError(t, err)
	assert.Equal(t, value.Number(2), v)

	popped, ok := a.Pop()
	assert.True(t, ok)
	assert.Equal(t, value.Number(3), popped)
	assert.Equal(t, 2, a.Length())
}

func TestArrayGrowsGeometrically(t *testing.T) {
	h := gc.NewHeap(0)
	a := value.NewArray(h, 1)
	for i := 0; i < 100; i++ {
		a.Push(value.Number(i))
	}
	assert.Equal(t, 100, a.Length())
	v, err := a.GetIndex(99)
	require.NoError(t, err)
	assert.Equal(t, value.Number(99), v)
}

func TestArraySetIndexOutOfRange(t *testing.T) {
	h := gc.NewHeap(0)
	a := value.NewArray(h, 0)
	err := a.SetIndex(0, value.Number(1))
	assert.Error(t, err)
}

func TestArrayGCMarksElements(t *testing.T) {
	h := gc.NewHeap(0)
	inner := value.NewArray(h, 0)
	outer := value.NewArray(h, 0)
	outer.Push(inner)

	h.Root(outer)
	h.Collect()
	assert.Equal(t, 2, h.Count(), "both arrays should survive via the root")
}
