package value_test

import (
	"testing"

	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/lang/token"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareCrossKindByKindOrder(t *testing.T) {
	c, err := value.Compare(value.Nil, value.Number(0))
	require.NoError(t, err)
	assert.Equal(t, -1, c, "nil sorts before number regardless of value")
}

func TestCompareSameKindDefersToCmp(t *testing.T) {
	c, err := value.Compare(value.Number(1), value.Number(2))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestEqualsIdentityForArrays(t *testing.T) {
	h := gc.NewHeap(0)
	a := value.NewArray(h, 0)
	b := value.NewArray(h, 0)
	assert.False(t, value.Equals(a, b), "distinct arrays are never equal")
	assert.True(t, value.Equals(a, a))
}

func TestBinaryArithmetic(t *testing.T) {
	v, err := value.Binary(token.PLUS, value.Number(2), value.Number(3))
	require.NoError(t, err)
	assert.Equal(t, value.Number(5), v)

	v, err = value.Binary(token.SLASHSLASH, value.Number(7), value.Number(2))
	require.NoError(t, err)
	assert.Equal(t, value.Number(3), v)
}

func TestBinaryComparison(t *testing.T) {
	v, err := value.Binary(token.LT, value.Number(1), value.Number(2))
	require.NoError(t, err)
	assert.Equal(t, value.True, v)
}

func TestUnaryNegate(t *testing.T) {
	v, err := value.Unary(token.UMINUS, value.Number(5))
	require.NoError(t, err)
	assert.Equal(t, value.Number(-5), v)
}

func TestNextOverArray(t *testing.T) {
	h := gc.NewHeap(0)
	a := value.NewArray(h, 0)
	a.Push(value.Number(1))
	a.Push(value.Number(2))

	first, err := value.Next(a, value.Nil)
	require.NoError(t, err)
	assert.Equal(t, value.Number(1), first)

	second, err := value.Next(a, first)
	require.NoError(t, err)
	assert.Equal(t, value.Number(2), second)

	done, err := value.Next(a, second)
	require.NoError(t, err)
	assert.Equal(t, value.Nil, done)
}

func TestModuloByZeroErrors(t *testing.T) {
	_, err := value.Binary(token.PERCENT, value.Number(1), value.Number(0))
	assert.Error(t, err)
}
