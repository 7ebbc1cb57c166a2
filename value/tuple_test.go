package value_test

import (
	"testing"

	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTupleConstructionAndIndex(t *testing.T) {
	h := gc.NewHeap(0)
	tup := value.NewTuple(h, []value.Value{value.Number(1), value.Number(2), value.Number(3)}, value.BracketParen)
	assert.Equal(t, 3, tup.Length())

	v, err := tup.GetIndex(1)
	require.NoError(t, err)
	assert.Equal(t, value.Number(2), v)
}

func TestTupleHashDeterministic(t *testing.T) {
	h := gc.NewHeap(0)
	a := value.NewTuple(h, []value.Value{value.Number(1), value.Number(2)}, value.BracketParen)
	b := value.NewTuple(h, []value.Value{value.Number(1), value.Number(2)}, value.BracketSquare)

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "bracket kind must not affect hash")
}

func TestTupleCmpLexicographic(t *testing.T) {
	h := gc.NewHeap(0)
	a := value.NewTuple(h, []value.Value{value.Number(1), value.Number(2)}, value.BracketParen)
	b := value.NewTuple(h, []value.Value{value.Number(1), value.Number(3)}, value.BracketParen)

	c, err := a.Cmp(b)
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestTupleBuilderRoundTrip(t *testing.T) {
	h := gc.NewHeap(0)
	b := value.BeginTuple(2)
	b.Put(value.Number(10))
	b.Put(value.Number(20))
	tup := b.End(h)
	assert.Equal(t, 2, tup.Length())
}

func TestTupleAppendPrependSlice(t *testing.T) {
	h := gc.NewHeap(0)
	base := value.NewTuple(h, []value.Value{value.Number(2), value.Number(3)}, value.BracketParen)

	withHead := value.TuplePrepend(h, value.Number(1), base)
	assert.Equal(t, 3, withHead.Length())
	v, _ := withHead.GetIndex(0)
	assert.Equal(t, value.Number(1), v)

	withTail := value.TupleAppend(h, base, value.Number(4))
	assert.Equal(t, 3, withTail.Length())
	v, _ = withTail.GetIndex(2)
	assert.Equal(t, value.Number(4), v)

	sliced := value.TupleSlice(h, withTail, 1, 3)
	assert.Equal(t, 2, sliced.Length())
}
