package value_test

import (
	"testing"

	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructCanonicalOrderIndependentOfInsertion(t *testing.T) {
	h := gc.NewHeap(0)
	a := value.BeginStruct(2)
	a.Put(value.NewSymbol([]byte("x")), value.Number(1))
	a.Put(value.NewSymbol([]byte("y")), value.Number(2))
	sa := a.End(h)

	b := value.BeginStruct(2)
	b.Put(value.NewSymbol([]byte("y")), value.Number(2))
	b.Put(value.NewSymbol([]byte("x")), value.Number(1))
	sb := b.End(h)

	ha, err := sa.Hash()
	require.NoError(t, err)
	hb, err := sb.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "insertion order must not affect struct hash")

	c, err := sa.Cmp(sb)
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestStructGetAndPrototype(t *testing.T) {
	h := gc.NewHeap(0)
	protoB := value.BeginStruct(1)
	protoB.Put(value.NewSymbol([]byte("base")), value.Number(100))
	proto := protoB.End(h)

	b := value.BeginStruct(1)
	b.Put(value.NewSymbol([]byte("own")), value.Number(1))
	b.SetProto(proto)
	s := b.End(h)

	v, found, err := s.Get(value.NewSymbol([]byte("base")))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value.Number(100), v)
}

func TestStructDuplicateKeyLastWriteWins(t *testing.T) {
	h := gc.NewHeap(0)
	b := value.BeginStruct(2)
	k := value.NewSymbol([]byte("k"))
	b.Put(k, value.Number(1))
	b.Put(k, value.Number(2))
	s := b.End(h)

	assert.Equal(t, 1, s.Length())
	v, found, err := s.Get(k)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value.Number(2), v)
}
