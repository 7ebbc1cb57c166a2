package value_test

import (
	"testing"

	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablePutGet(t *testing.T) {
	h := gc.NewHeap(0)
	tbl := value.NewTable(h, 0)

	k := value.NewStringFromString("key")
	require.NoError(t, tbl.Put(k, value.Number(42)))

	v, found, err := tbl.Get(k)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value.Number(42), v)
}

func TestTableRehashPreservesEntries(t *testing.T) {
	h := gc.NewHeap(0)
	tbl := value.NewTable(h, 0)
	for i := 0; i < 200; i++ {
		require.NoError(t, tbl.Put(value.NewSymbol([]byte{byte(i)}), value.Number(i)))
	}
	for i := 0; i < 200; i++ {
		v, found, err := tbl.Get(value.NewSymbol([]byte{byte(i)}))
		require.NoError(t, err)
		require.True(t, found, "entry %d should survive rehashing", i)
		assert.Equal(t, value.Number(i), v)
	}
}

func TestTableDeleteLeavesTombstoneThenReuses(t *testing.T) {
	h := gc.NewHeap(0)
	tbl := value.NewTable(h, 0)
	k1 := value.NewSymbol([]byte("k1"))
	k2 := value.NewSymbol([]byte("k2"))
	require.NoError(t, tbl.Put(k1, value.Number(1)))
	require.NoError(t, tbl.Put(k2, value.Number(2)))

	old, found, err := tbl.Delete(k1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value.Number(1), old)

	_, found, err = tbl.Get(k1)
	require.NoError(t, err)
	assert.False(t, found)

	// k2 must still be reachable by linear probing across the tombstone.
	v, found, err := tbl.Get(k2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value.Number(2), v)
}

func TestTablePrototypeChain(t *testing.T) {
	h := gc.NewHeap(0)
	proto := value.NewTable(h, 0)
	require.NoError(t, proto.Put(value.NewSymbol([]byte("inherited")), value.Number(7)))

	child := value.NewTable(h, 0)
	child.SetProto(proto)

	v, found, err := child.Get(value.NewSymbol([]byte("inherited")))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value.Number(7), v)

	_, found, err = child.GetLocal(value.NewSymbol([]byte("inherited")))
	require.NoError(t, err)
	assert.False(t, found, "GetLocal must not consult the prototype")
}

func TestTableNilKeyRejected(t *testing.T) {
	h := gc.NewHeap(0)
	tbl := value.NewTable(h, 0)
	err := tbl.Put(value.Nil, value.Number(1))
	assert.Error(t, err)
}

func TestWeakValueTablePurgesUnreachable(t *testing.T) {
	h := gc.NewHeap(0)
	weak := value.NewWeakTable(h, 0, value.WeakValues)
	key := value.NewSymbol([]byte("k"))
	target := value.NewArray(h, 0)
	require.NoError(t, weak.Put(key, target))

	h.Root(weak)
	h.Collect() // target is not rooted, so it should be purged from weak

	_, found, err := weak.Get(key)
	require.NoError(t, err)
	assert.False(t, found, "weak-value entry should be purged once target is unreachable")
}
