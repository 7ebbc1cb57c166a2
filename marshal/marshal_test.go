package marshal_test

import (
	"testing"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/marshal"
	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, h *gc.Heap, v value.Value) value.Value {
	t.Helper()
	data, err := marshal.Marshal(v)
	require.NoError(t, err)
	out, err := marshal.Unmarshal(h, data)
	require.NoError(t, err)
	return out
}

func TestMarshalScalars(t *testing.T) {
	h := gc.NewHeap(0)
	cases := []value.Value{
		value.Nil,
		value.True,
		value.False,
		value.Number(42),
		value.Number(-7),
		value.Number(3.5),
		value.NewStringFromString("hello"),
		value.NewSymbol([]byte("sym")),
		value.NewKeyword([]byte("kw")),
	}
	for _, v := range cases {
		out := roundTrip(t, h, v)
		assert.Equal(t, v, out)
	}
}

func TestMarshalArrayRoundTrip(t *testing.T) {
	h := gc.NewHeap(0)
	a := value.NewArray(h, 0)
	a.Push(value.Number(1))
	a.Push(value.NewStringFromString("x"))
	a.Push(value.Nil)

	out := roundTrip(t, h, a)
	arr, ok := out.(*value.Array)
	require.True(t, ok)
	require.Equal(t, 3, arr.Length())
	v0, err := arr.GetIndex(0)
	require.NoError(t, err)
	assert.Equal(t, value.Number(1), v0)
}

func TestMarshalTupleRoundTrip(t *testing.T) {
	h := gc.NewHeap(0)
	tup := value.NewTuple(h, []value.Value{value.Number(1), value.Number(2)}, value.BracketSquare)

	out := roundTrip(t, h, tup)
	got, ok := out.(*value.Tuple)
	require.True(t, ok)
	assert.Equal(t, value.BracketSquare, got.Bracket())
	assert.Equal(t, 2, got.Length())
}

func TestMarshalTableRoundTrip(t *testing.T) {
	h := gc.NewHeap(0)
	tbl := value.NewTable(h, 0)
	require.NoError(t, tbl.Put(value.NewKeyword([]byte("a")), value.Number(1)))
	require.NoError(t, tbl.Put(value.NewKeyword([]byte("b")), value.Number(2)))

	out := roundTrip(t, h, tbl)
	got, ok := out.(*value.Table)
	require.True(t, ok)
	assert.Equal(t, 2, got.Length())
	v, found, err := got.Get(value.NewKeyword([]byte("a")))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, value.Number(1), v)
}

func TestMarshalStructRoundTrip(t *testing.T) {
	h := gc.NewHeap(0)
	b := value.BeginStruct(2)
	b.Put(value.NewKeyword([]byte("x")), value.Number(10))
	b.Put(value.NewKeyword([]byte("y")), value.Number(20))
	s := b.End(h)

	out := roundTrip(t, h, s)
	got, ok := out.(*value.Struct)
	require.True(t, ok)
	assert.Equal(t, s.Length(), got.Length())
	v, found, err := got.Get(value.NewKeyword([]byte("x")))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, value.Number(10), v)
}

func TestMarshalBufferRoundTrip(t *testing.T) {
	h := gc.NewHeap(0)
	buf := value.NewBuffer(h, 0)
	buf.Push([]byte("payload"))

	out := roundTrip(t, h, buf)
	got, ok := out.(*value.Buffer)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got.Bytes())
}

func TestMarshalSharedArrayReferencedTwice(t *testing.T) {
	h := gc.NewHeap(0)
	shared := value.NewArray(h, 0)
	shared.Push(value.Number(1))

	outer := value.NewArray(h, 0)
	outer.Push(shared)
	outer.Push(shared)

	out := roundTrip(t, h, outer)
	got, ok := out.(*value.Array)
	require.True(t, ok)
	first, err := got.GetIndex(0)
	require.NoError(t, err)
	second, err := got.GetIndex(1)
	require.NoError(t, err)
	assert.Same(t, first, second, "shared array input must unmarshal to a shared reference, not two copies")
}

func TestMarshalFunctionRoundTrip(t *testing.T) {
	h := gc.NewHeap(0)
	def := code.NewFuncDef(h, &code.FuncDef{
		Name:      "ident",
		Arity:     1,
		MinArity:  1,
		MaxArity:  1,
		SlotCount: 1,
		Bytecode: []code.Instruction{
			code.MakeInstruction(code.RETURN, 0, 0, 0),
		},
	})
	require.NoError(t, def.Verify())
	fn := code.NewFunction(h, def, nil)

	out := roundTrip(t, h, fn)
	got, ok := out.(*code.Function)
	require.True(t, ok)
	assert.Equal(t, def.Name, got.Def.Name)
	assert.Empty(t, got.Envs)
}

func TestMarshalRejectsUnsupportedKind(t *testing.T) {
	_, err := marshal.Marshal(value.Pointer{})
	assert.Error(t, err)
}
