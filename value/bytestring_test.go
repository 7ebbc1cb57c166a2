package value_test

import (
	"testing"

	"github.com/mna/corevm/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolInterning(t *testing.T) {
	a := value.NewSymbol([]byte("foo"))
	b := value.NewSymbol([]byte("foo"))
	assert.Equal(t, a, b, "equal symbols should intern to the same value")

	c := value.NewSymbol([]byte("bar"))
	assert.NotEqual(t, a, c)
}

func TestSymbolHashStable(t *testing.T) {
	a := value.NewSymbol([]byte("hello"))
	h1, err := a.Hash()
	require.NoError(t, err)
	h2, err := a.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestStringCmp(t *testing.T) {
	a := value.NewStringFromString("abc")
	b := value.NewStringFromString("abd")
	c, err := a.Cmp(b)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = b.Cmp(a)
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = a.Cmp(value.NewStringFromString("abc"))
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestKeywordNotInterned(t *testing.T) {
	a := value.NewKeyword([]byte("kw"))
	b := value.NewKeyword([]byte("kw"))
	assert.True(t, value.Equals(a, b), "keywords compare structurally")
}

func TestStringGetIndex(t *testing.T) {
	s := value.NewStringFromString("ab")
	v, err := s.GetIndex(0)
	require.NoError(t, err)
	assert.Equal(t, value.Number('a'), v)

	_, err = s.GetIndex(5)
	assert.Error(t, err)
}
