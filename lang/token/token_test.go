package token_test

import (
	"testing"

	"github.com/mna/corevm/lang/token"
	"github.com/stretchr/testify/assert"
)

func TestTokenString(t *testing.T) {
	assert.Equal(t, "+", token.PLUS.String())
	assert.Equal(t, "==", token.EQL.String())
	assert.Equal(t, "illegal token", token.ILLEGAL.String())
	assert.Equal(t, "illegal token", token.Token(120).String())
}

func TestIsComparison(t *testing.T) {
	assert.True(t, token.IsComparison(token.LT))
	assert.True(t, token.IsComparison(token.NEQ))
	assert.False(t, token.IsComparison(token.PLUS))
}

func TestIsBinaryArith(t *testing.T) {
	assert.True(t, token.IsBinaryArith(token.PLUS))
	assert.True(t, token.IsBinaryArith(token.GTGT))
	assert.False(t, token.IsBinaryArith(token.LT))
	assert.False(t, token.IsBinaryArith(token.UMINUS))
}
