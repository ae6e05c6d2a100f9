package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenValue(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		token, err := GenerateTokenValue()
		require.NoError(t, err)
		require.Len(t, token, TokenLength)
		for _, r := range token {
			assert.True(t, strings.ContainsRune(tokenAlphabet, r), "unexpected character %q", r)
		}
		_, dup := seen[token]
		assert.False(t, dup, "duplicate token generated")
		seen[token] = struct{}{}
	}
}
