package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)

		_, err = hex.DecodeString(token)
		assert.NoError(t, err)

		_, dup := seen[token]
		assert.False(t, dup)
		seen[token] = struct{}{}
	}
}
