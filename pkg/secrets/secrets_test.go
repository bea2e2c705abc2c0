package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GenerateAndVerify(t *testing.T) {
	secret, err := Generate(32)
	require.NoError(t, err)
	assert.Len(t, secret, 32)

	hash, err := Hash(secret)
	require.NoError(t, err)
	assert.NotEqual(t, secret, hash)

	assert.True(t, Verify(hash, secret))
	assert.False(t, Verify(hash, "wrong"))
}
