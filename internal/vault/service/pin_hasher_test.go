package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinHasher(t *testing.T) {
	hasher, err := NewPinHasher()
	require.NoError(t, err)

	hash, err := hasher.HashPin("482913")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.NotContains(t, hash, "482913")

	assert.True(t, hasher.VerifyPin("482913", hash))
	assert.False(t, hasher.VerifyPin("482914", hash))
	assert.False(t, hasher.VerifyPin("482913", "not-a-hash"))

	again, err := hasher.HashPin("482913")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")
}
