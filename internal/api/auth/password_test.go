package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	digest, err := hasher.HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", digest)

	assert.True(t, hasher.CheckPassword("password123", digest))
	assert.False(t, hasher.CheckPassword("Password123", digest))
	assert.False(t, hasher.CheckPassword("", digest))
}

func TestHasherDigestsAreSalted(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	first, err := hasher.HashPassword("password123")
	require.NoError(t, err)
	second, err := hasher.HashPassword("password123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.CheckPassword("password123", first))
	assert.True(t, hasher.CheckPassword("password123", second))
}

func TestHasherMalformedDigest(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)
	assert.False(t, hasher.CheckPassword("password123", "not-a-bcrypt-digest"))
	assert.False(t, hasher.CheckPassword("password123", ""))
}

func TestHasherClampsCost(t *testing.T) {
	digest, err := NewHasher(99).HashPassword("password123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
