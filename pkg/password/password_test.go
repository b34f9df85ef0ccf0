package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	// Min cost keeps the test fast; production uses the configured cost.
	h := NewBcryptHasher(4)

	digest, err := h.Hash("P@ssw0rd1")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotEqual(t, "P@ssw0rd1", digest)

	assert.True(t, h.Matches("P@ssw0rd1", digest))
	assert.False(t, h.Matches("p@ssw0rd1", digest))
	assert.False(t, h.Matches("", digest))
}

func TestBcryptHasherDistinctSalts(t *testing.T) {
	h := NewBcryptHasher(4)

	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcryptHasherInvalidCostFallsBack(t *testing.T) {
	h := NewBcryptHasher(99)
	assert.Equal(t, 12, h.cost)
}
