package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("Sup3r$ecret")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3r$ecret", hash)

	assert.True(t, Verify("Sup3r$ecret", hash))
	assert.False(t, Verify("wrong", hash))
}

func TestHashUsesConfiguredCost(t *testing.T) {
	hash, err := Hash("Sup3r$ecret")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, Cost, cost)
}

func TestOverlongPasswordIsRefused(t *testing.T) {
	long := strings.Repeat("a", MaxLength+1)

	_, err := Hash(long)
	assert.ErrorIs(t, err, ErrTooLong)

	hash, err := Hash(long[:MaxLength])
	require.NoError(t, err)
	assert.False(t, Verify(long, hash))
}

func TestVerifyRejectsGarbageHash(t *testing.T) {
	assert.False(t, Verify("Sup3r$ecret", "not-a-hash"))
}
