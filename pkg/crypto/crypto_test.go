package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "Passw0rd!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestHashPassword_CostIsAtLeastTwelve(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cost, 12)
}
