package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTripClaims(t *testing.T) {
	tok, err := Generate("s3cret", "u1", "m1", RoleMerchant, "test", 5)
	require.NoError(t, err)

	c, err := Parse("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "m1", c.MerchantID)
	assert.Equal(t, RoleMerchant, c.Role)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := Generate("a", "u1", "", RoleAdmin, "test", 5)
	require.NoError(t, err)

	_, err = Parse("b", tok)
	assert.Error(t, err)
}

func TestGenerate_EmptySecret(t *testing.T) {
	_, err := Generate("", "u1", "", RoleAdmin, "test", 5)
	assert.Error(t, err)
}
