package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	h1, err := HashPassword("password")
	require.NoError(t, err)
	require.NotEmpty(t, h1)
	require.NotEqual(t, "password", h1)

	h2, err := HashPassword("password")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2, "each hash must carry a fresh salt")
}

func TestCheckPassword(t *testing.T) {
	h, err := HashPassword("password")
	require.NoError(t, err)

	require.True(t, CheckPassword(h, "password"))
	require.False(t, CheckPassword(h, "Password"))
	require.False(t, CheckPassword(h, ""))
	require.False(t, CheckPassword("not-a-hash", "password"))
}
