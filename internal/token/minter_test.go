package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintVerify_RoundTrip(t *testing.T) {
	m := NewMinter([]byte("secret"), "readtalk-log", time.Hour)

	raw, err := m.Mint("new@example.com", "u-42", "newbie")
	require.NoError(t, err)
	require.NotContains(t, raw, " ")

	claims, err := m.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", claims.Email)
	require.Equal(t, "u-42", claims.UserID)
	require.Equal(t, "newbie", claims.Username)
	require.Equal(t, "readtalk-log", claims.Issuer)
}

func TestVerify_Expired(t *testing.T) {
	m := NewMinter([]byte("secret"), "readtalk-log", -time.Minute)

	raw, err := m.Mint("a@example.com", "u-1", "a")
	require.NoError(t, err)

	_, err = m.Verify(raw)
	require.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	m := NewMinter([]byte("secret"), "readtalk-log", time.Hour)
	other := NewMinter([]byte("other"), "readtalk-log", time.Hour)

	raw, err := m.Mint("a@example.com", "u-1", "a")
	require.NoError(t, err)

	_, err = other.Verify(raw)
	require.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	m := NewMinter([]byte("secret"), "readtalk-log", time.Hour)

	_, err := m.Verify("not-a-token")
	require.Error(t, err)
}
