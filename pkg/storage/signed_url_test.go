package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("user.1", "requirements/user-1/moa/1700000000_ab12.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	grant, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "user.1", grant.Owner)
	require.Equal(t, "requirements/user-1/moa/1700000000_ab12.pdf", grant.ObjectPath)
	require.True(t, expiresAt.Equal(grant.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.now = func() time.Time { return now }

	token, _, err := signer.Generate("user-1", "exports/timelogs.xlsx")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrExpiredToken)

	grant, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "user-1", grant.Owner)
	require.Equal(t, "exports/timelogs.xlsx", grant.ObjectPath)
}

func TestSignedURLSignerTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("user-1", "exports/a.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	other, _, err := signer.Generate("user-1", "exports/b.csv")
	require.NoError(t, err)
	parts[1] = strings.Split(other, ".")[1]

	_, err = signer.Parse(strings.Join(parts, "."), false)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse("garbage", false)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignedURLSignerRequiresSecret(t *testing.T) {
	_, _, err := NewSignedURLSigner("", time.Hour).Generate("user-1", "exports/a.csv")
	require.Error(t, err)
}
