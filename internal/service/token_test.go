package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
)

func TestTokenSigner(t *testing.T) {
	account := &model.Account{
		ID:    "acct-1",
		Email: "a@x.com",
		Role:  model.RoleUser,
	}

	t.Run("issue and verify round trip", func(t *testing.T) {
		signer := NewTokenSigner("test-secret", 15*time.Minute)
		token, err := signer.Issue(account)
		require.NoError(t, err)

		claims, err := signer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "acct-1", claims.AccountID)
		assert.Equal(t, "a@x.com", claims.Email)
		assert.Equal(t, model.RoleUser, claims.Role)
	})

	t.Run("expired token", func(t *testing.T) {
		signer := NewTokenSigner("test-secret", -time.Minute)
		token, err := signer.Issue(account)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, apperrors.GetCode(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewTokenSigner("secret-a", 15*time.Minute).Issue(account)
		require.NoError(t, err)

		_, err = NewTokenSigner("secret-b", 15*time.Minute).Verify(token)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))
	})

	t.Run("tampered payload", func(t *testing.T) {
		signer := NewTokenSigner("test-secret", 15*time.Minute)
		token, err := signer.Issue(account)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]

		_, err = signer.Verify(tampered)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))
	})

	t.Run("garbage input", func(t *testing.T) {
		signer := NewTokenSigner("test-secret", 15*time.Minute)
		_, err := signer.Verify("not-a-token")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))
	})
}
