package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliawallet/vault-server-go/internal/repository"
	"github.com/heliawallet/vault-server-go/internal/service"
	"github.com/heliawallet/vault-server-go/internal/store"
	"github.com/heliawallet/vault-server-go/internal/validate"
)

func setupAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()

	st, err := store.NewHandle(filepath.Join(t.TempDir(), "vault.db")).Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	accountRepo := repository.NewAccountRepository(st)
	sessionRepo := repository.NewSessionRepository(st)
	snapshotRepo := repository.NewSnapshotRepository(st)

	signer := service.NewTokenSigner("test-secret", 15*time.Minute)
	auth := service.NewAuthService(accountRepo, sessionRepo, snapshotRepo, signer, 7*24*time.Hour, 90*24*time.Hour)

	_, err = auth.Register(context.Background(), validate.RegisterInput{
		Email:           "known@example.com",
		Password:        "Passw0rd!",
		ConfirmPassword: "Passw0rd!",
	})
	require.NoError(t, err)

	return NewAuthHandler(auth)
}

func TestRequestPasswordReset(t *testing.T) {
	handler := setupAuthHandler(t)
	routes := handler.PublicRoutes()

	request := func(email string) *httptest.ResponseRecorder {
		body := strings.NewReader(`{"email":"` + email + `"}`)
		req := httptest.NewRequest("POST", "/request-password-reset", body)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		return rec
	}

	t.Run("known and unknown emails get identical responses", func(t *testing.T) {
		known := request("known@example.com")
		unknown := request("nobody@example.com")

		assert.Equal(t, http.StatusOK, known.Code)
		assert.Equal(t, http.StatusOK, unknown.Code)
		assert.Equal(t, known.Body.String(), unknown.Body.String())
		assert.NotContains(t, known.Body.String(), "resetToken")
	})

	t.Run("missing email is a 400", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/request-password-reset", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
