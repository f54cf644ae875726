package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/heliawallet/vault-server-go/internal/httputil"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/service"
	"github.com/heliawallet/vault-server-go/internal/util"
)

type contextKey string

const AccountContextKey contextKey = "account"

func GetAccount(ctx context.Context) *model.Account {
	if account, ok := ctx.Value(AccountContextKey).(*model.Account); ok {
		return account
	}
	return nil
}

// AuthMiddleware authenticates bearer tokens: the JWT signature and expiry
// are checked first, then the token is matched against a live session so that
// logout and password reset revoke access immediately.
type AuthMiddleware struct {
	auth   *service.AuthService
	signer *service.TokenSigner
}

func NewAuthMiddleware(auth *service.AuthService, signer *service.TokenSigner) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, signer: signer}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		claims, err := m.signer.Verify(token)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		if _, err := m.auth.VerifySession(r.Context(), claims.AccountID, util.HashToken(token)); err != nil {
			log.Warn().Str("accountId", claims.AccountID).Msg("auth middleware: token has no live session")
			httputil.WriteError(w, err)
			return
		}

		account, err := m.auth.GetAccount(r.Context(), claims.AccountID)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: account lookup failed")
			httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}
		if account == nil || !account.IsActive {
			httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		ctx := context.WithValue(r.Context(), AccountContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
