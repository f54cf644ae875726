package handler

import (
	"net/http"
	"time"

	"github.com/heliawallet/vault-server-go/internal/httputil"
	"github.com/heliawallet/vault-server-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// formatAccount shapes the outward account view. The credential hash and any
// verification or reset token material never leave the store layer.
func formatAccount(account *model.Account) map[string]any {
	return map[string]any{
		"id":            account.ID,
		"email":         account.Email,
		"name":          account.Name,
		"walletAddress": account.WalletAddress,
		"role":          account.Role,
		"emailVerified": account.EmailVerified,
		"loginCount":    account.LoginCount,
		"lastLoginAt":   formatTime(account.LastLoginAt),
		"createdAt":     account.CreatedAt.Format(time.RFC3339),
	}
}
