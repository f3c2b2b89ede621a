package handlers

import (
	"net/http"

	"github.com/kitflow/kitflow/internal/auth/kitoauth"
	"github.com/kitflow/kitflow/internal/auth/session"
	"github.com/kitflow/kitflow/internal/config"
	"github.com/kitflow/kitflow/internal/kit"
	"gorm.io/gorm"
)

// AccountHandler proxies Kit's live /account info for the session account.
func AccountHandler(cfg *config.Config, database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := session.AccountFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		if err := kitoauth.EnsureFreshToken(r.Context(), cfg, database, account); err != nil {
			writeError(w, err, "Failed to refresh access token")
			return
		}

		kitClient := kit.NewClient(cfg.Kit.BaseURL, account.AccessToken)
		info, err := kitClient.FetchAccount(r.Context())
		if err != nil {
			writeError(w, err, "Failed to fetch account info")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"account": info})
	}
}

// MeHandler reports the authenticated local account, or authenticated=false.
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := session.AccountFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"user": map[string]any{
				"id":             account.ID,
				"kit_account_id": account.KitAccountID,
				"email":          account.Email,
				"name":           account.Name,
				"last_sync_at":   account.LastSyncAt,
				"created_at":     account.CreatedAt,
				"updated_at":     account.UpdatedAt,
			},
		})
	}
}

// LogoutHandler drops the session cookie.
func LogoutHandler(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Clear(w)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}
}
