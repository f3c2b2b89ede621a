package handlers

import (
	"log"
	"net/http"

	"github.com/kitflow/kitflow/internal/auth/kitoauth"
	"github.com/kitflow/kitflow/internal/auth/session"
	"github.com/kitflow/kitflow/internal/config"
	"github.com/kitflow/kitflow/internal/kit"
	"github.com/kitflow/kitflow/internal/runlock"
	"github.com/kitflow/kitflow/internal/syncer"
	"gorm.io/gorm"
)

// SyncHandler runs a full sync of the account's Kit data.
func SyncHandler(cfg *config.Config, database *gorm.DB, locker *runlock.Locker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := session.AccountFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		release, err := locker.Acquire(account.ID)
		if err != nil {
			writeError(w, err, "Sync already in progress")
			return
		}
		defer release()

		if err := kitoauth.EnsureFreshToken(r.Context(), cfg, database, account); err != nil {
			writeError(w, err, "Failed to refresh access token")
			return
		}

		log.Printf("starting sync for account %s", account.Email)
		orchestrator := syncer.New(database, kit.NewClient(cfg.Kit.BaseURL, account.AccessToken))
		orchestrator.PageInterval = cfg.SyncPageInterval()

		result, err := orchestrator.Run(r.Context(), account)
		if err != nil {
			writeError(w, err, "Failed to sync data")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Sync completed",
			"subscribers": result.Subscribers,
			"tags":        result.Tags,
			"sequences":   result.Sequences,
		})
	}
}

// SyncStatusHandler reports when the account last synced.
func SyncStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := session.AccountFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"last_sync_at": account.LastSyncAt,
			"needs_sync":   account.NeedsSync(),
		})
	}
}
