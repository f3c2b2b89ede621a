package handlers

import (
	"net/http"
	"time"

	"github.com/kitflow/kitflow/internal/auth/session"
	"github.com/kitflow/kitflow/internal/db/models"
	"gorm.io/gorm"
)

// MetricsHandler returns counts for the dashboard header.
func MetricsHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := session.AccountFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		var tags, sequences, subscribers, flows int64
		for _, c := range []struct {
			model any
			dst   *int64
		}{
			{&models.Tag{}, &tags},
			{&models.Sequence{}, &sequences},
			{&models.Subscriber{}, &subscribers},
			{&models.JourneyFlow{}, &flows},
		} {
			if err := database.Model(c.model).Where("account_id = ?", account.ID).Count(c.dst).Error; err != nil {
				writeError(w, err, "Failed to fetch dashboard metrics")
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]int64{
			"tags":        tags,
			"sequences":   sequences,
			"subscribers": subscribers,
			"flows":       flows,
		})
	}
}

// HealthHandler confirms the session is live.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := session.AccountFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"user":      account.Email,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
