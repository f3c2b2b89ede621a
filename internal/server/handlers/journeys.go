package handlers

import (
	"log"
	"net/http"

	"github.com/kitflow/kitflow/internal/analysis"
	"github.com/kitflow/kitflow/internal/auth/session"
	"github.com/kitflow/kitflow/internal/db/models"
	"github.com/kitflow/kitflow/internal/runlock"
	"gorm.io/gorm"
)

// AnalyzeHandler recomputes the account's journey flows.
func AnalyzeHandler(database *gorm.DB, locker *runlock.Locker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := session.AccountFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		release, err := locker.Acquire(account.ID)
		if err != nil {
			writeError(w, err, "Analysis already in progress")
			return
		}
		defer release()

		log.Printf("starting journey analysis for account %s", account.Email)
		engine := analysis.New(database)
		result, err := engine.Analyze(r.Context(), account.ID)
		if err != nil {
			writeError(w, err, "Failed to analyze journeys")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":           "Analysis completed",
			"total_flows":       result.TotalFlows,
			"total_subscribers": result.TotalSubscribers,
			"total_tags":        result.TotalTags,
			"total_sequences":   result.TotalSequences,
		})
	}
}

// flowJSON is the wire shape of one journey flow edge.
type flowJSON struct {
	SourceType      string  `json:"source_type"`
	SourceID        string  `json:"source_id"`
	SourceName      string  `json:"source_name"`
	TargetType      string  `json:"target_type"`
	TargetID        string  `json:"target_id"`
	TargetName      string  `json:"target_name"`
	SubscriberCount int     `json:"subscriber_count"`
	Percentage      float64 `json:"percentage"`
}

// FlowsHandler lists the account's journey flows, biggest first.
func FlowsHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := session.AccountFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		var flows []models.JourneyFlow
		err := database.Where("account_id = ?", account.ID).
			Order("subscriber_count DESC").
			Find(&flows).Error
		if err != nil {
			writeError(w, err, "Failed to fetch journey flows")
			return
		}

		out := make([]flowJSON, 0, len(flows))
		for _, f := range flows {
			out = append(out, flowJSON{
				SourceType:      f.SourceType,
				SourceID:        f.SourceID,
				SourceName:      f.SourceName,
				TargetType:      f.TargetType,
				TargetID:        f.TargetID,
				TargetName:      f.TargetName,
				SubscriberCount: f.SubscriberCount,
				Percentage:      f.Percentage,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
