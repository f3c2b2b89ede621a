package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kitflow/kitflow/internal/kit"
	"github.com/kitflow/kitflow/internal/runlock"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps core error kinds to HTTP status codes once, here. Bodies
// stay generic; the core never formats user-facing text.
func writeError(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	var remoteErr *kit.RemoteError
	switch {
	case errors.Is(err, kit.ErrAuthExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, kit.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, runlock.ErrRunActive):
		status = http.StatusConflict
	case errors.As(err, &remoteErr):
		status = http.StatusBadGateway
	}
	log.Printf("%s: %v", message, err)
	writeJSON(w, status, map[string]string{"error": message})
}
