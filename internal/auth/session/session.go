// Package session implements a signed-cookie session carrying the account
// UUID, plus middleware resolving it to an Account.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/kitflow/kitflow/internal/db/models"
	"gorm.io/gorm"
)

const cookieName = "kitflow_session"

type contextKey struct{}

// Store signs and verifies session cookies.
type Store struct {
	db     *gorm.DB
	secret []byte
}

// NewStore creates a session store signing with the given secret.
func NewStore(database *gorm.DB, secret string) *Store {
	return &Store{db: database, secret: []byte(secret)}
}

// Set writes the session cookie for an account.
func (s *Store) Set(w http.ResponseWriter, accountID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    accountID + "." + s.sign(accountID),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}

// Clear expires the session cookie.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// accountID extracts and verifies the account ID from the request cookie.
func (s *Store) accountID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	id, sig, found := strings.Cut(cookie.Value, ".")
	if !found || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(id))) {
		return "", false
	}
	return id, true
}

func (s *Store) sign(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// RequireAccount loads the session's account into the request context, or
// responds 401.
func (s *Store) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.accountID(r)
		if !ok {
			unauthorized(w)
			return
		}
		var account models.Account
		if err := s.db.Where("id = ?", id).First(&account).Error; err != nil {
			unauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), contextKey{}, &account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccountFrom returns the authenticated account stored by RequireAccount.
func AccountFrom(ctx context.Context) (*models.Account, bool) {
	account, ok := ctx.Value(contextKey{}).(*models.Account)
	return account, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "authentication required"}`))
}
