// Package kitoauth implements the Kit OAuth flow: login redirect, callback,
// and access-token refresh.
package kitoauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"

	"github.com/kitflow/kitflow/internal/config"
	"golang.org/x/oauth2"
)

// OAuthConfig builds the oauth2 config for Kit from service config and the
// incoming request's host (the callback URL must match what Kit redirects to).
func OAuthConfig(cfg *config.Config, r *http.Request) *oauth2.Config {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	redirectURL := fmt.Sprintf("%s://%s/auth/kit/callback", scheme, r.Host)

	return &oauth2.Config{
		ClientID:     cfg.Kit.ClientID,
		ClientSecret: cfg.Kit.ClientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.Kit.AuthorizeURL,
			TokenURL: cfg.Kit.TokenURL,
		},
	}
}

var (
	stateMu    sync.Mutex
	stateToken string
)

// GetStateToken returns the CSRF state token, generating it on first use.
func GetStateToken() string {
	stateMu.Lock()
	defer stateMu.Unlock()
	if stateToken == "" {
		b := make([]byte, 16)
		rand.Read(b)
		stateToken = hex.EncodeToString(b)
	}
	return stateToken
}
