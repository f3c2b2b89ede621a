package kitoauth

import (
	"net/http"

	"github.com/kitflow/kitflow/internal/config"
)

// HandleLogin redirects the browser to Kit's authorization page.
func HandleLogin(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oauthCfg := OAuthConfig(cfg, r)
		url := oauthCfg.AuthCodeURL(GetStateToken())
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	}
}
