package kitoauth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kitflow/kitflow/internal/auth/session"
	"github.com/kitflow/kitflow/internal/config"
	"github.com/kitflow/kitflow/internal/db/models"
	"github.com/kitflow/kitflow/internal/kit"
	"gorm.io/gorm"
)

// HandleCallback exchanges the authorization code, resolves the Kit account,
// upserts it locally and opens a session.
func HandleCallback(cfg *config.Config, database *gorm.DB, sessions *session.Store) http.HandlerFunc {
	errorURL := cfg.FrontendURL + "/auth/error"

	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != GetStateToken() {
			http.Error(w, "invalid state token", http.StatusBadRequest)
			return
		}

		oauthCfg := OAuthConfig(cfg, r)
		token, err := oauthCfg.Exchange(r.Context(), r.URL.Query().Get("code"))
		if err != nil {
			log.Printf("oauth callback: token exchange failed: %v", err)
			http.Redirect(w, r, errorURL, http.StatusTemporaryRedirect)
			return
		}

		// Resolve the Kit account behind this token.
		kitClient := kit.NewClient(cfg.Kit.BaseURL, token.AccessToken)
		kitAccount, err := kitClient.FetchAccount(r.Context())
		if err != nil {
			log.Printf("oauth callback: fetch account failed: %v", err)
			http.Redirect(w, r, errorURL, http.StatusTemporaryRedirect)
			return
		}

		kitAccountID := strconv.FormatInt(kitAccount.ID, 10)

		// Preserve the local UUID when the account reconnects.
		var account models.Account
		err = database.Where("kit_account_id = ?", kitAccountID).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			account = models.Account{
				ID:           uuid.New().String(),
				KitAccountID: kitAccountID,
			}
		} else if err != nil {
			log.Printf("oauth callback: lookup account: %v", err)
			http.Redirect(w, r, errorURL, http.StatusTemporaryRedirect)
			return
		}

		account.Email = kitAccount.PrimaryEmailAddress
		account.Name = kitAccount.Name
		account.AccessToken = token.AccessToken
		account.RefreshToken = token.RefreshToken
		account.TokenExpiresAt = token.Expiry
		if token.Expiry.IsZero() {
			// Kit tokens last two hours when no expiry is reported.
			account.TokenExpiresAt = time.Now().Add(2 * time.Hour)
		}

		if err := database.Save(&account).Error; err != nil {
			log.Printf("oauth callback: save account: %v", err)
			http.Redirect(w, r, errorURL, http.StatusTemporaryRedirect)
			return
		}

		sessions.Set(w, account.ID)
		log.Printf("oauth successful for account %s", account.Email)
		http.Redirect(w, r, cfg.FrontendURL+"/dashboard", http.StatusTemporaryRedirect)
	}
}
