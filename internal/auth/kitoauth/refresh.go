package kitoauth

import (
	"context"
	"log"
	"time"

	"github.com/kitflow/kitflow/internal/config"
	"github.com/kitflow/kitflow/internal/db/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// refreshSkew refreshes tokens this close to expiry rather than racing it.
const refreshSkew = 5 * time.Minute

// EnsureFreshToken refreshes the account's access token if it is expired or
// about to expire, persisting the rotated tokens. No-op when the token is
// still valid or there is no refresh token to use.
func EnsureFreshToken(ctx context.Context, cfg *config.Config, database *gorm.DB, account *models.Account) error {
	if !account.TokenExpired(refreshSkew) || account.RefreshToken == "" {
		return nil
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Kit.ClientID,
		ClientSecret: cfg.Kit.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.Kit.AuthorizeURL,
			TokenURL: cfg.Kit.TokenURL,
		},
	}

	source := oauthCfg.TokenSource(ctx, &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		Expiry:       account.TokenExpiresAt,
	})
	token, err := source.Token()
	if err != nil {
		return err
	}

	account.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		account.RefreshToken = token.RefreshToken
	}
	account.TokenExpiresAt = token.Expiry

	err = database.WithContext(ctx).Model(account).Updates(map[string]any{
		"access_token":     account.AccessToken,
		"refresh_token":    account.RefreshToken,
		"token_expires_at": account.TokenExpiresAt,
	}).Error
	if err != nil {
		return err
	}

	log.Printf("refreshed access token for account %s", account.ID)
	return nil
}
