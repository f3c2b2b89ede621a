package models

import "time"

// Account stores one connected Kit account with its OAuth tokens.
type Account struct {
	ID             string `gorm:"primaryKey"` // UUID
	KitAccountID   string `gorm:"uniqueIndex"`
	Email          string
	Name           string
	AccessToken    string `gorm:"type:text"`
	RefreshToken   string `gorm:"type:text"`
	TokenExpiresAt time.Time
	LastSyncAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Tags         []Tag         `gorm:"constraint:OnDelete:CASCADE"`
	Sequences    []Sequence    `gorm:"constraint:OnDelete:CASCADE"`
	Subscribers  []Subscriber  `gorm:"constraint:OnDelete:CASCADE"`
	JourneyFlows []JourneyFlow `gorm:"constraint:OnDelete:CASCADE"`
	AnalysisRuns []AnalysisRun `gorm:"constraint:OnDelete:CASCADE"`
}

// TokenExpired reports whether the access token is past (or within skew of)
// its expiry. A zero expiry means Kit never reported one.
func (a *Account) TokenExpired(skew time.Duration) bool {
	if a.TokenExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(skew).After(a.TokenExpiresAt)
}

// NeedsSync reports whether the account has never synced or last synced more
// than 24 hours ago.
func (a *Account) NeedsSync() bool {
	return a.LastSyncAt == nil || time.Since(*a.LastSyncAt) > 24*time.Hour
}
