package models

import "time"

// Tag mirrors a Kit tag. SubscriberCount is the count reported by Kit and is
// advisory only; flow percentages are computed from local membership.
type Tag struct {
	ID              uint   `gorm:"primaryKey"`
	AccountID       string `gorm:"index;uniqueIndex:idx_tags_account_kit"`
	KitTagID        string `gorm:"index;uniqueIndex:idx_tags_account_kit"`
	Name            string
	SubscriberCount int `gorm:"default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Sequence mirrors a Kit sequence (an ordered email series).
type Sequence struct {
	ID              uint   `gorm:"primaryKey"`
	AccountID       string `gorm:"index;uniqueIndex:idx_sequences_account_kit"`
	KitSequenceID   string `gorm:"index;uniqueIndex:idx_sequences_account_kit"`
	Name            string
	SubscriberCount int `gorm:"default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
