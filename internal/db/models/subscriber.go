package models

import "time"

// Subscriber mirrors a Kit subscriber. State is passed through from Kit;
// only "active" subscribers participate in flow analysis.
type Subscriber struct {
	ID              uint   `gorm:"primaryKey"`
	AccountID       string `gorm:"index;uniqueIndex:idx_subscribers_account_kit"`
	KitSubscriberID string `gorm:"index;uniqueIndex:idx_subscribers_account_kit"`
	Email           string
	FirstName       string
	State           string `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	SubscriberTags      []SubscriberTag      `gorm:"constraint:OnDelete:CASCADE"`
	SubscriberSequences []SubscriberSequence `gorm:"constraint:OnDelete:CASCADE"`
}

// SubscriberTag records that a subscriber currently carries a tag.
type SubscriberTag struct {
	ID           uint `gorm:"primaryKey"`
	SubscriberID uint `gorm:"uniqueIndex:idx_subscriber_tags_edge"`
	TagID        uint `gorm:"uniqueIndex:idx_subscriber_tags_edge"`
	TaggedAt     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SubscriberSequence records a subscriber's enrollment in a sequence.
type SubscriberSequence struct {
	ID           uint `gorm:"primaryKey"`
	SubscriberID uint `gorm:"uniqueIndex:idx_subscriber_sequences_edge"`
	SequenceID   uint `gorm:"uniqueIndex:idx_subscriber_sequences_edge"`
	State        string
	EnrolledAt   *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
