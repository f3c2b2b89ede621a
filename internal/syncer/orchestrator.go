// Package syncer mirrors a Kit account's tags, sequences and subscribers
// into the local database.
package syncer

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/kitflow/kitflow/internal/db/models"
	"github.com/kitflow/kitflow/internal/kit"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KitAPI is the slice of the Kit client the orchestrator needs.
type KitAPI interface {
	FetchTags(ctx context.Context) ([]kit.Tag, error)
	FetchSequences(ctx context.Context) ([]kit.Sequence, error)
	FetchSubscribers(ctx context.Context, page int) (*kit.SubscribersPage, error)
	FetchSubscriberTags(ctx context.Context, subscriberID int64) []kit.Tag
}

// Result summarizes one completed sync.
type Result struct {
	Subscribers int `json:"subscribers"`
	Tags        int `json:"tags"`
	Sequences   int `json:"sequences"`
}

// Orchestrator drives one sync run for one account. The whole run executes
// in a single transaction: a fatal error anywhere rolls back everything, so
// partial sync state is never visible.
type Orchestrator struct {
	db  *gorm.DB
	api KitAPI

	// PageInterval paces subscriber page fetches to stay inside Kit's
	// informal rate limits. Zero disables pacing (tests).
	PageInterval time.Duration
}

// New creates an Orchestrator with the default one-second page pacing.
func New(database *gorm.DB, api KitAPI) *Orchestrator {
	return &Orchestrator{
		db:           database,
		api:          api,
		PageInterval: time.Second,
	}
}

// Run brings the account's local mirror up to date and stamps last_sync_at.
// Re-running is safe: all writes are keyed upserts.
func (o *Orchestrator) Run(ctx context.Context, account *models.Account) (*Result, error) {
	result := &Result{}

	limit := rate.Inf
	if o.PageInterval > 0 {
		limit = rate.Every(o.PageInterval)
	}
	pager := rate.NewLimiter(limit, 1)

	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		log.Printf("syncing tags for account %s", account.ID)
		tags, err := o.api.FetchTags(ctx)
		if err != nil {
			return err
		}
		for _, t := range tags {
			if err := upsertTag(tx, account.ID, t); err != nil {
				return err
			}
		}
		result.Tags = len(tags)

		log.Printf("syncing sequences for account %s", account.ID)
		sequences, err := o.api.FetchSequences(ctx)
		if err != nil {
			return err
		}
		for _, s := range sequences {
			if err := upsertSequence(tx, account.ID, s); err != nil {
				return err
			}
		}
		result.Sequences = len(sequences)

		log.Printf("syncing subscribers for account %s (this may take a while)", account.ID)
		for page := 1; ; page++ {
			if err := pager.Wait(ctx); err != nil {
				return err
			}

			pageData, err := o.api.FetchSubscribers(ctx, page)
			if err != nil {
				return err
			}
			if len(pageData.Subscribers) == 0 {
				break
			}

			for _, sub := range pageData.Subscribers {
				if err := o.syncSubscriber(ctx, tx, account.ID, sub); err != nil {
					return err
				}
				result.Subscribers++
			}

			if !pageData.Pagination.HasNextPage {
				break
			}
			log.Printf("fetched %d subscribers so far", result.Subscribers)
		}

		now := time.Now()
		if err := tx.Model(account).Update("last_sync_at", now).Error; err != nil {
			return err
		}
		account.LastSyncAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("sync completed for account %s: %d subscribers, %d tags, %d sequences",
		account.ID, result.Subscribers, result.Tags, result.Sequences)
	return result, nil
}

// syncSubscriber upserts one subscriber and ensures edges for the tags it
// currently carries. Only tags already mirrored in this sync produce edges.
// Stale edges are not removed in this pass.
func (o *Orchestrator) syncSubscriber(ctx context.Context, tx *gorm.DB, accountID string, sub kit.Subscriber) error {
	row := models.Subscriber{
		AccountID:       accountID,
		KitSubscriberID: strconv.FormatInt(sub.ID, 10),
		Email:           sub.EmailAddress,
		FirstName:       sub.FirstName,
		State:           sub.State,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "kit_subscriber_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "state", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	if row.ID == 0 {
		// Conflict path: reload to get the existing primary key.
		if err := tx.Where("account_id = ? AND kit_subscriber_id = ?", accountID, row.KitSubscriberID).
			First(&row).Error; err != nil {
			return err
		}
	}

	for _, t := range o.api.FetchSubscriberTags(ctx, sub.ID) {
		var tag models.Tag
		err := tx.Where("account_id = ? AND kit_tag_id = ?", accountID, strconv.FormatInt(t.ID, 10)).
			First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		edge := models.SubscriberTag{
			SubscriberID: row.ID,
			TagID:        tag.ID,
			TaggedAt:     time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
			return err
		}
	}
	return nil
}

func upsertTag(tx *gorm.DB, accountID string, t kit.Tag) error {
	row := models.Tag{
		AccountID:       accountID,
		KitTagID:        strconv.FormatInt(t.ID, 10),
		Name:            t.Name,
		SubscriberCount: t.TotalSubscriptions,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "kit_tag_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "subscriber_count", "updated_at"}),
	}).Create(&row).Error
}

func upsertSequence(tx *gorm.DB, accountID string, s kit.Sequence) error {
	row := models.Sequence{
		AccountID:       accountID,
		KitSequenceID:   strconv.FormatInt(s.ID, 10),
		Name:            s.Name,
		SubscriberCount: s.TotalSubscriptions,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "kit_sequence_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "subscriber_count", "updated_at"}),
	}).Create(&row).Error
}
