package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/kitflow/kitflow/internal/db/models"
	"github.com/kitflow/kitflow/internal/kit"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.AutoMigrate(
		&models.Account{}, &models.Tag{}, &models.Sequence{}, &models.Subscriber{},
		&models.SubscriberTag{}, &models.SubscriberSequence{},
		&models.JourneyFlow{}, &models.AnalysisRun{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func newTestAccount(t *testing.T, database *gorm.DB) *models.Account {
	t.Helper()
	account := &models.Account{ID: "acct-1", KitAccountID: "1000", Email: "owner@acme.test", AccessToken: "tok"}
	if err := database.Create(account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

// fakeKit is a canned Kit API for orchestrator tests.
type fakeKit struct {
	tags      []kit.Tag
	sequences []kit.Sequence
	pages     [][]kit.Subscriber

	subscriberTags map[int64][]kit.Tag

	// pageErr, when set, fails the fetch of that page number.
	pageErrOn int
	pageErr   error
}

func (f *fakeKit) FetchTags(context.Context) ([]kit.Tag, error)           { return f.tags, nil }
func (f *fakeKit) FetchSequences(context.Context) ([]kit.Sequence, error) { return f.sequences, nil }

func (f *fakeKit) FetchSubscribers(_ context.Context, page int) (*kit.SubscribersPage, error) {
	if f.pageErrOn != 0 && page == f.pageErrOn {
		return nil, f.pageErr
	}
	out := &kit.SubscribersPage{}
	if page <= len(f.pages) {
		out.Subscribers = f.pages[page-1]
		out.Pagination.HasNextPage = page < len(f.pages)
	}
	return out, nil
}

func (f *fakeKit) FetchSubscriberTags(_ context.Context, subscriberID int64) []kit.Tag {
	return f.subscriberTags[subscriberID]
}

func newFakeKit() *fakeKit {
	return &fakeKit{
		tags: []kit.Tag{
			{ID: 10, Name: "Newsletter", TotalSubscriptions: 2},
			{ID: 20, Name: "Webinar", TotalSubscriptions: 1},
		},
		sequences: []kit.Sequence{
			{ID: 100, Name: "Welcome", TotalSubscriptions: 2},
		},
		pages: [][]kit.Subscriber{
			{
				{ID: 1, EmailAddress: "a@example.com", FirstName: "Ann", State: "active"},
				{ID: 2, EmailAddress: "b@example.com", FirstName: "Bob", State: "active"},
			},
			{
				{ID: 3, EmailAddress: "c@example.com", FirstName: "Cyd", State: "inactive"},
			},
		},
		subscriberTags: map[int64][]kit.Tag{
			1: {{ID: 10, Name: "Newsletter"}, {ID: 20, Name: "Webinar"}},
			2: {{ID: 10, Name: "Newsletter"}},
		},
	}
}

func runSync(t *testing.T, database *gorm.DB, account *models.Account, api KitAPI) *Result {
	t.Helper()
	o := New(database, api)
	o.PageInterval = 0
	result, err := o.Run(context.Background(), account)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	return result
}

func count(t *testing.T, database *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := database.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestSyncMirrorsAccountData(t *testing.T) {
	database := newTestDB(t)
	account := newTestAccount(t, database)

	result := runSync(t, database, account, newFakeKit())

	if result.Subscribers != 3 || result.Tags != 2 || result.Sequences != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if n := count(t, database, &models.Subscriber{}); n != 3 {
		t.Errorf("subscribers = %d, want 3", n)
	}
	if n := count(t, database, &models.SubscriberTag{}); n != 3 {
		t.Errorf("subscriber tag edges = %d, want 3", n)
	}
	if account.LastSyncAt == nil {
		t.Error("last_sync_at not stamped")
	}

	var tag models.Tag
	if err := database.Where("account_id = ? AND kit_tag_id = ?", account.ID, "10").First(&tag).Error; err != nil {
		t.Fatalf("tag lookup: %v", err)
	}
	if tag.Name != "Newsletter" || tag.SubscriberCount != 2 {
		t.Errorf("unexpected tag: %+v", tag)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	database := newTestDB(t)
	account := newTestAccount(t, database)
	api := newFakeKit()

	first := runSync(t, database, account, api)
	second := runSync(t, database, account, api)

	if *first != *second {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
	if n := count(t, database, &models.Subscriber{}); n != 3 {
		t.Errorf("subscribers after rerun = %d, want 3", n)
	}
	if n := count(t, database, &models.Tag{}); n != 2 {
		t.Errorf("tags after rerun = %d, want 2", n)
	}
	if n := count(t, database, &models.SubscriberTag{}); n != 3 {
		t.Errorf("edges after rerun = %d, want 3", n)
	}
}

func TestSyncOverwritesChangedFields(t *testing.T) {
	database := newTestDB(t)
	account := newTestAccount(t, database)
	api := newFakeKit()

	runSync(t, database, account, api)

	api.tags[0].Name = "Newsletter v2"
	api.pages[0][0].State = "inactive"
	runSync(t, database, account, api)

	var tag models.Tag
	database.Where("kit_tag_id = ?", "10").First(&tag)
	if tag.Name != "Newsletter v2" {
		t.Errorf("tag name not overwritten: %q", tag.Name)
	}
	var sub models.Subscriber
	database.Where("kit_subscriber_id = ?", "1").First(&sub)
	if sub.State != "inactive" {
		t.Errorf("subscriber state not overwritten: %q", sub.State)
	}
}

func TestSyncSubscriberTagFailureIsNonFatal(t *testing.T) {
	database := newTestDB(t)
	account := newTestAccount(t, database)
	api := newFakeKit()
	// Subscriber 1's tag fetch "fails": the client contract downgrades that
	// to an empty list.
	delete(api.subscriberTags, 1)

	result := runSync(t, database, account, api)
	if result.Subscribers != 3 {
		t.Fatalf("sync did not cover all subscribers: %+v", result)
	}

	var failing models.Subscriber
	database.Where("kit_subscriber_id = ?", "1").First(&failing)
	var edges int64
	database.Model(&models.SubscriberTag{}).Where("subscriber_id = ?", failing.ID).Count(&edges)
	if edges != 0 {
		t.Errorf("failing subscriber has %d edges, want 0", edges)
	}

	var other models.Subscriber
	database.Where("kit_subscriber_id = ?", "2").First(&other)
	database.Model(&models.SubscriberTag{}).Where("subscriber_id = ?", other.ID).Count(&edges)
	if edges != 1 {
		t.Errorf("other subscriber has %d edges, want 1", edges)
	}
}

func TestSyncIgnoresUnknownTags(t *testing.T) {
	database := newTestDB(t)
	account := newTestAccount(t, database)
	api := newFakeKit()
	// Tag 99 was never fetched in the tag pass, so no edge may be created.
	api.subscriberTags[2] = append(api.subscriberTags[2], kit.Tag{ID: 99, Name: "Ghost"})

	runSync(t, database, account, api)

	if n := count(t, database, &models.SubscriberTag{}); n != 3 {
		t.Errorf("edges = %d, want 3 (ghost tag must not create one)", n)
	}
}

func TestSyncRollsBackOnFatalError(t *testing.T) {
	database := newTestDB(t)
	account := newTestAccount(t, database)
	api := newFakeKit()
	api.pageErrOn = 2
	api.pageErr = kit.ErrRateLimited

	o := New(database, api)
	o.PageInterval = 0
	_, err := o.Run(context.Background(), account)
	if !errors.Is(err, kit.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}

	// Nothing from the failed run may be visible, page 1 included.
	if n := count(t, database, &models.Tag{}); n != 0 {
		t.Errorf("tags = %d, want 0 after rollback", n)
	}
	if n := count(t, database, &models.Subscriber{}); n != 0 {
		t.Errorf("subscribers = %d, want 0 after rollback", n)
	}

	var fresh models.Account
	database.First(&fresh, "id = ?", account.ID)
	if fresh.LastSyncAt != nil {
		t.Error("last_sync_at stamped despite rollback")
	}
}
