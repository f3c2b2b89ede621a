// Package analysis derives journey flow edges from subscriber membership.
//
// A flow edge is a co-occurrence: "N subscribers carry both tag A and tag B"
// or "N subscribers carry tag A and sit in sequence X", scored as a
// percentage of everyone holding the source tag. The full edge set for an
// account is rebuilt from scratch on every run.
package analysis

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"github.com/kitflow/kitflow/internal/db/models"
	"gorm.io/gorm"
)

// Result summarizes one completed analysis run.
type Result struct {
	TotalFlows       int `json:"total_flows"`
	TotalSubscribers int `json:"total_subscribers"`
	TotalTags        int `json:"total_tags"`
	TotalSequences   int `json:"total_sequences"`
}

// Engine computes journey flows for one account at a time.
type Engine struct {
	db *gorm.DB
}

// New creates an Engine.
func New(database *gorm.DB) *Engine {
	return &Engine{db: database}
}

// node is one endpoint of a flow, identified by its Kit id.
type node struct {
	kitID string
	name  string
}

// flowKey identifies one aggregated flow edge.
type flowKey struct {
	sourceType string
	sourceID   string
	targetType string
	targetID   string
}

// flowAgg accumulates one edge's count and display names.
type flowAgg struct {
	count      int
	sourceName string
	targetName string
}

// membership is one active subscriber's current tags and sequences. Tags are
// kept in kit-id order so tag pair direction is canonical and reruns are
// deterministic.
type membership struct {
	tags      []node
	sequences []node
}

// Analyze rebuilds the account's JourneyFlow set and records the run in the
// ledger.
//
// The ledger row is created in its own committed transaction before any work
// starts, and flipped to failed in a separate write on error, so operators
// can see failed runs. Everything else — the flow delete, the rebuild, and
// the completed status — commits atomically.
func (e *Engine) Analyze(ctx context.Context, accountID string) (*Result, error) {
	run := models.AnalysisRun{
		AccountID: accountID,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := e.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}

	log.Printf("starting journey analysis for account %s, run %d", accountID, run.ID)

	result := &Result{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return e.analyze(tx, accountID, &run, result)
	})
	if err != nil {
		now := time.Now()
		e.db.Model(&models.AnalysisRun{}).Where("id = ?", run.ID).Updates(map[string]any{
			"status":        models.RunStatusFailed,
			"error_message": err.Error(),
			"completed_at":  &now,
		})
		return nil, err
	}

	log.Printf("journey analysis completed for account %s: %d flows identified",
		accountID, result.TotalFlows)
	return result, nil
}

func (e *Engine) analyze(tx *gorm.DB, accountID string, run *models.AnalysisRun, result *Result) error {
	if err := tx.Where("account_id = ?", accountID).Delete(&models.JourneyFlow{}).Error; err != nil {
		return err
	}

	subscribers, err := loadMembership(tx, accountID)
	if err != nil {
		return err
	}

	flows := make(map[flowKey]*flowAgg)
	for _, m := range subscribers {
		countTagPairs(flows, m.tags)
		countTagToSequence(flows, m.tags, m.sequences)
	}

	analyzedAt := time.Now()
	for _, key := range sortedKeys(flows) {
		agg := flows[key]

		holders, err := sourceTagHolders(tx, accountID, key.sourceID)
		if err != nil {
			return err
		}

		row := models.JourneyFlow{
			AccountID:       accountID,
			SourceType:      key.sourceType,
			SourceID:        key.sourceID,
			SourceName:      agg.sourceName,
			TargetType:      key.targetType,
			TargetID:        key.targetID,
			TargetName:      agg.targetName,
			SubscriberCount: agg.count,
			Percentage:      percentage(agg.count, holders),
			AnalyzedAt:      analyzedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		result.TotalFlows++
	}

	if err := accountTotals(tx, accountID, result); err != nil {
		return err
	}

	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.CompletedAt = &now
	run.TotalSubscribers = result.TotalSubscribers
	run.TotalTags = result.TotalTags
	run.TotalSequences = result.TotalSequences
	run.TotalFlows = result.TotalFlows
	return tx.Save(run).Error
}

// countTagPairs counts every unordered pair of distinct tags the subscriber
// carries. Tags arrive sorted by kit id, so the stored direction is always
// lower id → higher id.
func countTagPairs(flows map[flowKey]*flowAgg, tags []node) {
	if len(tags) < 2 {
		return
	}
	for i := 0; i < len(tags)-1; i++ {
		for j := i + 1; j < len(tags); j++ {
			key := flowKey{
				sourceType: models.FlowNodeTag,
				sourceID:   tags[i].kitID,
				targetType: models.FlowNodeTag,
				targetID:   tags[j].kitID,
			}
			bump(flows, key, tags[i].name, tags[j].name)
		}
	}
}

// countTagToSequence counts every (tag, sequence) combination the subscriber
// carries. Sequence enrollment state is not filtered: any held sequence
// counts.
func countTagToSequence(flows map[flowKey]*flowAgg, tags, sequences []node) {
	for _, t := range tags {
		for _, s := range sequences {
			key := flowKey{
				sourceType: models.FlowNodeTag,
				sourceID:   t.kitID,
				targetType: models.FlowNodeSequence,
				targetID:   s.kitID,
			}
			bump(flows, key, t.name, s.name)
		}
	}
}

func bump(flows map[flowKey]*flowAgg, key flowKey, sourceName, targetName string) {
	agg, ok := flows[key]
	if !ok {
		agg = &flowAgg{sourceName: sourceName, targetName: targetName}
		flows[key] = agg
	}
	agg.count++
}

// loadMembership joins the membership tables into a per-subscriber map,
// restricted to active subscribers.
func loadMembership(tx *gorm.DB, accountID string) (map[uint]*membership, error) {
	subscribers := make(map[uint]*membership)

	type tagRow struct {
		SubscriberID uint
		KitTagID     string
		Name         string
	}
	var tagRows []tagRow
	err := tx.Table("subscriber_tags").
		Select("subscriber_tags.subscriber_id, tags.kit_tag_id, tags.name").
		Joins("JOIN tags ON tags.id = subscriber_tags.tag_id").
		Joins("JOIN subscribers ON subscribers.id = subscriber_tags.subscriber_id").
		Where("subscribers.account_id = ? AND subscribers.state = ?", accountID, "active").
		Order("subscriber_tags.subscriber_id, tags.kit_tag_id").
		Scan(&tagRows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range tagRows {
		m := subscribers[r.SubscriberID]
		if m == nil {
			m = &membership{}
			subscribers[r.SubscriberID] = m
		}
		m.tags = append(m.tags, node{kitID: r.KitTagID, name: r.Name})
	}

	type seqRow struct {
		SubscriberID  uint
		KitSequenceID string
		Name          string
	}
	var seqRows []seqRow
	err = tx.Table("subscriber_sequences").
		Select("subscriber_sequences.subscriber_id, sequences.kit_sequence_id, sequences.name").
		Joins("JOIN sequences ON sequences.id = subscriber_sequences.sequence_id").
		Joins("JOIN subscribers ON subscribers.id = subscriber_sequences.subscriber_id").
		Where("subscribers.account_id = ? AND subscribers.state = ?", accountID, "active").
		Order("subscriber_sequences.subscriber_id, sequences.kit_sequence_id").
		Scan(&seqRows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range seqRows {
		m := subscribers[r.SubscriberID]
		if m == nil {
			m = &membership{}
			subscribers[r.SubscriberID] = m
		}
		m.sequences = append(m.sequences, node{kitID: r.KitSequenceID, name: r.Name})
	}

	return subscribers, nil
}

// percentage scores a flow against the distinct holders of its source tag,
// rounded to two decimals. A zero denominator clamps to 1: degenerate data
// must never divide by zero.
func percentage(count int, holders int64) float64 {
	if holders == 0 {
		holders = 1
	}
	return math.Round(float64(count)/float64(holders)*100*100) / 100
}

// sourceTagHolders counts the distinct subscribers carrying the source tag.
// Deliberately not filtered to active subscribers; the original product
// defined percentages against all holders and changing that would shift
// every number.
func sourceTagHolders(tx *gorm.DB, accountID, kitTagID string) (int64, error) {
	var holders int64
	err := tx.Table("subscriber_tags").
		Joins("JOIN tags ON tags.id = subscriber_tags.tag_id").
		Where("tags.account_id = ? AND tags.kit_tag_id = ?", accountID, kitTagID).
		Distinct("subscriber_tags.subscriber_id").
		Count(&holders).Error
	return holders, err
}

func accountTotals(tx *gorm.DB, accountID string, result *Result) error {
	var subscribers, tags, sequences int64
	if err := tx.Model(&models.Subscriber{}).Where("account_id = ?", accountID).Count(&subscribers).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Tag{}).Where("account_id = ?", accountID).Count(&tags).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Sequence{}).Where("account_id = ?", accountID).Count(&sequences).Error; err != nil {
		return err
	}
	result.TotalSubscribers = int(subscribers)
	result.TotalTags = int(tags)
	result.TotalSequences = int(sequences)
	return nil
}

// sortedKeys orders flow keys so rows insert deterministically.
func sortedKeys(flows map[flowKey]*flowAgg) []flowKey {
	keys := make([]flowKey, 0, len(flows))
	for k := range flows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.sourceType != b.sourceType {
			return a.sourceType < b.sourceType
		}
		if a.sourceID != b.sourceID {
			return a.sourceID < b.sourceID
		}
		if a.targetType != b.targetType {
			return a.targetType < b.targetType
		}
		return a.targetID < b.targetID
	})
	return keys
}
