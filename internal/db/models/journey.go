package models

import "time"

// Flow endpoint kinds.
const (
	FlowNodeTag      = "tag"
	FlowNodeSequence = "sequence"
)

// AnalysisRun statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// JourneyFlow is a derived co-occurrence edge between two tags, or a tag and
// a sequence. The full set for an account is rebuilt on every analysis run.
type JourneyFlow struct {
	ID              uint   `gorm:"primaryKey"`
	AccountID       string `gorm:"index;uniqueIndex:idx_journey_flows_key"`
	SourceType      string `gorm:"uniqueIndex:idx_journey_flows_key"`
	SourceID        string `gorm:"uniqueIndex:idx_journey_flows_key"` // kit id of the source node
	SourceName      string
	TargetType      string `gorm:"uniqueIndex:idx_journey_flows_key"`
	TargetID        string `gorm:"uniqueIndex:idx_journey_flows_key"`
	TargetName      string
	SubscriberCount int     `gorm:"default:0"`
	Percentage      float64 // of distinct source-tag holders, 2 decimals
	AnalyzedAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AnalysisRun is the ledger entry for one analysis invocation. The row is
// committed before the analysis transaction starts so failed runs stay
// observable.
type AnalysisRun struct {
	ID               uint   `gorm:"primaryKey"`
	AccountID        string `gorm:"index"`
	Status           string `gorm:"index"`
	TotalSubscribers int
	TotalTags        int
	TotalSequences   int
	TotalFlows       int
	ErrorMessage     string `gorm:"type:text"`
	StartedAt        time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
