package storage

import (
	"time"

	"ledgerlink/internal/domain/classifier"
)

// RunStatus is the lifecycle state of a reconciliation run.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// RunTotals holds the per-status counters of a finished run. Matched and
// Unmatched double as the legacy headline counters; partial matches and
// discrepancies are tracked in their own buckets, not folded into Unmatched.
type RunTotals struct {
	Processed     int `json:"processed"`
	Matched       int `json:"matched"`
	PartialMatch  int `json:"partial_match"`
	Discrepancies int `json:"discrepancies"`
	Unmatched     int `json:"unmatched"`
}

// RunLog is the persisted record of one reconciliation run.
type RunLog struct {
	ID          string     `json:"id"`
	WindowStart time.Time  `json:"window_start"`
	WindowEnd   time.Time  `json:"window_end"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      RunStatus  `json:"status"`
	Totals      RunTotals  `json:"totals"`
	ErrorDetail string     `json:"error_detail,omitempty"`
}

// Outcome is one reconciliation result: a primary record with whichever
// secondary matches were found, or an orphaned secondary record. Outcomes
// are immutable once written, except for the external review workflow
// moving UNMATCHED/DISCREPANCY through UNDER_REVIEW to RESOLVED.
type Outcome struct {
	ID           int64   `json:"id"`
	RunID        string  `json:"run_id"`
	PrimaryID    *string `json:"primary_id,omitempty"`
	SecondaryAID *string `json:"secondary_a_id,omitempty"`
	SecondaryBID *string `json:"secondary_b_id,omitempty"`

	MatchConfidence float64 `json:"match_confidence"`

	// AmountDifference is nil for orphaned secondary records: there is no
	// counterpart to diff against, so it is absent rather than zero.
	AmountDifference *float64 `json:"amount_difference,omitempty"`

	Status classifier.Status `json:"status"`
	Notes  string            `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Stats contains aggregate statistics across all runs.
type Stats struct {
	TotalRuns     int            `json:"total_runs"`
	CompletedRuns int            `json:"completed_runs"`
	FailedRuns    int            `json:"failed_runs"`
	TotalOutcomes int            `json:"total_outcomes"`
	StatusCounts  map[string]int `json:"status_counts"`
	LastRunAt     *time.Time     `json:"last_run_at,omitempty"`
}
