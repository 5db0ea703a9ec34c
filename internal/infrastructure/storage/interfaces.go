package storage

import (
	"errors"
	"time"

	"ledgerlink/internal/domain/record"
)

// ErrNotFound is returned when a run log or outcome does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the complete storage interface. The split into
// sub-interfaces keeps collaborators narrow and makes testing with the
// in-memory mock straightforward.
type Repository interface {
	RecordRepository
	RunRepository
	OutcomeRepository
	Close() error
}

// RecordRepository persists normalized platform records per source.
type RecordRepository interface {
	// ReplaceRecords replaces the persisted records of one source inside the
	// window with the given set (the latest successful sync wins).
	ReplaceRecords(source record.SourceKind, start, end time.Time, records []record.Record) error

	// LoadRecords returns the records of one source inside the window in
	// reverse-chronological order. The ordering is part of the contract: it
	// determines claim tie-breaks during matching.
	LoadRecords(source record.SourceKind, start, end time.Time) ([]record.Record, error)
}

// RunRepository tracks reconciliation run logs.
type RunRepository interface {
	// CreateRunLog records the start of a run with status RUNNING.
	CreateRunLog(runID string, windowStart, windowEnd time.Time) error

	// FinalizeRunLog marks a run COMPLETED with its totals, or FAILED with
	// the captured error detail.
	FinalizeRunLog(runID string, status RunStatus, totals RunTotals, errorDetail string) error

	// GetRunLog retrieves a run log by ID.
	GetRunLog(runID string) (*RunLog, error)

	// LatestRunLog returns the most recently started run, if any.
	LatestRunLog() (*RunLog, error)

	// ListRunLogs returns recent runs, newest first.
	ListRunLogs(limit int) ([]RunLog, error)
}

// OutcomeRepository persists reconciliation outcomes.
type OutcomeRepository interface {
	// SaveOutcomes persists a completed run's outcomes in one batch.
	SaveOutcomes(runID string, outcomes []Outcome) error

	// ListOutcomes returns every outcome of a run.
	ListOutcomes(runID string) ([]Outcome, error)

	// GetStats returns aggregate statistics across runs.
	GetStats() (*Stats, error)
}
