package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ledgerlink/internal/domain/classifier"
	"ledgerlink/internal/domain/record"
)

// Storage provides SQLite database access for platform records, run logs,
// and reconciliation outcomes. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// ReplaceRecords replaces one source's records inside the window with the
// given set, atomically.
func (s *Storage) ReplaceRecords(source record.SourceKind, start, end time.Time, records []record.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		`DELETE FROM platform_records WHERE source = ? AND occurred_at >= ? AND occurred_at < ?`,
		string(source), start.UTC(), end.UTC(),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear %s records: %w", source, err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO platform_records
		(source, source_id, counterparty, external_ref, display_ref, amount, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.Exec(
			string(r.Source), r.SourceID, r.Counterparty, r.ExternalRef,
			r.DisplayRef, r.Amount, r.OccurredAt.UTC(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert record %s/%s: %w", r.Source, r.SourceID, err)
		}
	}

	return tx.Commit()
}

// LoadRecords returns one source's records inside the window,
// reverse-chronological with source id as a stable secondary key.
func (s *Storage) LoadRecords(source record.SourceKind, start, end time.Time) ([]record.Record, error) {
	rows, err := s.db.Query(`
		SELECT source, source_id, counterparty, external_ref, display_ref, amount, occurred_at
		FROM platform_records
		WHERE source = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at DESC, source_id ASC
	`, string(source), start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []record.Record
	for rows.Next() {
		var r record.Record
		var src string
		if err := rows.Scan(&src, &r.SourceID, &r.Counterparty, &r.ExternalRef,
			&r.DisplayRef, &r.Amount, &r.OccurredAt); err != nil {
			return nil, err
		}
		r.Source = record.SourceKind(src)
		records = append(records, r)
	}

	return records, rows.Err()
}

// CreateRunLog records the start of a run
func (s *Storage) CreateRunLog(runID string, windowStart, windowEnd time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO run_logs (id, window_start, window_end, started_at, status)
		VALUES (?, ?, ?, ?, ?)
	`, runID, windowStart.UTC(), windowEnd.UTC(), time.Now().UTC(), string(RunRunning))
	return err
}

// FinalizeRunLog records the completion or failure of a run
func (s *Storage) FinalizeRunLog(runID string, status RunStatus, totals RunTotals, errorDetail string) error {
	res, err := s.db.Exec(`
		UPDATE run_logs
		SET completed_at = ?,
		    status = ?,
		    total_outcomes = ?,
		    matched_count = ?,
		    partial_count = ?,
		    discrepancy_count = ?,
		    unmatched_count = ?,
		    error_detail = ?
		WHERE id = ?
	`, time.Now().UTC(), string(status), totals.Processed, totals.Matched,
		totals.PartialMatch, totals.Discrepancies, totals.Unmatched, errorDetail, runID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("finalize run %s: %w", runID, ErrNotFound)
	}
	return nil
}

const runLogColumns = `id, window_start, window_end, started_at, completed_at, status,
	total_outcomes, matched_count, partial_count, discrepancy_count, unmatched_count, error_detail`

// GetRunLog retrieves a run log by ID
func (s *Storage) GetRunLog(runID string) (*RunLog, error) {
	row := s.db.QueryRow(`SELECT `+runLogColumns+` FROM run_logs WHERE id = ?`, runID)
	return scanRunLog(row)
}

// LatestRunLog returns the most recently started run
func (s *Storage) LatestRunLog() (*RunLog, error) {
	row := s.db.QueryRow(`SELECT ` + runLogColumns + ` FROM run_logs ORDER BY started_at DESC, id DESC LIMIT 1`)
	return scanRunLog(row)
}

// ListRunLogs returns recent runs, newest first
func (s *Storage) ListRunLogs(limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+runLogColumns+` FROM run_logs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []RunLog
	for rows.Next() {
		run, err := scanRunLogRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunLogRow(scanner rowScanner) (*RunLog, error) {
	run := &RunLog{}
	var status string
	var completedAt sql.NullTime
	err := scanner.Scan(
		&run.ID, &run.WindowStart, &run.WindowEnd, &run.StartedAt, &completedAt, &status,
		&run.Totals.Processed, &run.Totals.Matched, &run.Totals.PartialMatch,
		&run.Totals.Discrepancies, &run.Totals.Unmatched, &run.ErrorDetail,
	)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}

func scanRunLog(row *sql.Row) (*RunLog, error) {
	run, err := scanRunLogRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// SaveOutcomes persists a run's outcomes in one transaction
func (s *Storage) SaveOutcomes(runID string, outcomes []Outcome) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO outcomes
		(run_id, primary_id, secondary_a_id, secondary_b_id,
		 match_confidence, amount_difference, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, o := range outcomes {
		if _, err := stmt.Exec(
			runID, o.PrimaryID, o.SecondaryAID, o.SecondaryBID,
			o.MatchConfidence, o.AmountDifference, string(o.Status), o.Notes, now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert outcome: %w", err)
		}
	}

	return tx.Commit()
}

// ListOutcomes returns every outcome of a run in insertion order
func (s *Storage) ListOutcomes(runID string) ([]Outcome, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, primary_id, secondary_a_id, secondary_b_id,
		       match_confidence, amount_difference, status, notes, created_at
		FROM outcomes
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var status string
		if err := rows.Scan(
			&o.ID, &o.RunID, &o.PrimaryID, &o.SecondaryAID, &o.SecondaryBID,
			&o.MatchConfidence, &o.AmountDifference, &status, &o.Notes, &o.CreatedAt,
		); err != nil {
			return nil, err
		}
		o.Status = classifier.Status(status)
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

// GetStats returns aggregate statistics across all runs
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{
		StatusCounts: make(map[string]int),
	}

	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'COMPLETED' THEN 1 END),
			COUNT(CASE WHEN status = 'FAILED' THEN 1 END)
		FROM run_logs
	`).Scan(&stats.TotalRuns, &stats.CompletedRuns, &stats.FailedRuns)
	if err != nil {
		return nil, err
	}

	if latest, err := s.LatestRunLog(); err == nil {
		t := latest.StartedAt
		stats.LastRunAt = &t
	} else if err != ErrNotFound {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM outcomes GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.StatusCounts[status] = count
		stats.TotalOutcomes += count
	}

	return stats, rows.Err()
}
