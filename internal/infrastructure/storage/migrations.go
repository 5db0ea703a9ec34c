package storage

import (
	"database/sql"
	"fmt"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "platform_records",
		Up:      migration001PlatformRecords,
	},
	{
		Version: 2,
		Name:    "run_logs",
		Up:      migration002RunLogs,
	},
	{
		Version: 3,
		Name:    "outcomes",
		Up:      migration003Outcomes,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			migration.Version, migration.Name,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func migration001PlatformRecords(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE platform_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		source_id TEXT NOT NULL,
		counterparty TEXT NOT NULL DEFAULT '',
		external_ref TEXT NOT NULL DEFAULT '',
		display_ref TEXT NOT NULL DEFAULT '',
		amount REAL NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		synced_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source, source_id)
	)`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
	CREATE INDEX idx_platform_records_source_time
	ON platform_records(source, occurred_at)`)
	return err
}

func migration002RunLogs(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE run_logs (
		id TEXT PRIMARY KEY,
		window_start TIMESTAMP NOT NULL,
		window_end TIMESTAMP NOT NULL,
		started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMP,
		status TEXT NOT NULL DEFAULT 'RUNNING',
		total_outcomes INTEGER NOT NULL DEFAULT 0,
		matched_count INTEGER NOT NULL DEFAULT 0,
		partial_count INTEGER NOT NULL DEFAULT 0,
		discrepancy_count INTEGER NOT NULL DEFAULT 0,
		unmatched_count INTEGER NOT NULL DEFAULT 0,
		error_detail TEXT NOT NULL DEFAULT ''
	)`)
	return err
}

func migration003Outcomes(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES run_logs(id),
		primary_id TEXT,
		secondary_a_id TEXT,
		secondary_b_id TEXT,
		match_confidence REAL NOT NULL DEFAULT 0,
		amount_difference REAL,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`CREATE INDEX idx_outcomes_run ON outcomes(run_id)`)
	return err
}
