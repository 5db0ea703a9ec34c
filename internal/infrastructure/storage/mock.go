package storage

import (
	"sort"
	"sync"
	"time"

	"ledgerlink/internal/domain/record"
)

// MockRepository is an in-memory Repository implementation for tests.
// Error fields let tests inject failures per operation.
type MockRepository struct {
	mu sync.Mutex

	records  map[record.SourceKind][]record.Record
	runs     map[string]*RunLog
	outcomes map[string][]Outcome
	nextID   int64

	ReplaceRecordsErr error
	LoadRecordsErr    error
	CreateRunLogErr   error
	FinalizeRunErr    error
	SaveOutcomesErr   error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates an empty in-memory repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		records:  make(map[record.SourceKind][]record.Record),
		runs:     make(map[string]*RunLog),
		outcomes: make(map[string][]Outcome),
	}
}

// ReplaceRecords replaces one source's records inside the window.
func (m *MockRepository) ReplaceRecords(source record.SourceKind, start, end time.Time, records []record.Record) error {
	if m.ReplaceRecordsErr != nil {
		return m.ReplaceRecordsErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []record.Record
	for _, r := range m.records[source] {
		if r.OccurredAt.Before(start) || !r.OccurredAt.Before(end) {
			kept = append(kept, r)
		}
	}
	m.records[source] = append(kept, records...)
	return nil
}

// LoadRecords returns one source's records reverse-chronologically, matching
// the SQLite implementation's ordering contract.
func (m *MockRepository) LoadRecords(source record.SourceKind, start, end time.Time) ([]record.Record, error) {
	if m.LoadRecordsErr != nil {
		return nil, m.LoadRecordsErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []record.Record
	for _, r := range m.records[source] {
		if !r.OccurredAt.Before(start) && r.OccurredAt.Before(end) {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].SourceID < out[j].SourceID
	})

	return out, nil
}

// CreateRunLog records the start of a run.
func (m *MockRepository) CreateRunLog(runID string, windowStart, windowEnd time.Time) error {
	if m.CreateRunLogErr != nil {
		return m.CreateRunLogErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[runID] = &RunLog{
		ID:          runID,
		WindowStart: windowStart.UTC(),
		WindowEnd:   windowEnd.UTC(),
		StartedAt:   time.Now().UTC(),
		Status:      RunRunning,
	}
	return nil
}

// FinalizeRunLog marks a run completed or failed.
func (m *MockRepository) FinalizeRunLog(runID string, status RunStatus, totals RunTotals, errorDetail string) error {
	if m.FinalizeRunErr != nil {
		return m.FinalizeRunErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = status
	run.Totals = totals
	run.ErrorDetail = errorDetail
	return nil
}

// GetRunLog retrieves a run log by ID.
func (m *MockRepository) GetRunLog(runID string) (*RunLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *run
	return &copied, nil
}

// LatestRunLog returns the most recently started run.
func (m *MockRepository) LatestRunLog() (*RunLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *RunLog
	for _, run := range m.runs {
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

// ListRunLogs returns runs newest first.
func (m *MockRepository) ListRunLogs(limit int) ([]RunLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	runs := make([]RunLog, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SaveOutcomes stores a run's outcomes.
func (m *MockRepository) SaveOutcomes(runID string, outcomes []Outcome) error {
	if m.SaveOutcomesErr != nil {
		return m.SaveOutcomesErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, o := range outcomes {
		m.nextID++
		o.ID = m.nextID
		o.RunID = runID
		o.CreatedAt = now
		m.outcomes[runID] = append(m.outcomes[runID], o)
	}
	return nil
}

// ListOutcomes returns a run's outcomes in insertion order.
func (m *MockRepository) ListOutcomes(runID string) ([]Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Outcome, len(m.outcomes[runID]))
	copy(out, m.outcomes[runID])
	return out, nil
}

// GetStats aggregates across stored runs and outcomes.
func (m *MockRepository) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &Stats{StatusCounts: make(map[string]int)}
	for _, run := range m.runs {
		stats.TotalRuns++
		switch run.Status {
		case RunCompleted:
			stats.CompletedRuns++
		case RunFailed:
			stats.FailedRuns++
		}
		if stats.LastRunAt == nil || run.StartedAt.After(*stats.LastRunAt) {
			t := run.StartedAt
			stats.LastRunAt = &t
		}
	}
	for _, outcomes := range m.outcomes {
		for _, o := range outcomes {
			stats.StatusCounts[string(o.Status)]++
			stats.TotalOutcomes++
		}
	}
	return stats, nil
}

// Close is a no-op for the mock.
func (m *MockRepository) Close() error {
	return nil
}
