// Package service coordinates reconciliation runs for the API and CLI.
//
// Runs are synchronous and serialized: only one run executes at a time,
// since every run rewrites the staging window and replays matching over it.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"ledgerlink/internal/application/recon"
	"ledgerlink/internal/domain/matcher"
	"ledgerlink/internal/infrastructure/config"
	"ledgerlink/internal/infrastructure/storage"
	"ledgerlink/internal/observability"
)

// ErrRunActive is returned when a run is requested while another is executing.
var ErrRunActive = errors.New("a reconciliation run is already in progress")

// reconciler is the engine surface the service needs.
type reconciler interface {
	Reconcile(ctx context.Context, start, end time.Time) (*recon.RunReport, error)
}

// RunReport is re-exported for callers that only import the service.
type RunReport = recon.RunReport

// RunService executes reconciliation runs and answers run queries.
type RunService struct {
	engine  reconciler
	repo    storage.Repository
	metrics *observability.Metrics
	logger  *slog.Logger

	mu sync.Mutex
}

// NewRunService creates a run service around an engine.
func NewRunService(engine reconciler, repo storage.Repository, metrics *observability.Metrics, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		engine:  engine,
		repo:    repo,
		metrics: metrics,
		logger:  logger.With("system", "service"),
	}
}

// StartRun executes one reconciliation run over [start, end). It returns
// ErrRunActive when another run holds the lock.
func (s *RunService) StartRun(ctx context.Context, start, end time.Time) (*RunReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunActive
	}
	defer s.mu.Unlock()

	began := time.Now()
	report, err := s.engine.Reconcile(ctx, start, end)
	if err != nil {
		s.metrics.ObserveRun(string(storage.RunFailed), time.Since(began))
		return nil, err
	}

	s.metrics.ObserveRun(string(storage.RunCompleted), time.Since(began))
	for _, o := range report.Outcomes {
		s.metrics.CountOutcome(string(o.Status))
	}
	return report, nil
}

// GetRun returns one run log by id.
func (s *RunService) GetRun(runID string) (*storage.RunLog, error) {
	return s.repo.GetRunLog(runID)
}

// ListRuns returns the most recent run logs, newest first.
func (s *RunService) ListRuns(limit int) ([]storage.RunLog, error) {
	return s.repo.ListRunLogs(limit)
}

// GetReport returns a run log together with its outcomes.
func (s *RunService) GetReport(runID string) (*storage.RunLog, []storage.Outcome, error) {
	run, err := s.repo.GetRunLog(runID)
	if err != nil {
		return nil, nil, err
	}
	outcomes, err := s.repo.ListOutcomes(runID)
	if err != nil {
		return nil, nil, err
	}
	return run, outcomes, nil
}

// GetStats returns aggregate statistics across all runs.
func (s *RunService) GetStats() (*storage.Stats, error) {
	return s.repo.GetStats()
}

// ProfilesFromConfig builds the scoring profiles, applying any configured
// overrides on top of the defaults.
func ProfilesFromConfig(cfg config.MatchingConfig) recon.Profiles {
	profiles := recon.DefaultProfiles()
	applyOverride(&profiles.PayGateway, cfg.PayGateway)
	applyOverride(&profiles.OrderMgmt, cfg.OrderMgmt)
	return profiles
}

func applyOverride(p *matcher.Profile, o config.ProfileConfig) {
	if o.IsZero() {
		return
	}
	p.Weights = matcher.Weights{
		Identity:  o.IdentityWeight,
		Reference: o.ReferenceWeight,
		Amount:    o.AmountWeight,
		Temporal:  o.TemporalWeight,
	}
	if o.AmountTolerance > 0 {
		p.AmountTolerance = o.AmountTolerance
	}
	if o.WindowHours > 0 {
		p.WindowHours = o.WindowHours
	}
}
