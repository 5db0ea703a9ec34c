package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlink/internal/application/recon"
	"ledgerlink/internal/domain/matcher"
	"ledgerlink/internal/infrastructure/config"
	"ledgerlink/internal/infrastructure/storage"
)

// stubEngine returns a canned report, optionally blocking until released.
type stubEngine struct {
	report  *recon.RunReport
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubEngine) Reconcile(_ context.Context, _, _ time.Time) (*recon.RunReport, error) {
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

var (
	runStart = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	runEnd   = time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC)
)

func TestStartRunReturnsReport(t *testing.T) {
	engine := &stubEngine{report: &recon.RunReport{
		RunID:  "run-1",
		Totals: storage.RunTotals{Processed: 2, Matched: 2},
	}}
	svc := NewRunService(engine, storage.NewMockRepository(), nil, nil)

	report, err := svc.StartRun(context.Background(), runStart, runEnd)

	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 2, report.Totals.Matched)
}

func TestStartRunPropagatesEngineError(t *testing.T) {
	wantErr := errors.New("gateway down")
	svc := NewRunService(&stubEngine{err: wantErr}, storage.NewMockRepository(), nil, nil)

	_, err := svc.StartRun(context.Background(), runStart, runEnd)

	assert.ErrorIs(t, err, wantErr)
}

func TestStartRunRejectsConcurrentRun(t *testing.T) {
	engine := &stubEngine{
		report:  &recon.RunReport{RunID: "run-1"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewRunService(engine, storage.NewMockRepository(), nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.StartRun(context.Background(), runStart, runEnd)
		done <- err
	}()

	// Wait until the first run holds the lock, then try a second.
	<-engine.started
	_, err := svc.StartRun(context.Background(), runStart, runEnd)
	assert.ErrorIs(t, err, ErrRunActive)

	close(engine.release)
	require.NoError(t, <-done)

	// Lock is released after completion.
	_, err = svc.StartRun(context.Background(), runStart, runEnd)
	require.NoError(t, err)
}

func TestGetReport(t *testing.T) {
	repo := storage.NewMockRepository()
	require.NoError(t, repo.CreateRunLog("run-1", runStart, runEnd))
	primary := "ord-1"
	require.NoError(t, repo.SaveOutcomes("run-1", []storage.Outcome{
		{PrimaryID: &primary, Status: "MATCHED", MatchConfidence: 100},
	}))
	require.NoError(t, repo.FinalizeRunLog("run-1", storage.RunCompleted, storage.RunTotals{Processed: 1, Matched: 1}, ""))

	svc := NewRunService(&stubEngine{}, repo, nil, nil)

	run, outcomes, err := svc.GetReport("run-1")
	require.NoError(t, err)
	assert.Equal(t, storage.RunCompleted, run.Status)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "ord-1", *outcomes[0].PrimaryID)

	_, _, err = svc.GetReport("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProfilesFromConfig(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		profiles := ProfilesFromConfig(config.MatchingConfig{})
		assert.Equal(t, recon.DefaultProfiles(), profiles)
	})

	t.Run("override applied", func(t *testing.T) {
		profiles := ProfilesFromConfig(config.MatchingConfig{
			OrderMgmt: config.ProfileConfig{
				ReferenceWeight: 70,
				AmountWeight:    20,
				TemporalWeight:  10,
				WindowHours:     72,
			},
		})

		assert.Equal(t, matcher.PayGatewayProfile(), profiles.PayGateway)
		assert.Equal(t, 70.0, profiles.OrderMgmt.Weights.Reference)
		assert.Equal(t, 72.0, profiles.OrderMgmt.WindowHours)
		// Tolerance not overridden keeps the default.
		assert.Equal(t, matcher.OrderMgmtProfile().AmountTolerance, profiles.OrderMgmt.AmountTolerance)
		assert.NoError(t, profiles.Validate())
	})
}
