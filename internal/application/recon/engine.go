// Package recon contains the reconciliation run engine: it orchestrates
// source syncing, record loading, matching, classification, orphan
// synthesis, and run-log bookkeeping for one reconciliation run.
package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ledgerlink/internal/adapters/platforms"
	"ledgerlink/internal/domain/classifier"
	"ledgerlink/internal/domain/matcher"
	"ledgerlink/internal/domain/record"
	"ledgerlink/internal/infrastructure/storage"
)

// ErrInvalidRange is returned when the run window is empty or inverted.
// Rejected before any I/O.
var ErrInvalidRange = errors.New("invalid range: start must precede end")

// Adapters holds the three platform integrations of one engine.
type Adapters struct {
	Storefront platforms.Adapter
	PayGateway platforms.Adapter
	OrderMgmt  platforms.Adapter
}

// Profiles holds the match profile for each secondary source.
type Profiles struct {
	PayGateway matcher.Profile
	OrderMgmt  matcher.Profile
}

// DefaultProfiles returns the reference matching configuration.
func DefaultProfiles() Profiles {
	return Profiles{
		PayGateway: matcher.PayGatewayProfile(),
		OrderMgmt:  matcher.OrderMgmtProfile(),
	}
}

// Validate checks both profiles.
func (p Profiles) Validate() error {
	if err := p.PayGateway.Validate(); err != nil {
		return err
	}
	return p.OrderMgmt.Validate()
}

// RunReport is the caller-facing result of a completed run.
type RunReport struct {
	RunID    string
	Totals   storage.RunTotals
	Outcomes []storage.Outcome
}

// Engine executes reconciliation runs. It holds no cross-run state: the
// claimed-id sets and outcome list live on the stack of a single Reconcile
// call. The engine does not serialize concurrent runs; that is the caller's
// responsibility.
type Engine struct {
	adapters Adapters
	repo     storage.Repository
	profiles Profiles
	logger   *slog.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(adapters Adapters, repo storage.Repository, profiles Profiles, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		adapters: adapters,
		repo:     repo,
		profiles: profiles,
		logger:   logger.With("system", "recon"),
	}
}

// Reconcile runs one reconciliation over [start, end). The run either
// completes with every outcome persisted, or fails with none persisted and
// the error captured in the run log.
func (e *Engine) Reconcile(ctx context.Context, start, end time.Time) (*RunReport, error) {
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	runID := uuid.NewString()
	if err := e.repo.CreateRunLog(runID, start, end); err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}

	e.logger.Info("reconciliation run started",
		"run_id", runID,
		"window_start", start.Format(time.RFC3339),
		"window_end", end.Format(time.RFC3339),
	)

	report, err := e.execute(ctx, runID, start, end)
	if err != nil {
		if ferr := e.repo.FinalizeRunLog(runID, storage.RunFailed, storage.RunTotals{}, err.Error()); ferr != nil {
			e.logger.Error("failed to record run failure", "run_id", runID, "error", ferr)
		}
		e.logger.Error("reconciliation run failed", "run_id", runID, "error", err)
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	if err := e.repo.FinalizeRunLog(runID, storage.RunCompleted, report.Totals, ""); err != nil {
		return nil, fmt.Errorf("finalize run %s: %w", runID, err)
	}

	e.logger.Info("reconciliation run completed",
		"run_id", runID,
		"processed", report.Totals.Processed,
		"matched", report.Totals.Matched,
		"partial", report.Totals.PartialMatch,
		"discrepancies", report.Totals.Discrepancies,
		"unmatched", report.Totals.Unmatched,
	)

	return report, nil
}

// execute performs sync, matching, and persistence. A panic out of scoring
// or classification is converted into a run failure rather than taking the
// process down; there is no per-record checkpointing to resume from.
func (e *Engine) execute(ctx context.Context, runID string, start, end time.Time) (report *RunReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = fmt.Errorf("unexpected failure during matching: %v", r)
		}
	}()

	if err := e.syncSources(ctx, start, end); err != nil {
		return nil, err
	}

	primaries, err := e.repo.LoadRecords(record.SourceStorefront, start, end)
	if err != nil {
		return nil, fmt.Errorf("load %s records: %w", record.SourceStorefront, err)
	}
	candidatesA, err := e.repo.LoadRecords(record.SourcePayGateway, start, end)
	if err != nil {
		return nil, fmt.Errorf("load %s records: %w", record.SourcePayGateway, err)
	}
	candidatesB, err := e.repo.LoadRecords(record.SourceOrderMgmt, start, end)
	if err != nil {
		return nil, fmt.Errorf("load %s records: %w", record.SourceOrderMgmt, err)
	}

	outcomes := e.match(primaries, candidatesA, candidatesB)

	if err := e.repo.SaveOutcomes(runID, outcomes); err != nil {
		return nil, fmt.Errorf("save outcomes: %w", err)
	}

	return &RunReport{
		RunID:    runID,
		Totals:   tally(outcomes),
		Outcomes: outcomes,
	}, nil
}

// syncSources refreshes all three sources concurrently. The fetches are
// independent network calls; persistence happens sequentially afterwards so
// a single writer touches the database. Any failure aborts the run: matching
// against a stale or missing source would systematically bias results toward
// false unmatched outcomes.
func (e *Engine) syncSources(ctx context.Context, start, end time.Time) error {
	adapters := []platforms.Adapter{e.adapters.Storefront, e.adapters.PayGateway, e.adapters.OrderMgmt}
	fetched := make([][]record.Record, len(adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range adapters {
		i, adapter := i, adapter
		g.Go(func() error {
			raws, err := adapter.FetchRecords(gctx, start, end)
			if err != nil {
				return &platforms.SyncError{Source: adapter.Source(), Err: err}
			}
			fetched[i] = e.normalizeAll(raws, adapter.Source())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, adapter := range adapters {
		if err := e.repo.ReplaceRecords(adapter.Source(), start, end, fetched[i]); err != nil {
			return &platforms.SyncError{Source: adapter.Source(), Err: err}
		}
	}

	return nil
}

// normalizeAll normalizes raw records, skipping the ones missing mandatory
// fields with a logged warning. Partial data from flaky upstream APIs is
// expected and must not abort the run.
func (e *Engine) normalizeAll(raws []record.RawRecord, kind record.SourceKind) []record.Record {
	records := make([]record.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := record.Normalize(raw, kind)
		if err != nil {
			e.logger.Warn("skipping record that failed normalization", "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// match runs the greedy first-come-wins matching pass over the primaries and
// synthesizes orphan outcomes for unclaimed secondaries. Primaries are
// processed in loader order (reverse-chronological), which is the tie-break
// when two primaries could claim the same secondary.
func (e *Engine) match(primaries, candidatesA, candidatesB []record.Record) []storage.Outcome {
	claimedA := make(map[string]bool)
	claimedB := make(map[string]bool)
	outcomes := make([]storage.Outcome, 0, len(primaries))

	for _, primary := range primaries {
		var confidences []float64
		amounts := []float64{primary.Amount}

		primaryID := primary.SourceID
		outcome := storage.Outcome{PrimaryID: &primaryID}

		// The selector scores every candidate, claimed ones included; a
		// winner already claimed by an earlier primary simply yields no
		// match for that source. No second-choice fallback.
		if best, confidence := matcher.SelectBest(primary, candidatesA, e.profiles.PayGateway); best != nil {
			if !claimedA[best.SourceID] {
				claimedA[best.SourceID] = true
				id := best.SourceID
				outcome.SecondaryAID = &id
				confidences = append(confidences, confidence)
				amounts = append(amounts, best.Amount)
			}
		}

		if best, confidence := matcher.SelectBest(primary, candidatesB, e.profiles.OrderMgmt); best != nil {
			if !claimedB[best.SourceID] {
				claimedB[best.SourceID] = true
				id := best.SourceID
				outcome.SecondaryBID = &id
				confidences = append(confidences, confidence)
				amounts = append(amounts, best.Amount)
			}
		}

		verdict := classifier.Classify(confidences, amounts)
		diff := verdict.AmountDifference
		outcome.MatchConfidence = verdict.MatchConfidence
		outcome.AmountDifference = &diff
		outcome.Status = verdict.Status
		outcome.Notes = verdict.Notes

		outcomes = append(outcomes, outcome)
	}

	outcomes = append(outcomes, orphanOutcomes(candidatesA, claimedA, func(o *storage.Outcome, id *string) { o.SecondaryAID = id })...)
	outcomes = append(outcomes, orphanOutcomes(candidatesB, claimedB, func(o *storage.Outcome, id *string) { o.SecondaryBID = id })...)

	return outcomes
}

// orphanOutcomes synthesizes one UNMATCHED outcome per unclaimed secondary
// record. Orphans carry no amount difference: there is no counterpart to
// diff against.
func orphanOutcomes(candidates []record.Record, claimed map[string]bool, setID func(*storage.Outcome, *string)) []storage.Outcome {
	var orphans []storage.Outcome
	for _, c := range candidates {
		if claimed[c.SourceID] {
			continue
		}
		id := c.SourceID
		outcome := storage.Outcome{
			MatchConfidence: 0,
			Status:          classifier.StatusUnmatched,
			Notes:           fmt.Sprintf("no primary record claimed %s record %s", c.Source, c.SourceID),
		}
		setID(&outcome, &id)
		orphans = append(orphans, outcome)
	}
	return orphans
}

// tally counts outcomes per status.
func tally(outcomes []storage.Outcome) storage.RunTotals {
	totals := storage.RunTotals{Processed: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case classifier.StatusMatched:
			totals.Matched++
		case classifier.StatusPartialMatch:
			totals.PartialMatch++
		case classifier.StatusDiscrepancy:
			totals.Discrepancies++
		case classifier.StatusUnmatched:
			totals.Unmatched++
		}
	}
	return totals
}
