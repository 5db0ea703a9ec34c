package recon

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlink/internal/adapters/platforms"
	"ledgerlink/internal/domain/classifier"
	"ledgerlink/internal/domain/record"
	"ledgerlink/internal/infrastructure/storage"
)

// stubAdapter serves a fixed record set, or a fixed error.
type stubAdapter struct {
	source  record.SourceKind
	records []record.RawRecord
	err     error
}

func (s *stubAdapter) Source() record.SourceKind { return s.source }

func (s *stubAdapter) FetchRecords(_ context.Context, _, _ time.Time) ([]record.RawRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

var (
	windowStart = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC)
	baseTime    = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
)

func raw(id, email, extRef, displayRef string, amount float64, at time.Time) record.RawRecord {
	return record.RawRecord{
		SourceID:     id,
		Counterparty: email,
		ExternalRef:  extRef,
		DisplayRef:   displayRef,
		Amount:       &amount,
		OccurredAt:   &at,
	}
}

type fixture struct {
	engine *Engine
	repo   *storage.MockRepository

	storefront *stubAdapter
	paygate    *stubAdapter
	omsync     *stubAdapter
}

func newFixture() *fixture {
	f := &fixture{
		repo:       storage.NewMockRepository(),
		storefront: &stubAdapter{source: record.SourceStorefront},
		paygate:    &stubAdapter{source: record.SourcePayGateway},
		omsync:     &stubAdapter{source: record.SourceOrderMgmt},
	}
	f.engine = NewEngine(Adapters{
		Storefront: f.storefront,
		PayGateway: f.paygate,
		OrderMgmt:  f.omsync,
	}, f.repo, DefaultProfiles(), nil)
	return f
}

func (f *fixture) reconcile(t *testing.T) *RunReport {
	t.Helper()
	report, err := f.engine.Reconcile(context.Background(), windowStart, windowEnd)
	require.NoError(t, err)
	return report
}

func TestReconcile_InvalidRange(t *testing.T) {
	f := newFixture()

	_, err := f.engine.Reconcile(context.Background(), windowEnd, windowStart)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = f.engine.Reconcile(context.Background(), windowStart, windowStart)
	assert.ErrorIs(t, err, ErrInvalidRange)

	// Rejected before any I/O: no run log exists.
	_, err = f.repo.LatestRunLog()
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReconcile_PerfectMatchAcrossAllSources(t *testing.T) {
	// Identical counterparty, amount, and timestamp on the gateway side plus
	// a referencing OMS fulfillment: full-confidence MATCHED outcome.
	f := newFixture()
	f.storefront.records = []record.RawRecord{raw("ord-1", "a@x.com", "", "#1001", 1000, baseTime)}
	f.paygate.records = []record.RawRecord{raw("ch_1", "a@x.com", "", "", 1000, baseTime)}
	f.omsync.records = []record.RawRecord{raw("ff-1", "", "ord-1", "", 1000, baseTime)}

	report := f.reconcile(t)

	require.Len(t, report.Outcomes, 1)
	o := report.Outcomes[0]
	assert.Equal(t, classifier.StatusMatched, o.Status)
	assert.Equal(t, 100.0, o.MatchConfidence)
	require.NotNil(t, o.PrimaryID)
	assert.Equal(t, "ord-1", *o.PrimaryID)
	require.NotNil(t, o.SecondaryAID)
	assert.Equal(t, "ch_1", *o.SecondaryAID)
	require.NotNil(t, o.SecondaryBID)
	assert.Equal(t, "ff-1", *o.SecondaryBID)
	require.NotNil(t, o.AmountDifference)
	assert.Equal(t, 0.0, *o.AmountDifference)
	assert.Empty(t, o.Notes)

	assert.Equal(t, storage.RunTotals{Processed: 1, Matched: 1}, report.Totals)
}

func TestReconcile_GatewayOnlyPerfectMatch(t *testing.T) {
	// identity(40) + amount(40) + temporal(20) = 100 against the gateway.
	f := newFixture()
	f.storefront.records = []record.RawRecord{raw("ord-1", "a@x.com", "", "#1001", 1000, baseTime)}
	f.paygate.records = []record.RawRecord{raw("ch_1", "a@x.com", "", "", 1000, baseTime)}

	report := f.reconcile(t)

	require.Len(t, report.Outcomes, 1)
	o := report.Outcomes[0]
	assert.Equal(t, classifier.StatusMatched, o.Status)
	assert.Equal(t, 100.0, o.MatchConfidence)
	assert.Nil(t, o.SecondaryBID)
}

func TestReconcile_NoSignalsMeansUnmatchedPlusOrphan(t *testing.T) {
	// Wrong email, amount 10% off, and far outside the temporal window: the
	// charge scores 0, so the primary goes unmatched and the charge is
	// reported as an orphan.
	f := newFixture()
	f.storefront.records = []record.RawRecord{raw("ord-1", "a@x.com", "", "#1001", 1000, baseTime)}
	f.paygate.records = []record.RawRecord{raw("ch_1", "b@y.com", "", "", 1100, baseTime.Add(100*time.Hour))}

	report := f.reconcile(t)

	require.Len(t, report.Outcomes, 2)

	primary := report.Outcomes[0]
	assert.Equal(t, classifier.StatusUnmatched, primary.Status)
	assert.Equal(t, 0.0, primary.MatchConfidence)
	assert.Nil(t, primary.SecondaryAID)
	assert.NotEmpty(t, primary.Notes)

	orphan := report.Outcomes[1]
	assert.Nil(t, orphan.PrimaryID)
	require.NotNil(t, orphan.SecondaryAID)
	assert.Equal(t, "ch_1", *orphan.SecondaryAID)
	assert.Equal(t, classifier.StatusUnmatched, orphan.Status)
	assert.Nil(t, orphan.AmountDifference)
	assert.Contains(t, orphan.Notes, "pay_gateway")
}

func TestReconcile_ReferenceMatchWithAmountGapIsDiscrepancy(t *testing.T) {
	// OMS fulfillment references the order but invoices 515 against 500:
	// reference(60) + temporal(partial) lands in the partial band, but the
	// 15.00 spread forces DISCREPANCY.
	f := newFixture()
	f.storefront.records = []record.RawRecord{raw("ord-1", "", "", "#1001", 500, baseTime)}
	f.omsync.records = []record.RawRecord{raw("ff-1", "", "ord-1", "", 515, baseTime.Add(12*time.Hour))}

	report := f.reconcile(t)

	require.Len(t, report.Outcomes, 1)
	o := report.Outcomes[0]
	assert.Equal(t, classifier.StatusDiscrepancy, o.Status)
	// reference 60 + temporal 10*(1 - 12/48) = 67.5
	assert.InDelta(t, 67.5, o.MatchConfidence, 1e-9)
	require.NotNil(t, o.AmountDifference)
	assert.Equal(t, 15.0, *o.AmountDifference)
	assert.Contains(t, o.Notes, "15.00")
	assert.Equal(t, storage.RunTotals{Processed: 1, Discrepancies: 1}, report.Totals)
}

func TestReconcile_FirstPrimaryClaimsContestedSecondary(t *testing.T) {
	// Two primaries both score above zero against the single OMS record.
	// The loader serves primaries reverse-chronologically, so the newer
	// ord-2 is processed first and claims it; ord-1 gets an absent match
	// and the fulfillment does not appear as an orphan.
	f := newFixture()
	f.storefront.records = []record.RawRecord{
		raw("ord-1", "", "", "#1001", 500, baseTime),
		raw("ord-2", "", "", "#1002", 500, baseTime.Add(time.Hour)),
	}
	f.omsync.records = []record.RawRecord{raw("ff-1", "", "ord-2", "", 500, baseTime)}

	report := f.reconcile(t)

	require.Len(t, report.Outcomes, 2)

	byPrimary := make(map[string]storage.Outcome)
	for _, o := range report.Outcomes {
		require.NotNil(t, o.PrimaryID, "no orphan expected: the fulfillment was claimed")
		byPrimary[*o.PrimaryID] = o
	}

	winner := byPrimary["ord-2"]
	require.NotNil(t, winner.SecondaryBID)
	assert.Equal(t, "ff-1", *winner.SecondaryBID)

	loser := byPrimary["ord-1"]
	assert.Nil(t, loser.SecondaryBID)
	assert.Equal(t, classifier.StatusUnmatched, loser.Status)
}

func TestReconcile_Conservation(t *testing.T) {
	// Total outcomes = primaries + unclaimed secondaries of each source.
	f := newFixture()
	f.storefront.records = []record.RawRecord{
		raw("ord-1", "a@x.com", "", "#1001", 100, baseTime),
		raw("ord-2", "b@x.com", "", "#1002", 200, baseTime.Add(time.Hour)),
		raw("ord-3", "c@x.com", "", "#1003", 300, baseTime.Add(2*time.Hour)),
	}
	// ch_1 and ff-1 score above zero for at least one primary and get
	// claimed; the far-out-of-window records score zero everywhere and
	// surface as orphans.
	f.paygate.records = []record.RawRecord{
		raw("ch_1", "a@x.com", "", "", 100, baseTime),
		raw("ch_2", "z@z.com", "", "", 999, baseTime.Add(200*time.Hour)),
		raw("ch_3", "y@z.com", "", "", 1999, baseTime.Add(200*time.Hour)),
	}
	f.omsync.records = []record.RawRecord{
		raw("ff-1", "", "ord-2", "", 200, baseTime),
		raw("ff-2", "", "absent", "", 50, baseTime.Add(300*time.Hour)),
	}

	report := f.reconcile(t)

	assert.Len(t, report.Outcomes, 3+2+1)
	assert.Equal(t, report.Totals.Processed, len(report.Outcomes))
}

func TestReconcile_Determinism(t *testing.T) {
	build := func() *fixture {
		f := newFixture()
		f.storefront.records = []record.RawRecord{
			raw("ord-1", "a@x.com", "", "#1001", 100, baseTime),
			raw("ord-2", "a@x.com", "", "#1002", 100, baseTime.Add(time.Minute)),
		}
		f.paygate.records = []record.RawRecord{
			raw("ch_1", "a@x.com", "", "", 100, baseTime),
			raw("ch_2", "a@x.com", "", "", 100, baseTime.Add(time.Minute)),
		}
		return f
	}

	key := func(o storage.Outcome) string {
		deref := func(p *string) string {
			if p == nil {
				return "-"
			}
			return *p
		}
		return fmt.Sprintf("%s|%s|%s|%s|%.4f",
			deref(o.PrimaryID), deref(o.SecondaryAID), deref(o.SecondaryBID), o.Status, o.MatchConfidence)
	}

	first := build().reconcile(t)
	second := build().reconcile(t)

	require.Equal(t, len(first.Outcomes), len(second.Outcomes))
	seen := make(map[string]int)
	for _, o := range first.Outcomes {
		seen[key(o)]++
	}
	for _, o := range second.Outcomes {
		seen[key(o)]--
	}
	for k, n := range seen {
		assert.Zero(t, n, "outcome %s differs between runs", k)
	}
	assert.Equal(t, first.Totals, second.Totals)
}

func TestReconcile_SyncFailureAbortsRun(t *testing.T) {
	f := newFixture()
	f.storefront.records = []record.RawRecord{raw("ord-1", "a@x.com", "", "#1001", 100, baseTime)}
	f.paygate.err = errors.New("gateway timeout")

	_, err := f.engine.Reconcile(context.Background(), windowStart, windowEnd)

	require.Error(t, err)
	var syncErr *platforms.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, record.SourcePayGateway, syncErr.Source)

	// The run log records the failure with its detail; no outcomes persist.
	run, lerr := f.repo.LatestRunLog()
	require.NoError(t, lerr)
	assert.Equal(t, storage.RunFailed, run.Status)
	assert.Contains(t, run.ErrorDetail, "pay_gateway")

	outcomes, lerr := f.repo.ListOutcomes(run.ID)
	require.NoError(t, lerr)
	assert.Empty(t, outcomes)
}

func TestReconcile_SaveFailureFailsRun(t *testing.T) {
	f := newFixture()
	f.storefront.records = []record.RawRecord{raw("ord-1", "a@x.com", "", "#1001", 100, baseTime)}
	f.repo.SaveOutcomesErr = errors.New("disk full")

	_, err := f.engine.Reconcile(context.Background(), windowStart, windowEnd)

	require.Error(t, err)
	run, lerr := f.repo.LatestRunLog()
	require.NoError(t, lerr)
	assert.Equal(t, storage.RunFailed, run.Status)
	assert.Contains(t, run.ErrorDetail, "disk full")
}

func TestReconcile_LoadFailureFailsRun(t *testing.T) {
	f := newFixture()
	f.repo.LoadRecordsErr = errors.New("corrupt table")

	_, err := f.engine.Reconcile(context.Background(), windowStart, windowEnd)

	require.Error(t, err)
	run, lerr := f.repo.LatestRunLog()
	require.NoError(t, lerr)
	assert.Equal(t, storage.RunFailed, run.Status)
}

func TestReconcile_SkipsRecordsFailingNormalization(t *testing.T) {
	// A charge without an amount is skipped with a warning, not fatal.
	f := newFixture()
	f.storefront.records = []record.RawRecord{raw("ord-1", "a@x.com", "", "#1001", 100, baseTime)}
	at := baseTime
	f.paygate.records = []record.RawRecord{
		{SourceID: "ch_broken", OccurredAt: &at},
		raw("ch_1", "a@x.com", "", "", 100, baseTime),
	}

	report := f.reconcile(t)

	require.Len(t, report.Outcomes, 1)
	require.NotNil(t, report.Outcomes[0].SecondaryAID)
	assert.Equal(t, "ch_1", *report.Outcomes[0].SecondaryAID)
}

func TestReconcile_TotalsRecordedInRunLog(t *testing.T) {
	f := newFixture()
	f.storefront.records = []record.RawRecord{
		raw("ord-1", "a@x.com", "", "#1001", 1000, baseTime),
		raw("ord-2", "b@x.com", "", "#1002", 500, baseTime.Add(time.Hour)),
	}
	f.paygate.records = []record.RawRecord{
		raw("ch_1", "a@x.com", "", "", 1000, baseTime),
	}
	f.omsync.records = []record.RawRecord{
		raw("ff-1", "", "ord-2", "", 515, baseTime.Add(time.Hour)),
		raw("ff-2", "", "nope", "", 50, baseTime.Add(400*time.Hour)),
	}

	report := f.reconcile(t)

	run, err := f.repo.GetRunLog(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.RunCompleted, run.Status)
	assert.Equal(t, report.Totals, run.Totals)
	require.NotNil(t, run.CompletedAt)

	persisted, err := f.repo.ListOutcomes(report.RunID)
	require.NoError(t, err)
	assert.Len(t, persisted, len(report.Outcomes))
}
