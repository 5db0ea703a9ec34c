package dto

import (
	"fmt"
	"time"

	"ledgerlink/internal/infrastructure/storage"
)

// StartRunRequest is the body of POST /api/runs. Timestamps accept RFC 3339
// or a bare date (interpreted as midnight UTC).
type StartRunRequest struct {
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
}

// Window parses the requested run window.
func (r StartRunRequest) Window() (start, end time.Time, err error) {
	start, err = parseTimestamp(r.WindowStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("window_start: %w", err)
	}
	end, err = parseTimestamp(r.WindowEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("window_end: %w", err)
	}
	return start, end, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// RunResponse is the API shape of one reconciliation run.
type RunResponse struct {
	ID          string            `json:"id"`
	WindowStart time.Time         `json:"window_start"`
	WindowEnd   time.Time         `json:"window_end"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Status      string            `json:"status"`
	Totals      storage.RunTotals `json:"totals"`
	ErrorDetail string            `json:"error_detail,omitempty"`
}

// RunListResponse is the response of GET /api/runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// OutcomeResponse is the API shape of one reconciliation outcome.
type OutcomeResponse struct {
	ID               int64    `json:"id"`
	PrimaryID        *string  `json:"primary_id,omitempty"`
	SecondaryAID     *string  `json:"secondary_a_id,omitempty"`
	SecondaryBID     *string  `json:"secondary_b_id,omitempty"`
	MatchConfidence  float64  `json:"match_confidence"`
	AmountDifference *float64 `json:"amount_difference,omitempty"`
	Status           string   `json:"status"`
	Notes            string   `json:"notes,omitempty"`
}

// ReportResponse is the response of GET /api/runs/{id}/report.
type ReportResponse struct {
	Run      RunResponse       `json:"run"`
	Outcomes []OutcomeResponse `json:"outcomes"`
}

// ToRunResponse converts a stored run log.
func ToRunResponse(run storage.RunLog) RunResponse {
	return RunResponse{
		ID:          run.ID,
		WindowStart: run.WindowStart,
		WindowEnd:   run.WindowEnd,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Status:      string(run.Status),
		Totals:      run.Totals,
		ErrorDetail: run.ErrorDetail,
	}
}

// ToOutcomeResponse converts a stored outcome.
func ToOutcomeResponse(o storage.Outcome) OutcomeResponse {
	return OutcomeResponse{
		ID:               o.ID,
		PrimaryID:        o.PrimaryID,
		SecondaryAID:     o.SecondaryAID,
		SecondaryBID:     o.SecondaryBID,
		MatchConfidence:  o.MatchConfidence,
		AmountDifference: o.AmountDifference,
		Status:           string(o.Status),
		Notes:            o.Notes,
	}
}
