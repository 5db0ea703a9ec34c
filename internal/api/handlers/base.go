package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"ledgerlink/internal/api/dto"
	"ledgerlink/internal/application/recon"
	"ledgerlink/internal/infrastructure/storage"
)

// RunService is the application surface the handlers need.
type RunService interface {
	StartRun(ctx context.Context, start, end time.Time) (*recon.RunReport, error)
	GetRun(runID string) (*storage.RunLog, error)
	ListRuns(limit int) ([]storage.RunLog, error)
	GetReport(runID string) (*storage.RunLog, []storage.Outcome, error)
	GetStats() (*storage.Stats, error)
}

// Base provides shared functionality for all handlers.
type Base struct {
	svc RunService
}

// NewBase creates a new base handler around the run service.
func NewBase(svc RunService) *Base {
	return &Base{svc: svc}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
