package handlers

import (
	"net/http"

	"ledgerlink/internal/api/dto"
)

// StatsHandler serves aggregate reconciliation statistics.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(svc RunService) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(svc),
	}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, stats)
}
