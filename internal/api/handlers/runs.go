package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledgerlink/internal/api/dto"
	"ledgerlink/internal/application/recon"
	"ledgerlink/internal/application/service"
	"ledgerlink/internal/export"
	"ledgerlink/internal/infrastructure/storage"
)

// RunsHandler handles reconciliation run HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(svc RunService) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(svc),
	}
}

// Start handles POST /api/runs - executes a reconciliation run.
func (h *RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	start, end, err := req.Window()
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	report, err := h.svc.StartRun(r.Context(), start, end)
	switch {
	case errors.Is(err, service.ErrRunActive):
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	case errors.Is(err, recon.ErrInvalidRange):
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	case err != nil:
		// The failure is recorded in the run log; surface the id when known.
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	run, err := h.svc.GetRun(report.RunID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, dto.ToRunResponse(*run))
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.svc.ListRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, dto.ToRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.svc.GetRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ToRunResponse(*run))
}

// Report handles GET /api/runs/{id}/report - the run with its outcomes.
func (h *RunsHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, outcomes, err := h.svc.GetReport(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.ReportResponse{
		Run:      dto.ToRunResponse(*run),
		Outcomes: make([]dto.OutcomeResponse, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		response.Outcomes = append(response.Outcomes, dto.ToOutcomeResponse(o))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Export handles GET /api/runs/{id}/export?format=xlsx|pdf - a downloadable
// report file.
func (h *RunsHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}

	run, outcomes, err := h.svc.GetReport(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	var data []byte
	var contentType string
	switch format {
	case "xlsx":
		data, err = export.BuildReportXLSX(run, outcomes)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		data, err = export.BuildReportPDF(run, outcomes)
		contentType = "application/pdf"
	default:
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("format must be xlsx or pdf"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="recon-%s.%s"`, run.ID, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
