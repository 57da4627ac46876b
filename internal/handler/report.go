package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/server/middleware"
	"github.com/orgdesk/orgdesk/internal/service"
)

// ReportHandler serves the report endpoints. Author identity may come back
// redacted depending on the caller's PII flag; that is the service's call.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// List handles GET /api/v1/reports.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	reports, err := h.reports.List(r.Context(), ac)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(reports, len(reports)))
}

// Get handles GET /api/v1/reports/{reportID}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	report, err := h.reports.Get(r.Context(), ac, chi.URLParam(r, "reportID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Create handles POST /api/v1/reports. The record is stamped with the
// caller's identity and organizational anchors.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var report model.Report
	if err := readJSON(r, &report); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if report.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	if err := h.reports.Create(r.Context(), ac, &report); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// Update handles PUT /api/v1/reports/{reportID}.
func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var report model.Report
	if err := readJSON(r, &report); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	report.ID = chi.URLParam(r, "reportID")

	if err := h.reports.Update(r.Context(), ac, &report); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Delete handles DELETE /api/v1/reports/{reportID}.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	if err := h.reports.Delete(r.Context(), ac, chi.URLParam(r, "reportID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
