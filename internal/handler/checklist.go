package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/server/middleware"
	"github.com/orgdesk/orgdesk/internal/service"
)

// ChecklistHandler serves the checklist endpoints.
type ChecklistHandler struct {
	checklists *service.ChecklistService
}

// NewChecklistHandler creates a ChecklistHandler.
func NewChecklistHandler(checklists *service.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{checklists: checklists}
}

// List handles GET /api/v1/checklists.
func (h *ChecklistHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	checklists, err := h.checklists.List(r.Context(), ac)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(checklists, len(checklists)))
}

// Get handles GET /api/v1/checklists/{checklistID}.
func (h *ChecklistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	checklist, err := h.checklists.Get(r.Context(), ac, chi.URLParam(r, "checklistID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checklist)
}

// Create handles POST /api/v1/checklists.
func (h *ChecklistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var checklist model.Checklist
	if err := readJSON(r, &checklist); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if checklist.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	if err := h.checklists.Create(r.Context(), ac, &checklist); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checklist)
}

// Update handles PUT /api/v1/checklists/{checklistID}.
func (h *ChecklistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var checklist model.Checklist
	if err := readJSON(r, &checklist); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	checklist.ID = chi.URLParam(r, "checklistID")

	if err := h.checklists.Update(r.Context(), ac, &checklist); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checklist)
}

// Delete handles DELETE /api/v1/checklists/{checklistID}.
func (h *ChecklistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	if err := h.checklists.Delete(r.Context(), ac, chi.URLParam(r, "checklistID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
