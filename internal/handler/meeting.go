package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/server/middleware"
	"github.com/orgdesk/orgdesk/internal/service"
)

// MeetingHandler serves the meeting endpoints.
type MeetingHandler struct {
	meetings *service.MeetingService
}

// NewMeetingHandler creates a MeetingHandler.
func NewMeetingHandler(meetings *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

// List handles GET /api/v1/meetings.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	meetings, err := h.meetings.List(r.Context(), ac)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(meetings, len(meetings)))
}

// Get handles GET /api/v1/meetings/{meetingID}.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	meeting, err := h.meetings.Get(r.Context(), ac, chi.URLParam(r, "meetingID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// Create handles POST /api/v1/meetings.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var meeting model.Meeting
	if err := readJSON(r, &meeting); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if meeting.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	if err := h.meetings.Create(r.Context(), ac, &meeting); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meeting)
}

// Update handles PUT /api/v1/meetings/{meetingID}.
func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var meeting model.Meeting
	if err := readJSON(r, &meeting); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	meeting.ID = chi.URLParam(r, "meetingID")

	if err := h.meetings.Update(r.Context(), ac, &meeting); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// Delete handles DELETE /api/v1/meetings/{meetingID}.
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	if err := h.meetings.Delete(r.Context(), ac, chi.URLParam(r, "meetingID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
