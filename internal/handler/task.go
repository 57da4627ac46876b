package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/server/middleware"
	"github.com/orgdesk/orgdesk/internal/service"
)

// TaskHandler serves the task endpoints. Authorization and scope filtering
// live in the service; the handler only shapes HTTP.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	tasks, err := h.tasks.List(r.Context(), ac)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(tasks, len(tasks)))
}

// Get handles GET /api/v1/tasks/{taskID}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	task, err := h.tasks.Get(r.Context(), ac, chi.URLParam(r, "taskID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var task model.Task
	if err := readJSON(r, &task); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if task.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if task.Status == "" {
		task.Status = model.TaskOpen
	}

	if err := h.tasks.Create(r.Context(), ac, &task); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Update handles PUT /api/v1/tasks/{taskID}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var task model.Task
	if err := readJSON(r, &task); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	task.ID = chi.URLParam(r, "taskID")

	if err := h.tasks.Update(r.Context(), ac, &task); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Complete handles POST /api/v1/tasks/{taskID}/complete. Seeing a task does
// not grant the right to complete it.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	task, err := h.tasks.Complete(r.Context(), ac, chi.URLParam(r, "taskID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/v1/tasks/{taskID}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	if err := h.tasks.Delete(r.Context(), ac, chi.URLParam(r, "taskID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setResponsiblesRequest struct {
	UserIDs []string `json:"user_ids"`
}

// SetResponsibles handles PUT /api/v1/tasks/{taskID}/responsibles.
func (h *TaskHandler) SetResponsibles(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var req setResponsiblesRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.tasks.SetResponsibles(r.Context(), ac, chi.URLParam(r, "taskID"), req.UserIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commentRequest struct {
	Body string `json:"body"`
}

// CreateComment handles POST /api/v1/tasks/{taskID}/comments.
func (h *TaskHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())

	var req commentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "Comment body is required")
		return
	}

	comment, err := h.tasks.Comment(r.Context(), ac, chi.URLParam(r, "taskID"), req.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// ListComments handles GET /api/v1/tasks/{taskID}/comments.
func (h *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	comments, err := h.tasks.Comments(r.Context(), ac, chi.URLParam(r, "taskID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(comments, len(comments)))
}
