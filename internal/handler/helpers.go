package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/store"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// writeServiceError maps domain errors onto HTTP status codes. Authorization
// denials stay generic: the body never reveals which check failed or whether
// the record exists outside the caller's scope.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *rbac.ValidationError
	switch {
	case errors.Is(err, rbac.ErrForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrSystemRole):
		writeError(w, http.StatusConflict, "System roles cannot be deleted")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error(), map[string]interface{}{
			"invalid": verr.Entries,
		})
	default:
		// The wrap chain stays in the log; the response body carries no
		// internal detail.
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// listEnvelope wraps a slice in the standard list envelope with a count.
func listEnvelope(resource interface{}, count int) model.ListResponse {
	return model.ListResponse{
		Resource: resource,
		Meta:     &model.ResponseMeta{Count: count},
	}
}
