package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/store"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"forbidden", rbac.ErrForbidden, http.StatusForbidden, "Access denied"},
		{"not found", store.ErrNotFound, http.StatusNotFound, "Not found"},
		{"system role", store.ErrSystemRole, http.StatusConflict, "System roles cannot be deleted"},
		{"wrapped forbidden", fmt.Errorf("complete task: %w", rbac.ErrForbidden), http.StatusForbidden, "Access denied"},
		{"internal", fmt.Errorf("insert role: %w", errors.New("disk I/O error")), http.StatusInternalServerError, "Internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tc.err)

			if rec.Code != tc.status {
				t.Errorf("status %d, want %d", rec.Code, tc.status)
			}
			var resp model.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Message != tc.message {
				t.Errorf("message %q, want %q", resp.Error.Message, tc.message)
			}
		})
	}
}

func TestWriteServiceErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, fmt.Errorf("insert role: %w", errors.New("UNIQUE constraint failed: roles.name_normalized")))

	body := rec.Body.String()
	for _, fragment := range []string{"insert role", "UNIQUE", "name_normalized"} {
		if strings.Contains(body, fragment) {
			t.Errorf("internal detail %q leaked into the response: %s", fragment, body)
		}
	}
}

func TestWriteServiceErrorValidationEntries(t *testing.T) {
	verr := &rbac.ValidationError{Entries: []rbac.InvalidEntry{
		{Role: "Secretaria", Resource: "tasks", Action: "fly", Scope: "locality"},
	}}
	rec := httptest.NewRecorder()
	writeServiceError(rec, verr)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
	var resp model.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Context == nil {
		t.Fatal("validation entries missing from context")
	}
	if _, ok := resp.Error.Context["invalid"]; !ok {
		t.Errorf("expected invalid entry list, got %+v", resp.Error.Context)
	}
}
