package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/service"
	"github.com/orgdesk/orgdesk/internal/store"
)

type testServer struct {
	srv   *Server
	store *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.NewTestStore()
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := rbac.NewResolver(st)
	profile := rbac.NewProfileResolver(nil)
	audit := service.NewAuditLogger(st, logger)
	matrix := rbac.NewMatrix(st, audit)

	svcs := Services{
		Auth:       service.NewAuthService(st, "test-secret", time.Hour),
		Audit:      audit,
		Tasks:      service.NewTaskService(st, profile, audit),
		Meetings:   service.NewMeetingService(st, profile, audit),
		Checklists: service.NewChecklistService(st, profile, audit),
		Reports:    service.NewReportService(st, profile, audit),
	}

	cfg := DefaultConfig()
	cfg.RateLimit = 0

	return &testServer{
		srv:   New(cfg, st, resolver, matrix, svcs, logger),
		store: st,
	}
}

func (ts *testServer) seedUser(t *testing.T, email, password string, role *model.Role) *model.User {
	t.Helper()
	ctx := context.Background()

	hash, err := service.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	user := &model.User{
		ID:           "u-" + email,
		Name:         email,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := ts.store.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	if role != nil {
		if err := ts.store.SetUserRoles(ctx, user.ID, []int64{role.ID}); err != nil {
			t.Fatal(err)
		}
	}
	return user
}

func (ts *testServer) seedWildcardRole(t *testing.T, name string) *model.Role {
	t.Helper()
	role := &model.Role{Name: name, Wildcard: true}
	if err := ts.store.CreateRole(context.Background(), role); err != nil {
		t.Fatal(err)
	}
	return role
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/session", "", map[string]string{
		"email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"session_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" {
		t.Fatal("empty session token")
	}
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("readyz: %d %s", rec.Code, rec.Body.String())
	}
}

func TestLoginAndSession(t *testing.T) {
	ts := newTestServer(t)
	ti := ts.seedWildcardRole(t, "TI")
	ts.seedUser(t, "admin@example.org", "correct horse", ti)

	token := ts.login(t, "admin@example.org", "correct horse")

	rec := ts.do(t, http.MethodGet, "/api/v1/session", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}
	var ac model.AccessContext
	if err := json.Unmarshal(rec.Body.Bytes(), &ac); err != nil {
		t.Fatal(err)
	}
	if ac.Email != "admin@example.org" || !ac.HasWildcardRole() {
		t.Errorf("unexpected access context: %+v", ac)
	}

	// Wrong password is indistinguishable from an unknown account.
	rec = ts.do(t, http.MethodPost, "/api/v1/session", "", map[string]string{
		"email": "admin@example.org", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/v1/session", "", map[string]string{
		"email": "nobody@example.org", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown account: %d", rec.Code)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/session", "/api/v1/system/role", "/api/v1/tasks/"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: %d", path, rec.Code)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/system/role", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: %d", rec.Code)
	}
}

func TestSystemRoutesRequirePermission(t *testing.T) {
	ts := newTestServer(t)
	ti := ts.seedWildcardRole(t, "TI")
	ts.seedUser(t, "admin@example.org", "correct horse", ti)
	// A user with no roles at all.
	ts.seedUser(t, "member@example.org", "correct horse", nil)

	adminTok := ts.login(t, "admin@example.org", "correct horse")
	memberTok := ts.login(t, "member@example.org", "correct horse")

	rec := ts.do(t, http.MethodGet, "/api/v1/system/role", adminTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin role list: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/system/role", memberTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member role list: %d", rec.Code)
	}
	var errResp model.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.Error.Message != "Access denied" {
		t.Errorf("denial must stay generic, got %q", errResp.Error.Message)
	}
}

func TestRoleLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ti := ts.seedWildcardRole(t, "TI")
	ts.seedUser(t, "admin@example.org", "correct horse", ti)
	token := ts.login(t, "admin@example.org", "correct horse")

	rec := ts.do(t, http.MethodPost, "/api/v1/system/role", token, map[string]interface{}{
		"name":        "Secretaria",
		"description": "Locality secretary",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create role: %d %s", rec.Code, rec.Body.String())
	}
	var role model.Role
	if err := json.Unmarshal(rec.Body.Bytes(), &role); err != nil {
		t.Fatal(err)
	}
	if role.ID == 0 || role.Name != "Secretaria" {
		t.Fatalf("unexpected role: %+v", role)
	}

	// Attach a permission and read it back.
	perm, err := ts.store.GetPermission(context.Background(), "tasks", "read", model.ScopeLocality)
	if err != nil {
		t.Fatal(err)
	}
	rec = ts.do(t, http.MethodPut, "/api/v1/system/role/"+itoa(role.ID)+"/permission", token, map[string]interface{}{
		"permission_ids": []int64{perm.ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set permissions: %d %s", rec.Code, rec.Body.String())
	}
	var updated model.Role
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if len(updated.Permissions) != 1 || updated.Permissions[0].Resource != "tasks" {
		t.Errorf("permissions not linked: %+v", updated.Permissions)
	}
}

func TestTaskFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ti := ts.seedWildcardRole(t, "TI")
	ts.seedUser(t, "admin@example.org", "correct horse", ti)
	token := ts.login(t, "admin@example.org", "correct horse")

	rec := ts.do(t, http.MethodPost, "/api/v1/tasks/", token, map[string]interface{}{
		"title": "Prepare camp",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: %d %s", rec.Code, rec.Body.String())
	}
	var task model.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatal(err)
	}
	if task.ID == "" || task.Status != model.TaskOpen {
		t.Fatalf("unexpected task: %+v", task)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/complete", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete task: %d %s", rec.Code, rec.Body.String())
	}
	var done model.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
		t.Fatal(err)
	}
	if done.Status != model.TaskDone {
		t.Errorf("task not done: %q", done.Status)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/tasks/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list tasks: %d", rec.Code)
	}
	var list struct {
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Meta.Count != 1 {
		t.Errorf("expected 1 task, got %d", list.Meta.Count)
	}
}

func TestMatrixExportOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ti := ts.seedWildcardRole(t, "TI")
	ts.seedUser(t, "admin@example.org", "correct horse", ti)
	token := ts.login(t, "admin@example.org", "correct horse")

	rec := ts.do(t, http.MethodGet, "/api/v1/system/matrix", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	var doc rbac.MatrixDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Roles) != 1 || doc.Roles[0].Name != "TI" {
		t.Errorf("unexpected matrix: %+v", doc.Roles)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
