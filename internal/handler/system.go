package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/server/middleware"
	"github.com/orgdesk/orgdesk/internal/service"
	"github.com/orgdesk/orgdesk/internal/store"
)

// SystemHandler serves the administrative API: sessions, the permission
// catalog, roles, users, per-user module overrides, the role matrix, and the
// audit trail.
type SystemHandler struct {
	store   *store.Store
	authSvc *service.AuthService
	matrix  *rbac.Matrix
	audit   *service.AuditLogger
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(st *store.Store, authSvc *service.AuthService, matrix *rbac.Matrix, audit *service.AuditLogger) *SystemHandler {
	return &SystemHandler{store: st, authSvc: authSvc, matrix: matrix, audit: audit}
}

// --- Sessions ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"session_token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Login handles POST /api/v1/session. Bad credentials and unknown accounts
// produce the same response.
func (h *SystemHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, service.ErrAccountDisabled):
			writeError(w, http.StatusUnauthorized, "Account disabled")
		default:
			writeError(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.authSvc.TokenTTL()),
		User:      user,
	})
}

// Me handles GET /api/v1/session: the caller's resolved access context,
// permissions and overrides included. Useful for UIs deciding what to show.
func (h *SystemHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAccessContext(r.Context())
	if ac == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, ac)
}

// --- Permission catalog ---

// ListPermissions handles GET /api/v1/system/permission.
func (h *SystemHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.store.ListPermissions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(perms, len(perms)))
}

// CreatePermission handles POST /api/v1/system/permission.
func (h *SystemHandler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var p model.Permission
	if err := readJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if p.Resource == "" || p.Action == "" {
		writeError(w, http.StatusBadRequest, "Resource and action are required")
		return
	}
	if !model.ValidScope(p.Scope) {
		writeError(w, http.StatusBadRequest, "Unknown scope", map[string]interface{}{"scope": p.Scope})
		return
	}

	if err := h.store.CreatePermission(r.Context(), &p); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, "permissions", "create", strconv.FormatInt(p.ID, 10), nil)
	writeJSON(w, http.StatusCreated, p)
}

// --- Roles ---

// ListRoles handles GET /api/v1/system/role.
func (h *SystemHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(roles, len(roles)))
}

// CreateRole handles POST /api/v1/system/role.
func (h *SystemHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var role model.Role
	if err := readJSON(r, &role); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if role.Name == "" {
		writeError(w, http.StatusBadRequest, "Role name is required")
		return
	}

	if err := h.store.CreateRole(r.Context(), &role); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, "roles", "create", strconv.FormatInt(role.ID, 10), map[string]interface{}{"name": role.Name})
	writeJSON(w, http.StatusCreated, role)
}

// GetRole handles GET /api/v1/system/role/{roleID}.
func (h *SystemHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := roleIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role id")
		return
	}
	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// UpdateRole handles PUT /api/v1/system/role/{roleID}. Permission links are
// managed separately.
func (h *SystemHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := roleIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role id")
		return
	}
	existing, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var role model.Role
	if err := readJSON(r, &role); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	role.ID = id
	// The system flag is not client-settable.
	role.IsSystemRole = existing.IsSystemRole

	if err := h.store.UpdateRole(r.Context(), &role); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, "roles", "update", strconv.FormatInt(id, 10), map[string]interface{}{"name": role.Name})
	writeJSON(w, http.StatusOK, role)
}

// DeleteRole handles DELETE /api/v1/system/role/{roleID}. System roles are
// refused with 409.
func (h *SystemHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := roleIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role id")
		return
	}
	if err := h.store.DeleteRole(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, "roles", "delete", strconv.FormatInt(id, 10), nil)
	w.WriteHeader(http.StatusNoContent)
}

type setRolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

// SetRolePermissions handles PUT /api/v1/system/role/{roleID}/permission,
// replacing the role's permission links wholesale.
func (h *SystemHandler) SetRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := roleIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role id")
		return
	}
	if _, err := h.store.GetRole(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	var req setRolePermissionsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.store.SetRolePermissions(r.Context(), id, req.PermissionIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, "roles", "set_permissions", strconv.FormatInt(id, 10), map[string]interface{}{
		"permission_ids": req.PermissionIDs,
	})

	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// --- Users ---

type createUserRequest struct {
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Password         string  `json:"password"`
	LocalityID       *string `json:"locality_id"`
	SpecialtyID      *string `json:"specialty_id"`
	EloRoleID        *string `json:"elo_role_id"`
	ExecutiveHidePII bool    `json:"executive_hide_pii"`
}

// ListUsers handles GET /api/v1/system/user.
func (h *SystemHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(users, len(users)))
}

// CreateUser handles POST /api/v1/system/user.
func (h *SystemHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	hash, err := service.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := &model.User{
		ID:               uuid.NewString(),
		Name:             req.Name,
		Email:            req.Email,
		PasswordHash:     hash,
		LocalityID:       req.LocalityID,
		SpecialtyID:      req.SpecialtyID,
		EloRoleID:        req.EloRoleID,
		ExecutiveHidePII: req.ExecutiveHidePII,
		IsActive:         true,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, "users", "create", user.ID, map[string]interface{}{"email": user.Email})
	writeJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /api/v1/system/user/{userID}.
func (h *SystemHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type setUserRolesRequest struct {
	RoleIDs []int64 `json:"role_ids"`
}

// SetUserRoles handles PUT /api/v1/system/user/{userID}/role. Slice order is
// the assignment position; the first role is the user's primary role.
func (h *SystemHandler) SetUserRoles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := h.store.GetUser(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	var req setUserRolesRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, rid := range req.RoleIDs {
		if _, err := h.store.GetRole(r.Context(), rid); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Unknown role", map[string]interface{}{"role_id": rid})
				return
			}
			writeServiceError(w, err)
			return
		}
	}

	if err := h.store.SetUserRoles(r.Context(), userID, req.RoleIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, "users", "set_roles", userID, map[string]interface{}{"role_ids": req.RoleIDs})
	w.WriteHeader(http.StatusNoContent)
}

// --- Module overrides ---

// ListOverrides handles GET /api/v1/system/user/{userID}/override.
func (h *SystemHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.store.GetModuleOverridesForUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(overrides, len(overrides)))
}

type setOverrideRequest struct {
	Resource string `json:"resource"`
	Enabled  bool   `json:"enabled"`
}

// SetOverride handles PUT /api/v1/system/user/{userID}/override. Overrides
// only ever deny: a disabled resource is hidden from the user's wildcard
// roles, an enabled row grants nothing extra.
func (h *SystemHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := h.store.GetUser(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	var req setOverrideRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Resource == "" {
		writeError(w, http.StatusBadRequest, "Resource is required")
		return
	}

	override := model.ModuleOverride{UserID: userID, Resource: req.Resource, Enabled: req.Enabled}
	if err := h.store.SetModuleOverride(r.Context(), override); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, "users", "set_override", userID, map[string]interface{}{
		"resource": req.Resource, "enabled": req.Enabled,
	})
	writeJSON(w, http.StatusOK, override)
}

// DeleteOverride handles DELETE /api/v1/system/user/{userID}/override/{resource}.
func (h *SystemHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	resource := chi.URLParam(r, "resource")
	if err := h.store.DeleteModuleOverride(r.Context(), userID, resource); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, "users", "delete_override", userID, map[string]interface{}{"resource": resource})
	w.WriteHeader(http.StatusNoContent)
}

// --- Role matrix ---

// ExportMatrix handles GET /api/v1/system/matrix.
func (h *SystemHandler) ExportMatrix(w http.ResponseWriter, r *http.Request) {
	doc, err := h.matrix.Export(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ImportMatrix handles POST /api/v1/system/matrix?mode=replace|merge.
// Validation is fail-closed: any unknown permission triple rejects the whole
// document with the complete list of offenders.
func (h *SystemHandler) ImportMatrix(w http.ResponseWriter, r *http.Request) {
	mode := rbac.ImportMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = rbac.ModeReplace
	}
	if mode != rbac.ModeReplace && mode != rbac.ModeMerge {
		writeError(w, http.StatusBadRequest, "Unknown import mode", map[string]interface{}{"mode": mode})
		return
	}

	var doc rbac.MatrixDocument
	if err := readJSON(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID := ""
	if ac := middleware.GetAccessContext(r.Context()); ac != nil {
		actorID = ac.UserID
	}
	result, err := h.matrix.Import(r.Context(), &doc, mode, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SimulateUser handles GET /api/v1/system/matrix/simulate/user/{userID}.
func (h *SystemHandler) SimulateUser(w http.ResponseWriter, r *http.Request) {
	result, err := h.matrix.SimulateUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SimulateRole handles GET /api/v1/system/matrix/simulate/role/{roleID}.
func (h *SystemHandler) SimulateRole(w http.ResponseWriter, r *http.Request) {
	id, err := roleIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role id")
		return
	}
	result, err := h.matrix.SimulateRole(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Audit trail ---

// ListAuditEvents handles GET /api/v1/system/audit?limit=N.
func (h *SystemHandler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListAuditEvents(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(events, len(events)))
}

func (h *SystemHandler) recordAudit(r *http.Request, resource, action, entityID string, diff map[string]interface{}) {
	actorID := ""
	if ac := middleware.GetAccessContext(r.Context()); ac != nil {
		actorID = ac.UserID
	}
	h.audit.Record(actorID, resource, action, entityID, diff)
}

func roleIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
}
