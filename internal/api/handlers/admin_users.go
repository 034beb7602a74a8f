package handlers

import (
	"net/http"
	"strings"

	"github.com/Togather-Foundation/confdir/internal/api/middleware"
	"github.com/Togather-Foundation/confdir/internal/api/problem"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
	"github.com/Togather-Foundation/confdir/internal/validation"
)

// AdminUsersHandler manages admin accounts. Routes are restricted to the
// Admin role.
type AdminUsersHandler struct {
	Users *users.Service
	Env   string
}

func NewAdminUsersHandler(userService *users.Service, env string) *AdminUsersHandler {
	return &AdminUsersHandler{Users: userService, Env: env}
}

// List handles GET /api/v1/admin/users?role=&status=.
func (h *AdminUsersHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := users.Filters{
		Role:   users.Role(strings.TrimSpace(query.Get("role"))),
		Status: users.Status(strings.TrimSpace(query.Get("status"))),
	}
	switch filters.Role {
	case "", users.RoleAdmin, users.RoleEditor, users.RoleViewer:
	default:
		writeServiceError(w, r, validation.Error{Field: "role", Message: "must be one of: Admin, Editor, Viewer"}, h.Env)
		return
	}
	switch filters.Status {
	case "", users.StatusActive, users.StatusInactive, users.StatusInvited:
	default:
		writeServiceError(w, r, validation.Error{Field: "status", Message: "must be one of: Active, Inactive, Invited"}, h.Env)
		return
	}

	items, err := h.Users.List(r.Context(), filters)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	out := make([]userResponse, 0, len(items))
	for _, u := range items {
		out = append(out, newUserResponse(u))
	}
	writeJSON(w, http.StatusOK, listResponse[userResponse]{Items: out})
}

func (h *AdminUsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(*user))
}

func (h *AdminUsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input users.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	created, err := h.Users.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAdminAction(r, "admin.user.create", "user", created.ID, nil)
	writeJSON(w, http.StatusCreated, newUserResponse(*created))
}

func (h *AdminUsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch users.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	updated, err := h.Users.Update(r.Context(), pathParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAdminAction(r, "admin.user.update", "user", updated.ID, nil)
	writeJSON(w, http.StatusOK, newUserResponse(*updated))
}

// Delete handles DELETE /api/v1/admin/users/{id}. Admins cannot delete their
// own account.
func (h *AdminUsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if principal := middleware.AdminPrincipal(r); principal != nil && strings.EqualFold(principal.ID, id) {
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Cannot delete your own account", problem.ErrConflict, h.Env)
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAdminAction(r, "admin.user.delete", "user", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
