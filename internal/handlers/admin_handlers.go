package handlers

import (
	"net/http"
	"time"

	"teamTracker/internal/handlers/dto"
	"teamTracker/internal/logger"
	"teamTracker/internal/middleware"
	"teamTracker/internal/models/user"

	"go.uber.org/zap"
)

func (h *Handler) ListAllTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	views, err := h.Tasks.ListAllTasksWithCreatorInfo(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		handleBusinessError(w, r, err, "list_all_tasks")
		return
	}

	logOut("All tasks listed", start, http.StatusOK, zap.Int("count", len(views)))
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListUsers(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		handleBusinessError(w, r, err, "list_users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.SetRoleRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	role, ok := user.ParseRole(request.Role)
	if !ok {
		logger.Warn("HTTP: Validation failed",
			zap.String("field", "role"),
			zap.String("value", request.Role),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "role must be user or admin")
		return
	}

	updated, err := h.Users.SetRole(r.Context(), middleware.PrincipalFromContext(r.Context()), id, role)
	if err != nil {
		handleBusinessError(w, r, err, "set_role")
		return
	}

	logOut("Role changed", start, http.StatusOK, zap.String("uid", id), zap.String("role", string(role)))
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Users.DeleteUser(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
		handleBusinessError(w, r, err, "delete_user")
		return
	}

	logOut("User deleted", start, http.StatusNoContent, zap.String("uid", id))
	w.WriteHeader(http.StatusNoContent)
}
