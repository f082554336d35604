package handlers

import (
	"net/http"
	"time"

	"teamTracker/internal/handlers/dto"
	"teamTracker/internal/logger"
	"teamTracker/internal/middleware"

	"go.uber.org/zap"
)

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	found, err := h.Tasks.GetTask(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		handleBusinessError(w, r, err, "get_task")
		return
	}

	logOut("Task fetched", start, http.StatusOK, zap.String("task_id", id))
	writeJSON(w, http.StatusOK, dto.FromTask(found))
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.Tasks.UpdateTask(r.Context(), middleware.PrincipalFromContext(r.Context()), id, request.Options()...)
	if err != nil {
		handleBusinessError(w, r, err, "update_task")
		return
	}

	logOut("Task updated", start, http.StatusOK, zap.String("task_id", id))
	writeJSON(w, http.StatusOK, dto.FromTask(updated))
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Tasks.DeleteTask(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
		handleBusinessError(w, r, err, "delete_task")
		return
	}

	logOut("Task deleted", start, http.StatusNoContent, zap.String("task_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ReassignTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.ReassignTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.Tasks.ReassignTask(r.Context(), middleware.PrincipalFromContext(r.Context()), id, request.UserID)
	if err != nil {
		handleBusinessError(w, r, err, "reassign_task")
		return
	}

	logOut("Task reassigned", start, http.StatusOK,
		zap.String("task_id", id),
		zap.String("to", updated.CreatedBy))
	writeJSON(w, http.StatusOK, dto.FromTask(updated))
}
