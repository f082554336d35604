// Package handlers exposes the tracker services over JSON/HTTP. Handlers
// only decode input, take the caller from the request context and map
// service errors onto status codes; every access decision is made by the
// services.
package handlers

import (
	"net/http"
	"time"

	"teamTracker/internal/logger"

	"go.uber.org/zap"
)

type Handler struct {
	Tasks    TaskService
	Projects ProjectService
	Users    UserService
	Resolver PrincipalRefresher
	Health   HealthChecker
}

func New(tasks TaskService, projects ProjectService, users UserService, resolver PrincipalRefresher, health HealthChecker) *Handler {
	return &Handler{
		Tasks:    tasks,
		Projects: projects,
		Users:    users,
		Resolver: resolver,
		Health:   health,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.Health.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Health check failed", err, zap.Duration("ms", time.Since(start)))
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("error", err.Error()))
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}

func logOut(msg string, start time.Time, status int, fields ...zap.Field) {
	fields = append(fields,
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", status))
	logger.Info("HTTP_OUT: "+msg, fields...)
}
