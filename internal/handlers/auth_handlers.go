package handlers

import (
	"net/http"
	"time"

	"teamTracker/internal/handlers/dto"
	"teamTracker/internal/logger"
	"teamTracker/internal/middleware"

	"go.uber.org/zap"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.CredentialsRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	session, err := h.Users.Register(r.Context(), request.Email, request.Password)
	if err != nil {
		handleBusinessError(w, r, err, "register")
		return
	}

	logOut("User registered", start, http.StatusCreated,
		zap.String("uid", session.Principal.UID),
		zap.String("role", string(session.Principal.Role)))
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.CredentialsRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	session, err := h.Users.SignIn(r.Context(), request.Email, request.Password)
	if err != nil {
		handleBusinessError(w, r, err, "login")
		return
	}

	logOut("User signed in", start, http.StatusOK, zap.String("uid", session.Principal.UID))
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p := middleware.PrincipalFromContext(r.Context())

	if err := h.Users.SignOut(r.Context(), p); err != nil {
		handleBusinessError(w, r, err, "logout")
		return
	}

	logOut("User signed out", start, http.StatusNoContent, zap.String("uid", p.UID))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller as the server sees them.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.PrincipalFromContext(r.Context()))
}

// RefreshMe drops the cached role and reads it from storage again.
func (h *Handler) RefreshMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if p.UID == "" {
		responseWithError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, h.Resolver.Refresh(r.Context(), p.UID, p.Email))
}
