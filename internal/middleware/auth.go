package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"teamTracker/internal/auth"
	"teamTracker/internal/logger"
	"teamTracker/internal/models/user"

	"go.uber.org/zap"
)

const principalKey contextKey = "principal"

// PrincipalResolver maps a verified account onto its current role.
type PrincipalResolver interface {
	Resolve(ctx context.Context, uid, email string) user.Principal
}

func WithPrincipal(ctx context.Context, p user.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller set by Authenticate, or the
// anonymous principal.
func PrincipalFromContext(ctx context.Context) user.Principal {
	p, _ := ctx.Value(principalKey).(user.Principal)
	return p
}

// Authenticate requires a bearer ID token, verifies it and stores the
// resolved principal in the request context.
func Authenticate(verifier auth.TokenVerifier, resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}

			acct, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrUnavailable) {
					logger.FromContext(r.Context()).Error("Auth: Token verification unavailable", zap.Error(err))
					unauthorized(w, r, http.StatusServiceUnavailable, "identity provider unavailable")
					return
				}
				logger.FromContext(r.Context()).Warn("Auth: Token rejected", zap.Error(err))
				unauthorized(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			p := resolver.Resolve(r.Context(), acct.UID, acct.Email)
			noteCaller(r.Context(), p.UID, string(p.Role))
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="teamTracker"`)
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      message,
		"request_id": GetRequestID(r.Context()),
	})
}
