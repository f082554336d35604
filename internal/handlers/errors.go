package handlers

import (
	"errors"
	"net/http"

	"teamTracker/internal/logger"
	"teamTracker/internal/service"

	"go.uber.org/zap"
)

// handleBusinessError writes err as a JSON error response. Anything that is
// not a BusinessError is reported as an internal error without its text.
func handleBusinessError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		logger.FromContext(r.Context()).Error("HTTP: Unexpected service error",
			zap.String("operation", operation),
			zap.Error(err))
		responseWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	statusCode := mapBusinessErrorToHTTP(businessErr)
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode),
	}
	log := logger.FromContext(r.Context())
	if statusCode >= http.StatusInternalServerError {
		log.Error("HTTP: Business error", append(fields, zap.Error(businessErr.Err))...)
	} else {
		log.Warn("HTTP: Business error", fields...)
	}

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
}

func mapBusinessErrorToHTTP(err *service.BusinessError) int {
	switch err.Code {
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeAuthorization:
		return http.StatusForbidden
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeUpstream:
		return mapUpstreamKindToHTTP(err.Kind())
	default:
		return http.StatusInternalServerError
	}
}

func mapUpstreamKindToHTTP(kind string) int {
	switch kind {
	case service.KindInvalidCredentials:
		return http.StatusUnauthorized
	case service.KindAlreadyExists:
		return http.StatusConflict
	case service.KindWeakCredential:
		return http.StatusBadRequest
	case service.KindRateLimited:
		return http.StatusTooManyRequests
	case service.KindUnavailable, service.KindNetworkUnavailable:
		return http.StatusServiceUnavailable
	case service.KindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}
