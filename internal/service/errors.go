package service

import (
	"context"
	"errors"
	"fmt"

	"teamTracker/internal/auth"
	repo "teamTracker/internal/repository"
)

const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeAuthorization = "AUTHORIZATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeUpstream      = "UPSTREAM_ERROR"
)

// Failure kinds carried in Details["kind"] of an upstream error.
const (
	KindInvalidCredentials = "invalid-credentials"
	KindAlreadyExists      = "already-exists"
	KindWeakCredential     = "weak-credential"
	KindRateLimited        = "rate-limited"
	KindNetworkUnavailable = "network-unavailable"
	KindUnavailable        = "unavailable"
	KindPermissionDenied   = "permission-denied"
	KindUnknown            = "unknown"
)

type Resource string

const (
	ResourceTask    Resource = "task"
	ResourceProject Resource = "project"
	ResourceUser    Resource = "user"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

// Kind returns Details["kind"] or "" when the error carries none.
func (b *BusinessError) Kind() string {
	kind, _ := b.Details["kind"].(string)
	return kind
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource Resource, id string) *BusinessError {
	return NewBusinessError(CodeNotFound,
		fmt.Sprintf("%s %s not found", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation,
		fmt.Sprintf("invalid value for '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason),
	)
}

func NewAuthorizationError(action string) *BusinessError {
	return NewBusinessError(CodeAuthorization,
		fmt.Sprintf("not allowed to %s", action),
		ToDetail("action", action),
	)
}

func NewUpstreamError(kind, op string, err error) *BusinessError {
	busErr := NewBusinessError(CodeUpstream,
		fmt.Sprintf("%s failed", op),
		ToDetail("kind", kind),
		ToDetail("op", op),
	)
	busErr.Err = err
	return busErr
}

// IsCode reports whether err is a BusinessError with the given code.
func IsCode(err error, code string) bool {
	var be *BusinessError
	return errors.As(err, &be) && be.Code == code
}

// fromStore converts a storage error. A missing record becomes NOT_FOUND
// for the given resource; everything else is an upstream failure.
func fromStore(op string, resource Resource, id string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound(resource, id)
	}
	return NewUpstreamError(storeKind(err), op, err)
}

func storeKind(err error) string {
	switch {
	case errors.Is(err, repo.ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, repo.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	case errors.Is(err, repo.ErrPermissionDenied):
		return KindPermissionDenied
	}
	return KindUnknown
}

func fromAuth(op string, err error) error {
	return NewUpstreamError(authKind(err), op, err)
}

func authKind(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, auth.ErrAccountExists):
		return KindAlreadyExists
	case errors.Is(err, auth.ErrWeakCredential):
		return KindWeakCredential
	case errors.Is(err, auth.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, auth.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindNetworkUnavailable
	}
	return KindUnknown
}
