// Package repository holds the storage failure kinds shared by every backend.
package repository

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyExists    = errors.New("record already exists")
	ErrUnavailable      = errors.New("storage unavailable")
	ErrPermissionDenied = errors.New("storage permission denied")
)
