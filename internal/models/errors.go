package models

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds shared across the service. Handlers map these to HTTP
// outcomes; everything else checks them with errors.Is.
var (
	ErrNotAuthenticated = errors.New("authentication required")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("invalid input")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrConflict         = errors.New("conflict")
)

// ValidationError carries a per-field message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports whether the target matches ErrValidation.
func (e *ValidationError) Is(err error) bool {
	return err == ErrValidation
}

// Invalid returns a ValidationError for the given field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// RateLimitError reports how long the caller must wait before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(err error) bool {
	return err == ErrRateLimited
}

// NotFoundError names the entity that was looked up.
type NotFoundError struct {
	Label string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Label)
}

func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}
