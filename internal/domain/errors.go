package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when the actor may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrNoTenant is returned when a tenant-scoped action is attempted by a profile without an agency.
	ErrNoTenant = errors.New("profile is not associated with an agency")
	// ErrTenantInactive rejects sessions of non-SuperAdmin profiles whose agency is suspended.
	ErrTenantInactive = errors.New("agency is inactive")
	// ErrUnknownRole is returned when a stored or submitted role string is not recognised.
	ErrUnknownRole = errors.New("unknown role")
	// ErrUnavailable is returned when an operation needs a collaborator that is not configured.
	ErrUnavailable = errors.New("not available")
)

// ValidationError carries field-keyed messages for a rejected payload.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message against a field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DispatchErrorKind classifies an outbound delivery failure.
type DispatchErrorKind int

const (
	// RemoteRejected means the receiver answered with a non-2xx status.
	RemoteRejected DispatchErrorKind = iota + 1
	// Unreachable means the request never produced an HTTP response.
	Unreachable
)

func (k DispatchErrorKind) String() string {
	switch k {
	case RemoteRejected:
		return "remote_rejected"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// DispatchError is the failure result of an outbound webhook delivery.
type DispatchError struct {
	Kind   DispatchErrorKind
	Status int
	Err    error
}

func (e *DispatchError) Error() string {
	if e.Kind == RemoteRejected {
		return fmt.Sprintf("webhook receiver rejected notification with status %d", e.Status)
	}
	if e.Err != nil {
		return "webhook receiver unreachable: " + e.Err.Error()
	}
	return "webhook receiver unreachable"
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Retryable reports whether a later attempt could plausibly succeed.
func (e *DispatchError) Retryable() bool {
	if e.Kind == Unreachable {
		return true
	}
	return e.Status == 429 || e.Status >= 500
}
