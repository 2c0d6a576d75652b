package services

import (
	"errors"
	"fmt"

	"github.com/sfall/freelance-office/internal/validation"
)

// Sentinel errors for lookup and token lifecycle failures. All of these are
// expected conditions handled at the HTTP edge; none should crash the process.
var (
	ErrNotFound    = errors.New("not_found")
	ErrExpired     = errors.New("token_expired")
	ErrAlreadyUsed = errors.New("token_already_used")
	ErrConflict    = errors.New("conflict")
)

// ValidationError carries per-field violations for the caller to render.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string { return "validation_failed" }

// NewValidationError wraps a non-empty violations map.
func NewValidationError(v validation.Violations) *ValidationError {
	return &ValidationError{Violations: v}
}

// InvalidTransitionError reports an illegal quote status change.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: %s -> %s", e.From, e.To)
}

// IneligibleStateError reports an operation attempted on a quote whose
// current status does not allow it (e.g. converting a non-accepted quote).
type IneligibleStateError struct {
	Status string
}

func (e *IneligibleStateError) Error() string {
	return fmt.Sprintf("ineligible_state: %s", e.Status)
}

// DeliveryError wraps a mail transport failure. The primary operation it was
// attached to is not rolled back unless sending was the whole point.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return fmt.Sprintf("delivery_failed: %v", e.Err) }
func (e *DeliveryError) Unwrap() error { return e.Err }
