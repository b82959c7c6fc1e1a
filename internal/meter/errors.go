package meter

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed input rejected before it reaches
	// the usage engine.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing reading.
	ErrNotFound = errors.New("reading not found")
	// ErrDuplicateReading signals that a reading already exists for the
	// same user, calendar day and period.
	ErrDuplicateReading = errors.New("duplicate reading for day and period")
	// ErrUpstream signals a storage or AI collaborator failure. Retryable.
	ErrUpstream = errors.New("upstream unavailable")
)

// ConflictError wraps ErrDuplicateReading with the reading currently
// occupying the (day, period) slot, so callers can offer a keep-or-overwrite
// decision to the user.
type ConflictError struct {
	Existing *Reading
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s %s already recorded",
		ErrDuplicateReading.Error(), e.Existing.LocalDate, e.Existing.Period)
}

func (e *ConflictError) Unwrap() error { return ErrDuplicateReading }

// NewConflict creates a conflict error for an occupied slot.
func NewConflict(existing *Reading) error {
	return &ConflictError{Existing: existing}
}

// Upstream wraps a collaborator failure so transport can map it to a
// retryable status while keeping the cause in the chain.
func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUpstream, err))
}
