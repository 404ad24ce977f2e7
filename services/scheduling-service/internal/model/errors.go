package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidInput          = errors.New("invalid input")
	ErrScheduleNotConfigured = errors.New("schedule not configured")
	ErrDoctorNotFound        = errors.New("doctor not found")
	ErrSlotUnavailable       = errors.New("slot unavailable")
	ErrNotFound              = errors.New("not found")
	ErrPersistence           = errors.New("persistence error")
	ErrNotification          = errors.New("notification error")
)

// ValidationError names the offending field. errors.Is(err, ErrInvalidInput) holds.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Persistence wraps a storage failure so callers can classify it without seeing the driver.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrPersistence, err))
}
