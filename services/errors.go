package services

import (
	"errors"
	"fmt"

	"github.com/LovationAdmin/family-budget-api/store"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTOTPRequired       = errors.New("two-factor code required")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// ValidationError reports a rejected field. It matches ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// storeErr translates storage sentinels, wrapping anything else with op.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrDuplicate):
		return ErrConflict
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
