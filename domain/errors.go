package domain

import (
	"errors"
	"fmt"
)

// Error classes shared by the repository, the sale coordinator and the API layer.
// Callers match them with errors.Is; the wrapped message carries the detail.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("concurrent update conflict")
	ErrTimeout           = errors.New("timed out")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Invalidf returns an ErrValidation carrying a formatted reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound carrying a formatted reason.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
