package models

import (
	"context"
	"errors"
	"fmt"
)

// Lifecycle error kinds. Each maps to a distinct caller-visible failure.
var (
	ErrNotFound             = errors.New("not found")
	ErrSelfPurchase         = errors.New("cannot request to buy your own listing")
	ErrNotAvailable         = errors.New("listing is not available for purchase")
	ErrDuplicateTransaction = errors.New("listing already has a transaction")
	ErrForbidden            = errors.New("only the seller can perform this action")
	ErrInvalidState         = errors.New("invalid state transition")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrValidation           = errors.New("validation failed")
)

// NewError wraps kind with a formatted detail message
func NewError(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// ErrorCode returns the stable code for an error kind, used by the API and metrics
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrSelfPurchase):
		return "SELF_PURCHASE"
	case errors.Is(err, ErrNotAvailable):
		return "NOT_AVAILABLE"
	case errors.Is(err, ErrDuplicateTransaction):
		return "DUPLICATE_TRANSACTION"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrInvalidStatus):
		return "INVALID_STATUS"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	default:
		return "INTERNAL_ERROR"
	}
}
