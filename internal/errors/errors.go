package errors

import (
	"errors"
	"fmt"
)

// Common error types for the orders client
var (
	// Session errors
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired")

	// CSRF errors
	ErrCSRFTokenMissing = errors.New("csrf token not received")
	ErrCSRFRejected     = errors.New("csrf token rejected")

	// Input errors
	ErrInvalidID       = errors.New("order id is required")
	ErrInvalidArgument = errors.New("invalid argument")

	// Realtime errors
	ErrNotConnected       = errors.New("realtime channel not connected")
	ErrReconnectExhausted = errors.New("maximum reconnect attempts reached")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}
