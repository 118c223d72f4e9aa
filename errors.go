package costledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput  = errors.New("costledger: invalid input")
	ErrAlreadyExists = errors.New("costledger: already exists")

	// Validation errors, surfaced before any write is attempted.
	ErrInvalidAmount = errors.New("costledger: amount must be positive")
	ErrDuplicateName = errors.New("costledger: folder name already in use")

	// Not-found errors
	ErrFolderNotFound      = errors.New("costledger: folder not found")
	ErrRecordNotFound      = errors.New("costledger: record not found")
	ErrTransactionNotFound = errors.New("costledger: transaction not found")

	// Store errors
	ErrStoreUnavailable       = errors.New("costledger: store unavailable")
	ErrConcurrentModification = errors.New("costledger: record modified concurrently")
	ErrStoreClosed            = errors.New("costledger: store is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("costledger: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFolderNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried. Only reads are safe to retry blindly; a mutating operation
// must be retried with the same pre-allocated transaction id.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsValidation returns true if the error was raised by input validation,
// before any write was attempted.
func IsValidation(err error) bool {
	if errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrDuplicateName) || errors.Is(err, ErrInvalidInput) {
		return true
	}
	var ve ValidationError
	return errors.As(err, &ve)
}
