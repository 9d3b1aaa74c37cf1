// Package businessflow contains the backup assignment use cases: per-tenant allocation,
// the coordinating run and the orphaned-reservation sweep
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Run coordination errors
	ErrRunLocked   = errors.New("another backup run is in progress")
	ErrLockNotHeld = errors.New("run lock is not held")

	// Tenant errors
	ErrTenantIDRequired = errors.New("tenant id is required")

	// Allocation errors
	ErrInvalidPNCount = errors.New("numbers per pilot must be positive")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsRunLocked(err error) bool {
	return errors.Is(err, ErrRunLocked)
}

func IsTenantIDRequired(err error) bool {
	return errors.Is(err, ErrTenantIDRequired)
}

// ErrorCode returns the code of the outermost BusinessError in err's chain
func ErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
