package types

import "fmt"

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeIntegrity      ErrorType = "integrity"
	ErrorTypeExternal       ErrorType = "external"
	ErrorTypeInternal       ErrorType = "internal"
)

// CareLogError represents a structured error in the CareLog system
type CareLogError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *CareLogError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *CareLogError) Unwrap() error {
	return e.Cause
}

// Is matches errors by type and code so callers can use errors.Is with a
// template error.
func (e *CareLogError) Is(target error) bool {
	t, ok := target.(*CareLogError)
	if !ok {
		return false
	}
	return e.Type == t.Type && (t.Code == "" || e.Code == t.Code)
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string) *CareLogError {
	return &CareLogError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *CareLogError {
	return &CareLogError{Type: ErrorTypeNotFound, Code: code, Message: message}
}

// NewIntegrityError creates a new integrity error. Raised when ciphertext is
// unreadable or a stored record is missing required credential material.
func NewIntegrityError(code, message string, cause error) *CareLogError {
	return &CareLogError{Type: ErrorTypeIntegrity, Code: code, Message: message, Cause: cause}
}

// NewExternalError creates a new external service error
func NewExternalError(code, message string, cause error) *CareLogError {
	return &CareLogError{Type: ErrorTypeExternal, Code: code, Message: message, Cause: cause}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *CareLogError {
	return &CareLogError{Type: ErrorTypeInternal, Code: code, Message: message, Cause: cause}
}

// Common error codes
const (
	ErrCodeIntegrity      = "INTEGRITY_FAILURE"
	ErrCodeMissingSalt    = "MISSING_SALT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeExternalError  = "EXTERNAL_ERROR"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeFeedbackAbsent = "FEEDBACK_ABSENT"
)

// IsIntegrityError reports whether err is an integrity-class error.
func IsIntegrityError(err error) bool {
	e, ok := err.(*CareLogError)
	return ok && e.Type == ErrorTypeIntegrity
}
