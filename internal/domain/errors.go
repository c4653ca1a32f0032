package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for different failure scenarios. Only CodeRuleStoreLoad is
// unrecoverable; everything else degrades so a caller still receives a
// best-effort result, because refusing to answer is clinically worse than
// answering with caveats.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeRuleStoreLoad      = "RULESET_LOAD_ERROR"
	CodeTerminologyTimeout = "TERMINOLOGY_TIMEOUT"
	CodeTerminologyError   = "TERMINOLOGY_ERROR"
	CodeHistoryError       = "HISTORY_ERROR"
	CodeInternalServer     = "INTERNAL_SERVER_ERROR"
)

// EngineError represents a standardized engine error response.
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// IsInvalidInput reports whether err rejects the caller's input rather than
// signalling an engine failure.
func IsInvalidInput(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var ee *EngineError
	return errors.As(err, &ee) && ee.Code == CodeInvalidInput
}
