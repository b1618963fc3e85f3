package heuristic

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an engine error for handling policy.
type ErrorClass string

const (
	// ErrorClassConfig indicates invalid engine or oracle configuration.
	// Config errors surface on the first Compute call at the latest.
	ErrorClassConfig ErrorClass = "config"

	// ErrorClassOracle indicates an unrecoverable oracle-path failure.
	// Recoverable oracle failures degrade inside the bridge and never
	// produce an error here.
	ErrorClassOracle ErrorClass = "oracle"

	// ErrorClassInternal indicates a consistency violation inside the
	// engine, such as a preferred operator that is not applicable.
	// Internal errors are bugs and must never be downgraded.
	ErrorClassInternal ErrorClass = "internal"
)

// EngineError is a classified error with engine context.
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Operator is the operator name involved, if any.
	Operator string `json:"operator,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Operator != "" {
		msg = fmt.Sprintf("%s (operator=%s)", msg, e.Operator)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassConfig, Message: message, Err: err}
}

// NewOracleError creates an oracle-path error.
func NewOracleError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassOracle, Message: message, Err: err}
}

// NewInternalError creates an internal-consistency error.
func NewInternalError(message string) *EngineError {
	return &EngineError{Class: ErrorClassInternal, Message: message}
}

// WithOperator adds operator context to an error.
func (e *EngineError) WithOperator(name string) *EngineError {
	e.Operator = name
	return e
}

// IsConfig reports whether the error is a configuration error.
func IsConfig(err error) bool {
	var e *EngineError
	return errors.As(err, &e) && e.Class == ErrorClassConfig
}

// IsOracle reports whether the error is an oracle-path error.
func IsOracle(err error) bool {
	var e *EngineError
	return errors.As(err, &e) && e.Class == ErrorClassOracle
}

// IsInternal reports whether the error is an internal-consistency error.
func IsInternal(err error) bool {
	var e *EngineError
	return errors.As(err, &e) && e.Class == ErrorClassInternal
}
