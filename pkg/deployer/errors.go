package deployer

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a deployment error for retry and reporting logic.
type ErrorClass string

const (
	// ErrorClassNotFound indicates the target resource does not exist.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassTransient indicates a temporary platform failure that may
	// succeed on retry.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassSSL indicates a TLS negotiation or certificate failure.
	// Schedule creation retries exactly this class.
	ErrorClassSSL ErrorClass = "ssl"

	// ErrorClassExhausted indicates a polling loop ran out of budget before
	// the remote resource reached its target state.
	ErrorClassExhausted ErrorClass = "exhausted"

	// ErrorClassInvariant indicates the remote reported a state this
	// adapter has no mapping for. Never retried.
	ErrorClassInvariant ErrorClass = "invariant"

	// ErrorClassInvalidInput indicates the caller's request was rejected
	// before any remote call.
	ErrorClassInvalidInput ErrorClass = "invalid_input"
)

// Error is a classified deployment error.
type Error struct {
	// Class drives retry and reporting decisions.
	Class ErrorClass `json:"class"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Resource names the deployment, task, or schedule involved.
	Resource string `json:"resource,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Resource != "" {
		msg = fmt.Sprintf("[%s] %s (resource=%s)", e.Class, e.Message, e.Resource)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithResource adds resource context to an error.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(message string, err error) *Error {
	return &Error{Class: ErrorClassNotFound, Message: message, Err: err}
}

// NewTransientError creates a transient error.
func NewTransientError(message string, err error) *Error {
	return &Error{Class: ErrorClassTransient, Message: message, Err: err}
}

// NewSSLError creates an SSL error.
func NewSSLError(message string, err error) *Error {
	return &Error{Class: ErrorClassSSL, Message: message, Err: err}
}

// NewExhaustedError creates a polling-exhausted error.
func NewExhaustedError(message string, err error) *Error {
	return &Error{Class: ErrorClassExhausted, Message: message, Err: err}
}

// NewInvariantError creates an invariant-violation error.
func NewInvariantError(message string, err error) *Error {
	return &Error{Class: ErrorClassInvariant, Message: message, Err: err}
}

// NewInvalidInputError creates an invalid-input error.
func NewInvalidInputError(message string, err error) *Error {
	return &Error{Class: ErrorClassInvalidInput, Message: message, Err: err}
}

// IsNotFound returns true if err is classified not-found.
func IsNotFound(err error) bool { return hasClass(err, ErrorClassNotFound) }

// IsTransient returns true if err is classified transient.
func IsTransient(err error) bool { return hasClass(err, ErrorClassTransient) }

// IsSSL returns true if err is classified as an SSL failure.
func IsSSL(err error) bool { return hasClass(err, ErrorClassSSL) }

// IsExhausted returns true if err is classified as polling exhaustion.
func IsExhausted(err error) bool { return hasClass(err, ErrorClassExhausted) }

// IsInvariant returns true if err is classified as an invariant violation.
func IsInvariant(err error) bool { return hasClass(err, ErrorClassInvariant) }

// IsInvalidInput returns true if err is classified as invalid input.
func IsInvalidInput(err error) bool { return hasClass(err, ErrorClassInvalidInput) }

func hasClass(err error, class ErrorClass) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}
