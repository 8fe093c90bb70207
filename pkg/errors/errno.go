// Package errors provides the structured error code system used across docchat.
//
// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Service/Module code - identifies the source service
//	BB  (00-99): Category code - identifies the error category
//	CCC (000-999): Sequence number - specific error within the category
//
// Service Codes (AA):
//
//	00: Common/Base errors (shared)
//	10-19: Infrastructure errors (DB, cache)
//	30: docchat service errors
//	90-99: Third-party/upstream service errors
//
// Category Codes (BB):
//
//	00: Success
//	01: Request/Validation errors (400)
//	04: Resource not found errors (404)
//	05: Conflict errors (409)
//	07: Internal errors (500)
//	08: Database errors (500)
//	09: Cache errors (500)
//	10: Network errors (502/503)
//	11: Timeout errors (504)
//	12: Configuration errors (500)
//
// Usage:
//
//	// Using predefined errors
//	return errors.ErrInvalidParam.WithMessage("message is required")
//
//	// Wrapping underlying errors
//	return errors.ErrDatabase.WithCause(err)
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
)

// Errno represents a structured error with a stable code and message.
type Errno struct {
	// Code is the unique error code.
	Code int `json:"code"`

	// HTTP is the HTTP status code to return.
	HTTP int `json:"-"`

	// Message is the user-facing error message.
	Message string `json:"message"`

	// cause is the underlying error.
	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// WithCause creates a new Errno with the given cause.
func (e *Errno) WithCause(cause error) *Errno {
	return &Errno{
		Code:    e.Code,
		HTTP:    e.HTTP,
		Message: e.Message,
		cause:   cause,
	}
}

// WithMessage creates a new Errno with a custom message.
func (e *Errno) WithMessage(msg string) *Errno {
	return &Errno{
		Code:    e.Code,
		HTTP:    e.HTTP,
		Message: msg,
		cause:   e.cause,
	}
}

// WithMessagef creates a new Errno with a formatted message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	return &Errno{
		Code:    e.Code,
		HTTP:    e.HTTP,
		Message: fmt.Sprintf(format, args...),
		cause:   e.cause,
	}
}

// HTTPStatus returns the HTTP status code.
func (e *Errno) HTTPStatus() int {
	if e.HTTP != 0 {
		return e.HTTP
	}
	return http.StatusInternalServerError
}

// Is checks if this error matches the target error code.
func (e *Errno) Is(target error) bool {
	if t, ok := target.(*Errno); ok {
		return e.Code == t.Code
	}
	return false
}

// Format implements fmt.Formatter for better error formatting.
func (e *Errno) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "errno %d [HTTP %d]: %s", e.Code, e.HTTP, e.Message)
			if e.cause != nil {
				_, _ = fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// errnoRegistry stores all registered error codes for uniqueness validation.
var (
	errnoRegistry = make(map[int]*Errno)
	registryMu    sync.RWMutex
)

// Register registers an Errno and validates uniqueness.
// Panics if the code is already registered.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := errnoRegistry[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.Message))
	}
	errnoRegistry[e.Code] = e
	return e
}

// Lookup returns the registered Errno for the given code.
func Lookup(code int) (*Errno, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := errnoRegistry[code]
	return e, ok
}

// RegistrySize returns the number of registered error codes.
func RegistrySize() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(errnoRegistry)
}

// New creates a new Errno with the given parameters.
func New(code, httpStatus int, message string) *Errno {
	return &Errno{
		Code:    code,
		HTTP:    httpStatus,
		Message: message,
	}
}

// FromError converts any error to an Errno, unwrapping as needed.
// Errors with no Errno in their chain are wrapped as ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if stderrors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}

// IsCode checks if the error chain carries the given error code.
func IsCode(err error, code int) bool {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the error code from an error chain, or -1 when no Errno is
// present.
func GetCode(err error) int {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Code
	}
	return -1
}

// MakeCode creates an error code from service, category, and sequence.
// Format: AABBCCC where AA=service, BB=category, CCC=sequence.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode parses an error code into service, category, and sequence.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code % 100000) / 1000
	sequence = code % 1000
	return
}
