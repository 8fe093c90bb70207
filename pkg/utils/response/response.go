// Package response provides the unified API response envelope.
// All HTTP endpoints return this format so clients can rely on a single
// shape for both success and error payloads.
package response

import (
	"net/http"

	"github.com/kart-io/docchat/pkg/errors"
)

// Response is the unified API response envelope.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload (nil for errors)
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`
}

// Success creates a successful response with data.
// The response comes from the pool; callers must Release it after writing.
func Success(data interface{}) *Response {
	r := Acquire()
	r.Code = 0
	r.Message = "success"
	r.Data = data
	return r
}

// SuccessWithMessage creates a successful response with a custom message.
func SuccessWithMessage(message string, data interface{}) *Response {
	r := Acquire()
	r.Code = 0
	r.Message = message
	r.Data = data
	return r
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	r := Acquire()
	r.Code = e.Code
	r.Message = e.Message
	return r
}

// ErrFromError creates an error response from any error, unwrapping the
// errno chain. Errors without an errno map to ErrInternal.
func ErrFromError(err error) *Response {
	return Err(errors.FromError(err))
}

// WithRequestID adds the request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}

// HTTPStatus returns the HTTP status code for this response. Registered
// errnos carry their own status; unregistered codes fall back to their
// category.
func (r *Response) HTTPStatus() int {
	if r.Code == 0 {
		return http.StatusOK
	}

	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}

	_, category, _ := errors.ParseCode(r.Code)
	switch category {
	case errors.CategoryRequest:
		return http.StatusBadRequest
	case errors.CategoryResource:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
