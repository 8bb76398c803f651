package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Status classifies the outcome of a parse, statement or batch
type Status int

const (
	StatusOK Status = iota
	StatusNoContent
	StatusBadRequest
	StatusNotFound
	StatusConflict
	StatusInternalServerError
)

var statusNames = map[Status]string{
	StatusOK:                  "OK",
	StatusNoContent:           "NoContent",
	StatusBadRequest:          "BadRequest",
	StatusNotFound:            "NotFound",
	StatusConflict:            "Conflict",
	StatusInternalServerError: "InternalServerError",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// HTTPStatus maps the status onto an HTTP response code
func (s Status) HTTPStatus() int {
	switch s {
	case StatusOK:
		return http.StatusOK
	case StatusNoContent:
		return http.StatusNoContent
	case StatusBadRequest:
		return http.StatusBadRequest
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MarshalText encodes the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Error is returned for every user-facing failure of the engine
type Error struct {
	Status  Status
	Message string
	Cause   error
}

// Errorf creates an Error with a formatted message
func Errorf(status Status, format string, args ...interface{}) *Error {
	return &Error{
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause attaches an underlying error
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// StatusOf returns the status carried by err. Errors that do not carry one
// map to StatusInternalServerError; a nil error is StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusInternalServerError
}

// ErrEmptyCommand is returned when a command batch holds no statements
var ErrEmptyCommand = &Error{Status: StatusBadRequest, Message: "empty command"}

// ErrInvalidEdgeKey is returned when an edge key cannot be generated
type ErrInvalidEdgeKey struct {
	Key string
}

func (e ErrInvalidEdgeKey) Error() string {
	return fmt.Sprintf("invalid edge key: %q", e.Key)
}
