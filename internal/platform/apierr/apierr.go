package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes for the cart failure taxonomy. Adapters return these as typed
// outcomes; handlers map Status onto the HTTP response.
const (
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeTransient    = "transient"
	CodePartialMerge = "partial_merge"
	CodeInvalid      = "invalid"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Conflict(err error) *Error {
	return New(http.StatusConflict, CodeConflict, err)
}

func Transient(err error) *Error {
	return New(http.StatusBadGateway, CodeTransient, err)
}

func PartialMerge(err error) *Error {
	return New(http.StatusOK, CodePartialMerge, err)
}

func Invalid(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalid, err)
}

func code(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsNotFound(err error) bool { return code(err) == CodeNotFound }
func IsConflict(err error) bool { return code(err) == CodeConflict }

// StatusOf returns the HTTP status carried by err, or 500 when err is untyped.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
