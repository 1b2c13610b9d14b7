package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones with a
// custom message still match their predefined sentinel.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Generic errors.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Room assignment and residency errors. Each rule violation keeps its own
// code so clients can tell a full room from a wrong building.
var (
	ErrRoomNotFound           = New("ROOM_NOT_FOUND", http.StatusNotFound, "room not found")
	ErrResidentNotFound       = New("RESIDENT_NOT_FOUND", http.StatusNotFound, "resident not found")
	ErrCapacityExceeded       = New("CAPACITY_EXCEEDED", http.StatusConflict, "room is full")
	ErrGenderBuildingMismatch = New("GENDER_BUILDING_MISMATCH", http.StatusUnprocessableEntity, "building is not available for this gender")
	ErrNoRoomAvailable        = New("NO_ROOM_AVAILABLE", http.StatusConflict, "no room available for this gender")
	ErrRoomUnderRepair        = New("ROOM_UNDER_REPAIR", http.StatusConflict, "room is under repair")
	ErrDuplicateNIM           = New("DUPLICATE_NIM", http.StatusConflict, "nim already registered")
	ErrInvalidTransition      = New("INVALID_TRANSITION", http.StatusConflict, "status transition not allowed")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// CodeOf returns the domain code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return FromError(err).Code
}
