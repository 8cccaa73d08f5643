package entity

import "errors"

// Error represents a domain error from virtual filesystem operations.
//
// These are business logic errors (malformed path, entity type mismatch,
// authorization failure, etc.) as opposed to infrastructure errors
// (network failure, disk error). Callers can branch on Code via CodeOf
// without parsing messages.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the virtual path or URI related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewPathError creates an Error tied to a specific path or URI.
func NewPathError(code ErrorCode, message, path string) *Error {
	return &Error{Code: code, Message: message, Path: path}
}

// CodeOf extracts the ErrorCode from err. The second return value is
// false when err is not a domain Error.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// ErrorCode represents the category of a domain error.
type ErrorCode int

const (
	// ErrInvalidPath indicates a malformed URI. Never retried.
	ErrInvalidPath ErrorCode = iota

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: write flags on a non-write-target path, local-to-local copy
	ErrInvalidArgument

	// ErrNotFound indicates the entity or write-target path doesn't exist
	// or its existence cannot be checked
	ErrNotFound

	// ErrNotAFile indicates the operation expected a file entity but the
	// target resolves to a folder or other concrete type
	ErrNotAFile

	// ErrNotAFolder indicates the operation expected a folder entity
	ErrNotAFolder

	// ErrNoFileHandle indicates a file entity carries no file handle id,
	// so its content cannot be downloaded
	ErrNoFileHandle

	// ErrAccessDenied indicates an authorization failure (backend 403)
	ErrAccessDenied

	// ErrAuthFailed indicates the bearer credential was rejected (backend 401)
	// The message guides the caller to refresh credentials
	ErrAuthFailed

	// ErrFileTooLarge indicates the computed part size would exceed the
	// absolute cap. Raised before any network call.
	ErrFileTooLarge

	// ErrPartUploadFailed indicates a single part upload returned a
	// non-success status. Fails the whole upload; no automatic retry.
	ErrPartUploadFailed

	// ErrNotSupported indicates an operation deliberately not implemented
	// Examples: seek on a read channel, move, virtual-to-virtual copy
	ErrNotSupported
)
