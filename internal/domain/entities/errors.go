package entities

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services unwraps to one of these.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("unauthorized")
	ErrStore      = errors.New("store failure")
)

// Common errors
var (
	ErrUserNotFound = newKindError(ErrNotFound, "user not found")
	ErrListNotFound = newKindError(ErrNotFound, "list not found")
	ErrTaskNotFound = newKindError(ErrNotFound, "task not found")

	ErrTitleRequired       = newKindError(ErrValidation, "title is required")
	ErrOnlyTopLevelMove    = newKindError(ErrValidation, "only top-level tasks may move")
	ErrSubtaskListMismatch = newKindError(ErrValidation, "a subtask must stay in its parent's list")
	ErrUsernameRequired    = newKindError(ErrValidation, "username and password are required")
	ErrUsernameTooShort    = newKindError(ErrValidation, "username must be at least 3 characters long")
	ErrUsernameTooLong     = newKindError(ErrValidation, "username must be at most 80 characters long")
	ErrPasswordTooShort    = newKindError(ErrValidation, "password must be at least 6 characters long")
	ErrPasswordTooLong     = newKindError(ErrValidation, "password must be at most 72 bytes long")
	ErrUsernameTaken       = newKindError(ErrValidation, "username already exists")

	ErrInvalidCredentials = newKindError(ErrAuth, "invalid username or password")
	ErrInvalidToken       = newKindError(ErrAuth, "invalid token")
	ErrTokenRevoked       = newKindError(ErrAuth, "token has been revoked")

	ErrHierarchyCycle = newKindError(ErrStore, "task hierarchy contains a cycle")
)

// kindError is a user-facing message tagged with one of the error kinds
type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// storeError wraps a storage driver failure
type storeError struct {
	op  string
	err error
}

// StoreError tags err as a storage failure of operation op. Domain errors
// pass through untouched so their kind survives the wrapping.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAuth) || errors.Is(err, ErrStore) {
		return err
	}
	return &storeError{op: op, err: err}
}

func (e *storeError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *storeError) Unwrap() []error { return []error{ErrStore, e.err} }

// Message returns the user-facing message of a domain error, or an empty
// string when err carries none.
func Message(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return ""
}
