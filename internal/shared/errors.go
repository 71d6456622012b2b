package shared

import "errors"

var (
	// ErrNotFound indicates the referenced record does not exist in the caller's org.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates a denied permission or escalation check.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a unique-constraint race on creation.
	ErrConflict = errors.New("conflict")
	// ErrInvalid indicates malformed input rejected before persistence.
	ErrInvalid = errors.New("invalid input")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
