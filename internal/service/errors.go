package service

import "errors"

var (
	// ErrInvalidInput is returned when a request fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied is returned when the actor is not allowed to
	// perform the operation (not a participant, not the debtor, not the
	// trip admin).
	ErrPermissionDenied = errors.New("permission denied")
)
