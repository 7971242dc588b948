package storage

import "errors"

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNoFields is returned when an update names no fields to change.
	ErrNoFields = errors.New("no fields to update")
)
