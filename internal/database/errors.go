package database

import "errors"

var (
	// ErrNotFound is returned when a referenced room, message, account
	// or meeting request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMeetingClosed is returned when a status transition is attempted
	// on a meeting request that is no longer pending.
	ErrMeetingClosed = errors.New("meeting request already resolved")

	// ErrConflict is returned when an insert collides with an existing
	// unique row, e.g. registering an email twice.
	ErrConflict = errors.New("already exists")
)
