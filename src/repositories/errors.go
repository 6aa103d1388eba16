package repositories

import "errors"

var (
	// ErrNotFound indicates no account matched the lookup
	ErrNotFound = errors.New("admin account not found")

	// ErrConflict indicates the username is already taken
	ErrConflict = errors.New("admin account already exists")
)
