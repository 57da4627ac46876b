package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSystemRole is returned when an operation would delete a system role.
	ErrSystemRole = errors.New("system role cannot be deleted")
)
