package data

import "errors"

var (
	// ErrNotFound is returned when a document addressed by id or key does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique key (user email) is already taken.
	ErrDuplicate = errors.New("record already exists")
)
