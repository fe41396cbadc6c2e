package database

import "errors"

var (
	// ErrNotFound is returned when a row addressed by id or name does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = errors.New("record already exists")
)
