package manager

import "errors"

var (
	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("required field is empty")

	// ErrUnknownField is returned for a field name outside the schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownItem is returned when no listed item has the given key.
	ErrUnknownItem = errors.New("item not in list")

	// ErrNotEditing is returned when an edit operation runs without an
	// active edit.
	ErrNotEditing = errors.New("no item is being edited")

	// ErrInvalidValue is returned by field setters for unparsable input.
	ErrInvalidValue = errors.New("invalid field value")
)
