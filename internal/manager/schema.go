package manager

import (
	"fmt"
	"strings"
)

// Field describes one editable attribute of T.
type Field[T any] struct {
	Name     string
	Label    string
	Required bool
	Get      func(T) string
	Set      func(*T, string) error
}

// Schema describes how a resource is listed and edited.
type Schema[T any] struct {
	// Name is the plural resource name used in messages, e.g. "keywords".
	Name string

	// Key returns the backend id of an item.
	Key func(T) int64

	Fields []Field[T]

	// New returns the empty draft shown in the new-entry form.
	New func() T
}

// Field returns the field named name.
func (s Schema[T]) Field(name string) (Field[T], error) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	return Field[T]{}, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, s.Name, name)
}

// FieldNames returns the field names in schema order.
func (s Schema[T]) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Validate returns ErrMissingField naming every empty required field.
func (s Schema[T]) Validate(item T) error {
	var missing []string
	for _, f := range s.Fields {
		if f.Required && strings.TrimSpace(f.Get(item)) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

func (s Schema[T]) empty() T {
	if s.New != nil {
		return s.New()
	}
	var zero T
	return zero
}
