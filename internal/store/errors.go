package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicateID = errors.New("duplicate id")
)

// NotFoundError is returned when a lookup that requires a match finds none.
// Exactly one of ID or Query is set.
type NotFoundError struct {
	Kind  string
	ID    int
	Query string
}

func (e *NotFoundError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("no %s matches %q", e.Kind, e.Query)
	}
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
