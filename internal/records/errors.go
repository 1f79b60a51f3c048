package records

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidInput    = errors.New("invalid input")
)

// MalformedRecordError reports a stored record that is missing a required
// field or carries a value of the wrong kind.
type MalformedRecordError struct {
	Entity string
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("malformed record: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed %s record: %s: %s", e.Entity, e.Field, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// ValidationError is returned before any mutation when a caller supplies an
// out-of-range or wrong-kind value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func missingField(field string) error {
	return &MalformedRecordError{Field: field, Reason: "required field is missing"}
}

func wrongKind(field, want string, got interface{}) error {
	return &MalformedRecordError{Field: field, Reason: fmt.Sprintf("expected %s, got %T", want, got)}
}

// withEntity tags a malformed-record error with the entity it was raised for.
func withEntity(entity string, err error) error {
	var mre *MalformedRecordError
	if errors.As(err, &mre) && mre.Entity == "" {
		mre.Entity = entity
	}
	return err
}
