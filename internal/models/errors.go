package models

import "errors"

var (
	// ErrUnauthorized covers missing, unknown and expired tokens as well as bad credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound covers both absent entities and entities the caller may not see.
	ErrNotFound = errors.New("not found")

	ErrMissingField     = errors.New("missing field")
	ErrInvalidParent    = errors.New("invalid parent")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrAlreadyExists    = errors.New("already exists")
)

// ValidationError carries the message shown to the client and unwraps
// to one of the sentinel errors above.
type ValidationError struct {
	Err error
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MissingField reports an absent or unusable request field.
func MissingField(field string) error {
	return &ValidationError{Err: ErrMissingField, Msg: "Missing " + field}
}

// InvalidParent reports a parentId that does not point to a folder.
func InvalidParent(msg string) error {
	return &ValidationError{Err: ErrInvalidParent, Msg: msg}
}
