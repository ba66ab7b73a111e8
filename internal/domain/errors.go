package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned by storage when the username unique
	// constraint rejects a write; callers may retry with another name.
	ErrUsernameTaken = errors.New("username already taken")
)

// Messages returned to clients for verification failures.
const (
	MsgCodeInvalid     = "Verification code is invalid or time expired"
	MsgCodeStillUsable = "your code is still usable. Wait a moment"
	MsgInvalidContact  = "Email or phone number is invalid"
	MsgAlreadyVerified = "account is already verified"
)

// ValidationError is a client-correctable failure. It is reported back as a
// 4xx response with Message as the payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError reports a uniqueness violation on a single account field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, ErrConflict)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
