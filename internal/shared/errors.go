package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates a rejected request payload.
	ErrValidation = errors.New("validation failed")
)

// UserSafeMessage returns a message suitable for clients. Wrapped internal
// errors collapse to a generic string so drivers never leak details.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "Resource not found"
	case errors.Is(err, ErrDuplicate):
		return "A record with the same identifier already exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return "Something went wrong. Please try again."
	}
}
