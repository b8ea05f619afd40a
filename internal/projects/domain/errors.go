package domain

import "errors"

var (
	// ErrNotFound signals that no project exists for the given UUID.
	ErrNotFound = errors.New("project not found")

	// ErrUnauthorized covers both a missing project and a project owned by
	// someone else. Callers must not be able to tell the two cases apart.
	ErrUnauthorized = errors.New("this project does not exist or does not belong to you")

	// ErrNameTaken signals a per-owner project name collision at create time.
	ErrNameTaken = errors.New("name is already taken by one of your existing projects")
)

// ValidationError rejects a request for bad input shape or length.
// No state is changed when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidation reports whether err is a ValidationError or the name-taken
// sentinel, both of which map to a client-side rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrNameTaken)
}
