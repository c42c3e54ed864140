package domain

import "errors"

// Domain errors
var (
	ErrInvalidSubmission = errors.New("invalid result submission")
	ErrUserNotFound      = errors.New("user has no recorded results")
	ErrUnknownEvent      = errors.New("unknown event name")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
