package auth

import (
	"errors"
	"fmt"
)

// ErrAuthFailed matches every *AuthError via errors.Is.
var ErrAuthFailed = errors.New("authentication failed")

// AuthError reports a failed credential exchange.
type AuthError struct {
	Endpoint string
	// StatusCode is 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("unable to authenticate to %s with provided credentials", e.Endpoint)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthFailed }
