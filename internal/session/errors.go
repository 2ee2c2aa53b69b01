package session

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned by a Backend for rejected credentials or a
	// token the server no longer accepts. It always ends the session.
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotAuthenticated = errors.New("session is not authenticated")
	// ErrSessionChanged reports a result discarded because the session was
	// logged out or replaced while the call was in flight.
	ErrSessionChanged = errors.New("session changed during request")
)

// PermissionLoadError marks a failed grant fetch. The session stays
// authenticated.
type PermissionLoadError struct {
	Err error
}

func (e *PermissionLoadError) Error() string {
	return fmt.Sprintf("permission load failed: %v", e.Err)
}

func (e *PermissionLoadError) Unwrap() error {
	return e.Err
}

func IsPermissionLoadError(err error) bool {
	var target *PermissionLoadError
	return errors.As(err, &target)
}
