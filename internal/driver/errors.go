package driver

import (
	"errors"
	"fmt"
)

var (
	ErrNotStarted  = errors.New("session has not started")
	ErrNotInRoster = errors.New("not part of the session roster")
)

// AbortError ends a session that could not finish because the transport
// failed underneath it.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("session aborted: %s", e.Reason)
}
