package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when a workspace operation runs
	// before a profile has been resolved.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoActiveWorkspace is returned when an operation requires an
	// active workspace and none is selected.
	ErrNoActiveWorkspace = errors.New("no active workspace")

	// ErrInvalidInviteCode is returned when invite redemption cannot map
	// the input to a workspace. User-correctable; nothing was mutated.
	ErrInvalidInviteCode = errors.New("invalid invite code")
)

// ProfileResolutionError wraps a persistence failure during identity
// resolution. Non-fatal: the session stays in the unauthenticated state
// and resolution is retried on the next start.
type ProfileResolutionError struct {
	Err error
}

func (e *ProfileResolutionError) Error() string {
	return fmt.Sprintf("resolve profile: %v", e.Err)
}

func (e *ProfileResolutionError) Unwrap() error { return e.Err }

// ValidationError rejects malformed input before any remote call.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// RemoteWriteError wraps a failed remote mutation. The optimistic local
// patch for the mutation has been rolled back by the time this surfaces.
type RemoteWriteError struct {
	Op  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

// PartialFailure reports a multi-step operation whose primary step took
// effect but whose secondary cleanup did not. The user must know the
// primary effect happened even though a derived effect may be stale.
type PartialFailure struct {
	Primary string
	Cleanup string
	Err     error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%s succeeded but %s failed: %v", e.Primary, e.Cleanup, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }
