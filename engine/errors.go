package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy for the synchronization engine. Race losses
// (ErrAlreadyCompleted, ErrAlreadyUnlocked) are expected outcomes, not
// failures: callers present them as normal states, never as errors.
var (
	// ErrNotFound means the referenced event or content does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCompleted means another participant completed the event first
	ErrAlreadyCompleted = errors.New("event already completed")

	// ErrAlreadyUnlocked means another session unlocked the content first
	ErrAlreadyUnlocked = errors.New("content already unlocked")

	// ErrIncorrectSolution means the submitted solution did not match; retryable
	ErrIncorrectSolution = errors.New("incorrect solution")

	// ErrValidation means the input was malformed
	ErrValidation = errors.New("invalid input")

	// ErrDuplicate is the internal uniqueness-violation signal returned by
	// Registry implementations. The engine always translates it to
	// ErrAlreadyCompleted or ErrAlreadyUnlocked before surfacing it.
	ErrDuplicate = errors.New("uniqueness violation")

	// ErrSolutionUnavailable means the registry redacts the event solution
	// and offers no server-side submission path, so the submission could
	// not be judged at all
	ErrSolutionUnavailable = errors.New("solution is judged server-side")
)

// NetworkError wraps a transport failure or timeout on a registry call.
// The local ledger keeps the completion; the write is retried later.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is (or wraps) a NetworkError
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
