package engine

import (
	"context"

	"vault/models"
)

// Registry is the authoritative shared store consumed by the engine. All
// cross-session conflicts are resolved here via uniqueness constraints and
// conditional updates; the engine never locks across sessions.
//
// Implementations: services.StoreRegistry (Postgres, in-process) and
// client.Client (remote device clients).
type Registry interface {
	// GetActiveEvent returns the current active event, or nil when none is
	// running. Trusted in-process implementations include the solution;
	// remote implementations return it redacted.
	GetActiveEvent(ctx context.Context) (*models.GlobalEvent, error)

	// GetEvent returns the event by ID regardless of its state.
	// Returns ErrNotFound when missing.
	GetEvent(ctx context.Context, eventID string) (*models.GlobalEvent, error)

	// InsertUnlockRecord inserts the unlock for contentID, relying on the
	// store's uniqueness constraint as the sole arbiter. Returns
	// ErrDuplicate when another session unlocked the content first.
	InsertUnlockRecord(ctx context.Context, contentID, deviceID, method string) (*models.UnlockRecord, error)

	// GetUnlockRecord returns the authoritative unlock for contentID, used
	// to merge the winning record after a lost race. Returns ErrNotFound
	// when the content is still locked.
	GetUnlockRecord(ctx context.Context, contentID string) (*models.UnlockRecord, error)

	// GetUnlockedContentIDs returns every unlocked content ID
	GetUnlockedContentIDs(ctx context.Context) ([]string, error)

	// UpdateEventIfNotCompleted sets completedAt/completedBy and clears
	// isActive only if completedAt is still null at write time (CAS).
	// Returns ErrAlreadyCompleted when the CAS fails.
	UpdateEventIfNotCompleted(ctx context.Context, eventID, completedBy string) (*models.GlobalEvent, error)

	// InsertEventCompletion records a participant's completion. Returns
	// ErrDuplicate for a repeat (eventID, userID) pair.
	InsertEventCompletion(ctx context.Context, eventID, userID string, timeTakenSeconds int64) error
}

// SolutionSubmitter is an optional Registry capability: judging a solution
// submission where the store lives. Registries that return events with the
// solution redacted must implement it, since the engine cannot run the
// comparison itself. Returns ErrIncorrectSolution or ErrAlreadyCompleted
// like the local path.
type SolutionSubmitter interface {
	SubmitEventSolution(ctx context.Context, eventID, userID, solution string) (SolutionResult, error)
}
