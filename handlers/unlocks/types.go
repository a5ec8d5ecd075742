package unlocks

// Constants for error messages
const (
	ErrFailedFetchUnlocks = "Failed to fetch unlock records"
	ErrFailedCreateUnlock = "Failed to create unlock record"
	ErrInvalidRequest     = "Invalid request data"
	ErrUnknownPuzzle      = "Unknown puzzle"
	ErrPuzzleDisabled     = "Puzzle is disabled"
	ErrPuzzleHasNoReward  = "Puzzle does not unlock any content"
)

// UnlockRequest model for requesting a global content unlock
type UnlockRequest struct {
	ContentID string `json:"content_id" binding:"required"`
	DeviceID  string `json:"device_id" binding:"required"`
	Method    string `json:"method" binding:"required"`
}

// SolveRequest model for reporting a solved gating puzzle
type SolveRequest struct {
	PuzzleID string `json:"puzzle_id" binding:"required"`
	DeviceID string `json:"device_id" binding:"required"`
}
