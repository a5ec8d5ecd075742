package tapes

import "vault/models"

// Constants for error messages
const (
	ErrTapeNotFound     = "Tape not found"
	ErrTapeStillLocked  = "Tape is still locked"
	ErrFailedFetchTapes = "Failed to fetch tapes"
)

// TapeResponse is a tape as shown to visitors. Locked tapes keep their
// slot in the archive but hide everything except the gate.
type TapeResponse struct {
	Slug     string `json:"slug"`
	Kind     string `json:"kind"`
	Unlocked bool   `json:"unlocked"`

	// Only present once unlocked
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
}

// visibleTape builds the visitor view of a tape
func visibleTape(tape models.Tape, unlocked bool) TapeResponse {
	resp := TapeResponse{Slug: tape.Slug, Kind: tape.Kind, Unlocked: unlocked}
	if unlocked {
		resp.Title = tape.Title
		resp.Description = tape.Description
		resp.MediaURL = tape.MediaURL
	}
	return resp
}
