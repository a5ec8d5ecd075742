package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Puzzle payload kinds carried inside an event's puzzle data. The engine
// only ever inspects Kind and ID; the rest is rendered by the UI layer.
const (
	PayloadFragment = "fragment"
	PayloadCipher   = "cipher"
	PayloadRiddle   = "riddle"
)

// PuzzlePayload is a tagged puzzle-content variant. Which of the optional
// fields are set depends on Kind.
type PuzzlePayload struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Page   string `json:"page"`             // page the fragment is scattered on
	Reveal string `json:"reveal,omitempty"` // payload shown when collected

	// cipher fields
	Ciphertext string `json:"ciphertext,omitempty"`

	// riddle fields
	Prompt string `json:"prompt,omitempty"`
}

// EventPuzzleData is the ordered fragment list for a global event,
// stored as a jsonb column
type EventPuzzleData struct {
	TotalPuzzles int             `json:"total_puzzles"`
	Fragments    []PuzzlePayload `json:"fragments"`
}

// Value implements driver.Valuer so GORM can write the jsonb column
func (d EventPuzzleData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner so GORM can read the jsonb column
func (d *EventPuzzleData) Scan(value interface{}) error {
	if value == nil {
		*d = EventPuzzleData{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("failed to scan EventPuzzleData: unsupported type")
		}
	}
	return json.Unmarshal(bytes, d)
}
