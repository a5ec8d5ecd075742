package config

import (
	"log"
	"strings"
)

// PuzzleDefinition describes a puzzle widget known to the site. Static,
// loaded once at startup; immutable at runtime.
type PuzzleDefinition struct {
	ID              string
	Enabled         bool
	RewardContentID string // content unlocked when this puzzle is solved, empty if none
}

// DefaultTotalPuzzles is used when no active event provides a fragment count
const DefaultTotalPuzzles = 5

var puzzleDefinitions []PuzzleDefinition

// LoadPuzzles parses the VAULT_PUZZLES environment variable into puzzle
// definitions. Format: "puzzleID:rewardContentID,puzzleID,..." where the
// reward part is optional and a leading "!" disables the puzzle.
func LoadPuzzles() {
	puzzleDefinitions = nil
	if Puzzles == "" {
		return
	}

	for _, entry := range strings.Split(Puzzles, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		enabled := true
		if strings.HasPrefix(entry, "!") {
			enabled = false
			entry = entry[1:]
		}

		parts := strings.SplitN(entry, ":", 2)
		def := PuzzleDefinition{ID: parts[0], Enabled: enabled}
		if len(parts) == 2 {
			def.RewardContentID = parts[1]
		}

		puzzleDefinitions = append(puzzleDefinitions, def)
		log.Printf("Loaded puzzle definition: %s (enabled=%v, reward=%s)", def.ID, def.Enabled, def.RewardContentID)
	}
}

// GetPuzzle returns the definition for a puzzle ID, or nil if unknown
func GetPuzzle(id string) *PuzzleDefinition {
	for i := range puzzleDefinitions {
		if puzzleDefinitions[i].ID == id {
			return &puzzleDefinitions[i]
		}
	}
	return nil
}

// PuzzleCount returns the number of enabled puzzle definitions
func PuzzleCount() int {
	count := 0
	for _, def := range puzzleDefinitions {
		if def.Enabled {
			count++
		}
	}
	return count
}
