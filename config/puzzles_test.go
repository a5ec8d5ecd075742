package config

import "testing"

func TestLoadPuzzles(t *testing.T) {
	Puzzles = "memory-01:tape-07, plain-02 ,!wiring-03:tape-01,,keypad-04"
	LoadPuzzles()

	tests := []struct {
		id      string
		enabled bool
		reward  string
	}{
		{"memory-01", true, "tape-07"},
		{"plain-02", true, ""},
		{"wiring-03", false, "tape-01"},
		{"keypad-04", true, ""},
	}
	for _, tt := range tests {
		def := GetPuzzle(tt.id)
		if def == nil {
			t.Errorf("GetPuzzle(%q) = nil", tt.id)
			continue
		}
		if def.Enabled != tt.enabled {
			t.Errorf("GetPuzzle(%q).Enabled = %v, want %v", tt.id, def.Enabled, tt.enabled)
		}
		if def.RewardContentID != tt.reward {
			t.Errorf("GetPuzzle(%q).RewardContentID = %q, want %q", tt.id, def.RewardContentID, tt.reward)
		}
	}

	if def := GetPuzzle("unknown"); def != nil {
		t.Errorf("GetPuzzle(unknown) = %+v, want nil", def)
	}
	// Disabled puzzles do not count toward the enabled total
	if got := PuzzleCount(); got != 3 {
		t.Errorf("PuzzleCount() = %d, want 3", got)
	}
}

func TestLoadPuzzlesEmpty(t *testing.T) {
	Puzzles = ""
	LoadPuzzles()
	if got := PuzzleCount(); got != 0 {
		t.Errorf("PuzzleCount() = %d, want 0", got)
	}
}
