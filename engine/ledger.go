package engine

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"vault/storage"
)

const ledgerStorageKey = "vault:completions"

// Ledger is the durable, per-device set of solved puzzle IDs. Completions
// are persisted before any network call is attempted, so a solved puzzle
// is never lost to a crashed tab or a failed request. Re-solving is a
// no-op. Puzzle-to-tape completions are permanent and survive event
// rollovers; per-event fragment progress lives in the Engine instead.
type Ledger struct {
	mu     sync.Mutex
	store  storage.Store
	solved map[string]time.Time
}

// NewLedger loads the completion set from the device store
func NewLedger(store storage.Store) (*Ledger, error) {
	l := &Ledger{store: store, solved: make(map[string]time.Time)}

	raw, exists := store.Get(ledgerStorageKey)
	if exists {
		if err := json.Unmarshal(raw, &l.solved); err != nil {
			return nil, fmt.Errorf("failed to parse completion ledger: %w", err)
		}
	}
	return l, nil
}

// RecordCompletion adds puzzleID to the durable set if absent and persists
// immediately. Idempotent: recording the same puzzle twice leaves the
// ledger unchanged.
func (l *Ledger) RecordCompletion(puzzleID string, solvedAt time.Time) error {
	if puzzleID == "" {
		return fmt.Errorf("%w: empty puzzle id", ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.solved[puzzleID]; exists {
		return nil
	}

	l.solved[puzzleID] = solvedAt
	return l.persist()
}

// IsCompleted reports whether puzzleID has been solved on this device
func (l *Ledger) IsCompleted(puzzleID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, exists := l.solved[puzzleID]
	return exists
}

// Count returns the number of puzzles solved on this device
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.solved)
}

// SolvedAt returns when puzzleID was solved, if it was
func (l *Ledger) SolvedAt(puzzleID string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	at, exists := l.solved[puzzleID]
	return at, exists
}

// persist writes the set to the device store. Caller must hold l.mu.
func (l *Ledger) persist() error {
	raw, err := json.Marshal(l.solved)
	if err != nil {
		return fmt.Errorf("failed to encode completion ledger: %w", err)
	}
	if err := l.store.Set(ledgerStorageKey, raw); err != nil {
		return fmt.Errorf("failed to persist completion ledger: %w", err)
	}
	return nil
}
