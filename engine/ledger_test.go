package engine

import (
	"errors"
	"testing"
	"time"

	"vault/storage"
)

func TestLedgerRecordCompletionIdempotent(t *testing.T) {
	store := storage.NewMemStore()
	ledger, err := NewLedger(store)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := ledger.RecordCompletion("keypad-01", first); err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}
	if err := ledger.RecordCompletion("keypad-01", first.Add(time.Hour)); err != nil {
		t.Fatalf("RecordCompletion repeat: %v", err)
	}

	if got := ledger.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	if at, ok := ledger.SolvedAt("keypad-01"); !ok || !at.Equal(first) {
		t.Errorf("SolvedAt() = %v, %v; want original solve time", at, ok)
	}
}

func TestLedgerPersistsAcrossReload(t *testing.T) {
	store := storage.NewMemStore()

	ledger, err := NewLedger(store)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	if err := ledger.RecordCompletion("anagram-02", time.Now()); err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}

	reloaded, err := NewLedger(store)
	if err != nil {
		t.Fatalf("NewLedger reload: %v", err)
	}
	if !reloaded.IsCompleted("anagram-02") {
		t.Error("completion lost across reload")
	}
	if reloaded.IsCompleted("wiring-03") {
		t.Error("unexpected completion after reload")
	}
}

func TestLedgerRejectsEmptyPuzzleID(t *testing.T) {
	ledger, err := NewLedger(storage.NewMemStore())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	if err := ledger.RecordCompletion("", time.Now()); !errors.Is(err, ErrValidation) {
		t.Errorf("RecordCompletion(\"\") = %v, want ErrValidation", err)
	}
}
