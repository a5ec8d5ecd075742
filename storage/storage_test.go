package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, exists := fs.Get("missing"); exists {
		t.Error("Get on empty store should report missing")
	}

	if err := fs.Set("vault:completions", []byte(`{"keypad-01":"2026-01-02T03:04:05Z"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, exists := fs.Get("vault:completions")
	if !exists {
		t.Fatal("Get after Set reports missing")
	}
	if string(value) != `{"keypad-01":"2026-01-02T03:04:05Z"}` {
		t.Errorf("Get = %s", value)
	}
}

func TestFileStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := fs.Set("a", []byte(`"one"`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := fs.Set("b", []byte(`"two"`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore reopen: %v", err)
	}
	for key, want := range map[string]string{"a": `"one"`, "b": `"two"`} {
		got, exists := reopened.Get(key)
		if !exists || string(got) != want {
			t.Errorf("reopened Get(%q) = %s, %v; want %s", key, got, exists, want)
		}
	}

	// Atomic flush must not leave the temp file behind
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := fs.Set("key", []byte(`1`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatal("expected error for corrupt store file")
	}
}

func TestMemStoreCopiesValues(t *testing.T) {
	ms := NewMemStore()
	original := []byte("payload")
	if err := ms.Set("key", original); err != nil {
		t.Fatalf("Set: %v", err)
	}

	original[0] = 'X'
	got, _ := ms.Get("key")
	if string(got) != "payload" {
		t.Errorf("stored value aliased caller buffer: %s", got)
	}

	got[0] = 'Y'
	again, _ := ms.Get("key")
	if string(again) != "payload" {
		t.Errorf("returned value aliased stored buffer: %s", again)
	}
}
