package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"vault/config"
	"vault/models"
	"vault/storage"
)

// fakeRegistry is an in-memory authoritative registry with the same
// arbitration rules as the real store: unique unlock per content ID and a
// compare-and-swap completion.
type fakeRegistry struct {
	mu          sync.Mutex
	unlocks     map[string]models.UnlockRecord
	events      map[string]*models.GlobalEvent
	completions map[string]bool
	activeID    string

	insertErr error // injected transport failure for unlock inserts
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		unlocks:     make(map[string]models.UnlockRecord),
		events:      make(map[string]*models.GlobalEvent),
		completions: make(map[string]bool),
	}
}

func (f *fakeRegistry) addEvent(event models.GlobalEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[event.ID] = &event
	if event.IsActive {
		f.activeID = event.ID
	}
}

func (f *fakeRegistry) GetActiveEvent(ctx context.Context) (*models.GlobalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeID == "" {
		return nil, nil
	}
	event := *f.events[f.activeID]
	return &event, nil
}

func (f *fakeRegistry) GetEvent(ctx context.Context, eventID string) (*models.GlobalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, exists := f.events[eventID]
	if !exists {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	copied := *event
	return &copied, nil
}

func (f *fakeRegistry) InsertUnlockRecord(ctx context.Context, contentID, deviceID, method string) (*models.UnlockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if _, exists := f.unlocks[contentID]; exists {
		return nil, fmt.Errorf("unlock for %s: %w", contentID, ErrDuplicate)
	}
	record := models.UnlockRecord{
		ContentID:  contentID,
		UnlockedBy: deviceID,
		UnlockedAt: time.Now(),
		Method:     method,
	}
	f.unlocks[contentID] = record
	return &record, nil
}

func (f *fakeRegistry) GetUnlockRecord(ctx context.Context, contentID string) (*models.UnlockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, exists := f.unlocks[contentID]
	if !exists {
		return nil, fmt.Errorf("unlock for %s: %w", contentID, ErrNotFound)
	}
	return &record, nil
}

func (f *fakeRegistry) GetUnlockedContentIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.unlocks))
	for id := range f.unlocks {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRegistry) UpdateEventIfNotCompleted(ctx context.Context, eventID, completedBy string) (*models.GlobalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, exists := f.events[eventID]
	if !exists {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	if event.CompletedAt != nil {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrAlreadyCompleted)
	}
	now := time.Now()
	event.CompletedAt = &now
	event.CompletedBy = &completedBy
	event.IsActive = false
	copied := *event
	return &copied, nil
}

func (f *fakeRegistry) InsertEventCompletion(ctx context.Context, eventID, userID string, timeTakenSeconds int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := eventID + "/" + userID
	if f.completions[key] {
		return fmt.Errorf("completion for %s: %w", key, ErrDuplicate)
	}
	f.completions[key] = true
	return nil
}

// redactedRegistry strips the solution from every event it returns, like a
// registry reached over the HTTP API
type redactedRegistry struct{ *fakeRegistry }

func (r redactedRegistry) GetActiveEvent(ctx context.Context) (*models.GlobalEvent, error) {
	event, err := r.fakeRegistry.GetActiveEvent(ctx)
	if event != nil {
		event.Solution = ""
	}
	return event, err
}

func (r redactedRegistry) GetEvent(ctx context.Context, eventID string) (*models.GlobalEvent, error) {
	event, err := r.fakeRegistry.GetEvent(ctx, eventID)
	if event != nil {
		event.Solution = ""
	}
	return event, err
}

// judgingRegistry is a redacting registry that also judges submissions
// store-side, the way the HTTP API does
type judgingRegistry struct{ redactedRegistry }

func (r judgingRegistry) SubmitEventSolution(ctx context.Context, eventID, userID, solution string) (SolutionResult, error) {
	event, err := r.fakeRegistry.GetEvent(ctx, eventID)
	if err != nil {
		return SolutionResult{}, err
	}
	if event.IsCompleted() {
		return SolutionResult{}, ErrAlreadyCompleted
	}
	if event.Solution != solution {
		return SolutionResult{}, ErrIncorrectSolution
	}
	if _, err := r.fakeRegistry.UpdateEventIfNotCompleted(ctx, eventID, userID); err != nil {
		if errors.Is(err, ErrAlreadyCompleted) {
			return SolutionResult{}, ErrAlreadyCompleted
		}
		return SolutionResult{}, err
	}
	return SolutionResult{Success: true, FirstComplete: true}, nil
}

// fakeFeed lets tests deliver (and redeliver) change notifications
type fakeFeed struct {
	mu          sync.Mutex
	subscribers []func(Change)
}

func (f *fakeFeed) Subscribe(fn func(Change)) func() {
	f.mu.Lock()
	f.subscribers = append(f.subscribers, fn)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.subscribers = nil
		f.mu.Unlock()
	}
}

func (f *fakeFeed) Deliver(change Change) {
	f.mu.Lock()
	fns := append([]func(Change){}, f.subscribers...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

func newTestEngine(t *testing.T, registry Registry, hooks Hooks) *Engine {
	t.Helper()
	eng, err := New(registry, storage.NewMemStore(), "device-"+t.Name(), hooks)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func activeEvent(id, solution string, fragments ...string) models.GlobalEvent {
	data := &models.EventPuzzleData{TotalPuzzles: len(fragments)}
	for _, fragID := range fragments {
		data.Fragments = append(data.Fragments, models.PuzzlePayload{
			Kind: models.PayloadFragment,
			ID:   fragID,
			Page: "/" + fragID,
		})
	}
	return models.GlobalEvent{
		ID:            id,
		Title:         "Signal " + id,
		Solution:      solution,
		StartedAt:     time.Now().Add(-time.Hour),
		WindowSeconds: 12 * 60 * 60,
		IsActive:      true,
		PuzzleData:    data,
	}
}

func TestUnlockRaceHasOneWinner(t *testing.T) {
	registry := newFakeRegistry()
	first := newTestEngine(t, registry, Hooks{})
	second := newTestEngine(t, registry, Hooks{})

	ctx := context.Background()
	resultA, err := first.RequestGlobalUnlock(ctx, "tape-07", "memory-match")
	if err != nil {
		t.Fatalf("first unlock: %v", err)
	}
	resultB, err := second.RequestGlobalUnlock(ctx, "tape-07", "memory-match")
	if err != nil {
		t.Fatalf("second unlock: %v", err)
	}

	if !resultA.Success || resultA.AlreadyUnlocked {
		t.Errorf("first requester should win, got %+v", resultA)
	}
	if resultB.Success || !resultB.AlreadyUnlocked {
		t.Errorf("second requester should lose, got %+v", resultB)
	}
	if resultB.Record == nil || resultB.Record.UnlockedBy != "device-"+t.Name() {
		t.Errorf("loser should receive the winning record, got %+v", resultB.Record)
	}

	// Both sessions converge to the same terminal state
	if !first.IsUnlocked("tape-07") || !second.IsUnlocked("tape-07") {
		t.Error("both sessions should see the content unlocked")
	}
	if len(registry.unlocks) != 1 {
		t.Errorf("registry has %d unlock records, want 1", len(registry.unlocks))
	}
}

func TestUnlockFastPathSkipsRegistry(t *testing.T) {
	registry := newFakeRegistry()
	eng := newTestEngine(t, registry, Hooks{})
	ctx := context.Background()

	if _, err := eng.RequestGlobalUnlock(ctx, "tape-01", "keypad"); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	// A registry failure now must not matter: the cached record answers
	registry.mu.Lock()
	registry.insertErr = errors.New("connection refused")
	registry.mu.Unlock()

	result, err := eng.RequestGlobalUnlock(ctx, "tape-01", "keypad")
	if err != nil {
		t.Fatalf("cached unlock: %v", err)
	}
	if !result.AlreadyUnlocked {
		t.Errorf("expected already_unlocked from cache, got %+v", result)
	}
}

func TestSubmitEventSolutionSingleWinner(t *testing.T) {
	registry := newFakeRegistry()
	registry.addEvent(activeEvent("E1", "DEEPER"))

	first := newTestEngine(t, registry, Hooks{})
	second := newTestEngine(t, registry, Hooks{})
	ctx := context.Background()
	if err := first.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := second.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	win, err := first.SubmitEventSolution(ctx, "user-a", "DEEPER")
	if err != nil {
		t.Fatalf("winner submit: %v", err)
	}
	if !win.FirstComplete {
		t.Errorf("winner should get first_complete, got %+v", win)
	}

	_, err = second.SubmitEventSolution(ctx, "user-b", "DEEPER")
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("loser err = %v, want ErrAlreadyCompleted", err)
	}

	event := registry.events["E1"]
	if event.CompletedBy == nil || *event.CompletedBy != "user-a" {
		t.Errorf("registry completedBy = %v, want user-a", event.CompletedBy)
	}
	if event.IsActive {
		t.Error("completed event should be inactive")
	}
}

func TestSubmitEventSolutionCaseSensitive(t *testing.T) {
	registry := newFakeRegistry()
	registry.addEvent(activeEvent("E1", "DEEPER"))

	eng := newTestEngine(t, registry, Hooks{})
	ctx := context.Background()
	if err := eng.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	_, err := eng.SubmitEventSolution(ctx, "user-a", "deeper")
	if !errors.Is(err, ErrIncorrectSolution) {
		t.Fatalf("err = %v, want ErrIncorrectSolution", err)
	}
	if registry.events["E1"].CompletedAt != nil {
		t.Error("incorrect solution must not change registry state")
	}

	// A wrong guess is retryable
	if _, err := eng.SubmitEventSolution(ctx, "user-a", "DEEPER"); err != nil {
		t.Fatalf("retry with correct solution: %v", err)
	}
}

func TestSubmitEventSolutionNoEvent(t *testing.T) {
	eng := newTestEngine(t, newFakeRegistry(), Hooks{})
	_, err := eng.SubmitEventSolution(context.Background(), "user-a", "ANYTHING")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFragmentCollection(t *testing.T) {
	registry := newFakeRegistry()
	registry.addEvent(activeEvent("E1", "DEEPER", "F1", "F2", "F3", "F4", "F5"))

	eng := newTestEngine(t, registry, Hooks{})
	if err := eng.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Fragment codes match case-insensitively
	progress, collected := eng.CollectFragment("f3")
	if !collected {
		t.Fatal("expected f3 to match fragment F3")
	}
	if progress.Collected != 1 || progress.Total != 5 || progress.AllDone {
		t.Errorf("progress = %+v, want {1 5 false}", progress)
	}

	// Re-collecting is a no-op
	progress, collected = eng.CollectFragment("F3")
	if collected {
		t.Error("re-collecting F3 should report no change")
	}
	if progress.Collected != 1 {
		t.Errorf("progress.Collected = %d after re-collect, want 1", progress.Collected)
	}

	if _, collected := eng.CollectFragment("F9"); collected {
		t.Error("unknown fragment code should not collect")
	}

	for _, code := range []string{"F1", "F2", "F4", "F5"} {
		eng.CollectFragment(code)
	}
	if progress := eng.GetProgress(); !progress.AllDone {
		t.Errorf("progress = %+v, want all done", progress)
	}
}

func TestEventRolloverResetsFragmentsKeepsUnlocks(t *testing.T) {
	registry := newFakeRegistry()
	registry.addEvent(activeEvent("E1", "DEEPER", "F1", "F2", "F3"))

	eng := newTestEngine(t, registry, Hooks{})
	ctx := context.Background()
	if err := eng.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	eng.CollectFragment("F1")
	eng.CollectFragment("F2")
	if _, err := eng.RequestGlobalUnlock(ctx, "tape-03", "wiring"); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	// A feed INSERT with a different event ID means a new event began,
	// even if the completion of E1 was never observed
	next := activeEvent("E2", "OTHER", "G1", "G2", "G3")
	eng.Apply(Change{ChangeType: ChangeInsert, EntityType: EntityGlobalEvent, Event: &next})

	if progress := eng.GetProgress(); progress.Collected != 0 {
		t.Errorf("fragments survived rollover: %+v", progress)
	}
	if !eng.IsUnlocked("tape-03") {
		t.Error("permanent unlocks must survive rollover")
	}
	if current := eng.CurrentEvent(); current == nil || current.ID != "E2" {
		t.Errorf("current event = %+v, want E2", current)
	}
}

func TestStaleEventRedeliveryIgnored(t *testing.T) {
	registry := newFakeRegistry()

	var newEvents int
	eng := newTestEngine(t, registry, Hooks{
		OnNewEvent: func(models.GlobalEvent) { newEvents++ },
	})

	first := activeEvent("E1", "DEEPER")
	now := time.Now()
	by := "user-z"
	done := first
	done.CompletedAt = &now
	done.CompletedBy = &by
	done.IsActive = false

	eng.Apply(Change{ChangeType: ChangeUpdate, EntityType: EntityGlobalEvent, Event: &done})
	next := activeEvent("E2", "OTHER", "G1", "G2", "G3")
	eng.Apply(Change{ChangeType: ChangeInsert, EntityType: EntityGlobalEvent, Event: &next})
	eng.CollectFragment("G1")

	// The feed redelivers the previous event's changes after the rollover;
	// neither may roll the cache backwards
	eng.Apply(Change{ChangeType: ChangeUpdate, EntityType: EntityGlobalEvent, Event: &done})
	eng.Apply(Change{ChangeType: ChangeInsert, EntityType: EntityGlobalEvent, Event: &first})

	if current := eng.CurrentEvent(); current == nil || current.ID != "E2" {
		t.Errorf("current event = %+v, want E2", current)
	}
	if progress := eng.GetProgress(); progress.Collected != 1 {
		t.Errorf("fragments wiped by stale redelivery: %+v", progress)
	}
	if newEvents != 2 {
		t.Errorf("new event notified %d times, want 2", newEvents)
	}
}

func TestSubmitEventSolutionRedactedRegistry(t *testing.T) {
	registry := newFakeRegistry()
	registry.addEvent(activeEvent("E1", "DEEPER"))

	eng := newTestEngine(t, judgingRegistry{redactedRegistry{registry}}, Hooks{})
	ctx := context.Background()
	if err := eng.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// The redacted event cannot be compared locally; the judgment happens
	// at the store and a wrong answer still reads as a wrong answer
	_, err := eng.SubmitEventSolution(ctx, "user-a", "deeper")
	if !errors.Is(err, ErrIncorrectSolution) {
		t.Fatalf("wrong answer err = %v, want ErrIncorrectSolution", err)
	}

	result, err := eng.SubmitEventSolution(ctx, "user-a", "DEEPER")
	if err != nil {
		t.Fatalf("correct answer: %v", err)
	}
	if !result.Success || !result.FirstComplete {
		t.Errorf("result = %+v, want first complete", result)
	}
	if current := eng.CurrentEvent(); current == nil || !current.IsCompleted() {
		t.Errorf("cached event not refreshed after delegated win: %+v", current)
	}
}

func TestSubmitEventSolutionRedactedWithoutSubmitter(t *testing.T) {
	registry := newFakeRegistry()
	registry.addEvent(activeEvent("E1", "DEEPER"))

	eng := newTestEngine(t, redactedRegistry{registry}, Hooks{})
	ctx := context.Background()
	if err := eng.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// A correct answer must not be misreported as incorrect when it was
	// never judged at all
	_, err := eng.SubmitEventSolution(ctx, "user-a", "DEEPER")
	if !errors.Is(err, ErrSolutionUnavailable) {
		t.Fatalf("err = %v, want ErrSolutionUnavailable", err)
	}
	if errors.Is(err, ErrIncorrectSolution) {
		t.Fatal("unjudged submission must not read as a wrong answer")
	}
	if registry.events["E1"].CompletedAt != nil {
		t.Error("registry state must be unchanged")
	}
}

func TestOfflineSolveReconciliation(t *testing.T) {
	config.Puzzles = "memory-01:tape-01,plain-07"
	config.LoadPuzzles()

	registry := newFakeRegistry()
	registry.insertErr = errors.New("network is down")

	var notified int
	eng := newTestEngine(t, registry, Hooks{
		OnNewUnlock: func(models.UnlockRecord) { notified++ },
	})
	ctx := context.Background()

	// Solve while offline: the ledger keeps the completion, the unlock
	// write fails and stays pending
	_, err := eng.RecordLocalCompletion(ctx, "memory-01")
	if !IsNetworkError(err) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if !eng.Ledger().IsCompleted("memory-01") {
		t.Fatal("completion must be persisted before the network call")
	}
	if !eng.PendingUnlock("tape-01") {
		t.Fatal("failed unlock should stay pending")
	}

	// Reconnect and retry
	registry.mu.Lock()
	registry.insertErr = nil
	registry.mu.Unlock()
	if err := eng.FlushPending(ctx); err != nil {
		t.Fatalf("FlushPending: %v", err)
	}
	if eng.PendingUnlock("tape-01") {
		t.Error("pending unlock should be confirmed after retry")
	}
	if !eng.IsUnlocked("tape-01") {
		t.Error("unlock should be confirmed after retry")
	}

	// The feed later redelivers the same record; state must not regress
	// and the session is not re-notified about content it already has
	record := registry.unlocks["tape-01"]
	eng.Apply(Change{ChangeType: ChangeInsert, EntityType: EntityUnlockRecord, Unlock: &record})
	eng.Apply(Change{ChangeType: ChangeInsert, EntityType: EntityUnlockRecord, Unlock: &record})

	if got := eng.Ledger().Count(); got != 1 {
		t.Errorf("ledger count = %d after redelivery, want 1", got)
	}
	if notified != 0 {
		t.Errorf("session notified %d times about its own unlock, want 0", notified)
	}
}

func TestFeedNotificationsFireOnce(t *testing.T) {
	registry := newFakeRegistry()

	var newUnlocks, completions int
	eng := newTestEngine(t, registry, Hooks{
		OnNewUnlock:      func(models.UnlockRecord) { newUnlocks++ },
		OnEventCompleted: func(models.GlobalEvent) { completions++ },
	})

	open := activeEvent("E1", "DEEPER")
	eng.Apply(Change{ChangeType: ChangeInsert, EntityType: EntityGlobalEvent, Event: &open})

	// Redelivered unlock insert notifies exactly once
	record := models.UnlockRecord{ContentID: "tape-09", UnlockedBy: "someone-else", UnlockedAt: time.Now(), Method: "keypad"}
	eng.Apply(Change{ChangeType: ChangeInsert, EntityType: EntityUnlockRecord, Unlock: &record})
	eng.Apply(Change{ChangeType: ChangeInsert, EntityType: EntityUnlockRecord, Unlock: &record})
	if newUnlocks != 1 {
		t.Errorf("new unlock notified %d times, want 1", newUnlocks)
	}

	// Redelivered completion update notifies exactly once
	done := open
	now := time.Now()
	by := "user-z"
	done.CompletedAt = &now
	done.CompletedBy = &by
	done.IsActive = false
	eng.Apply(Change{ChangeType: ChangeUpdate, EntityType: EntityGlobalEvent, Event: &done})
	eng.Apply(Change{ChangeType: ChangeUpdate, EntityType: EntityGlobalEvent, Event: &done})
	if completions != 1 {
		t.Errorf("completion notified %d times, want 1", completions)
	}
}

func TestTimeRemainingStoppedEvent(t *testing.T) {
	registry := newFakeRegistry()
	stopped := activeEvent("E1", "DEEPER")
	stopped.IsActive = false
	registry.addEvent(stopped)

	eng := newTestEngine(t, registry, Hooks{})
	eng.Apply(Change{ChangeType: ChangeUpdate, EntityType: EntityGlobalEvent, Event: &stopped})

	// An operator stop kills the countdown immediately, even though the
	// 12-hour window has not elapsed
	if remaining := eng.TimeRemaining(); !remaining.Expired {
		t.Errorf("remaining = %+v, want expired for a stopped event", remaining)
	}
	if eng.IsEventActive() {
		t.Error("stopped event must not report active")
	}
}

func TestAttachAndClose(t *testing.T) {
	registry := newFakeRegistry()
	eng := newTestEngine(t, registry, Hooks{})
	feed := &fakeFeed{}

	eng.Attach(feed)
	record := models.UnlockRecord{ContentID: "tape-11", UnlockedBy: "other", UnlockedAt: time.Now()}
	feed.Deliver(Change{ChangeType: ChangeInsert, EntityType: EntityUnlockRecord, Unlock: &record})
	if !eng.IsUnlocked("tape-11") {
		t.Fatal("attached engine should apply feed changes")
	}

	eng.Close()
	other := models.UnlockRecord{ContentID: "tape-12", UnlockedBy: "other", UnlockedAt: time.Now()}
	feed.Deliver(Change{ChangeType: ChangeInsert, EntityType: EntityUnlockRecord, Unlock: &other})
	if eng.IsUnlocked("tape-12") {
		t.Error("closed engine should no longer receive feed changes")
	}
}

func TestFragmentStateSurvivesRestart(t *testing.T) {
	registry := newFakeRegistry()
	registry.addEvent(activeEvent("E1", "DEEPER", "F1", "F2", "F3"))
	store := storage.NewMemStore()

	eng, err := New(registry, store, "device-restart", Hooks{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := eng.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	eng.CollectFragment("F1")

	reborn, err := New(registry, store, "device-restart", Hooks{})
	if err != nil {
		t.Fatalf("New reborn: %v", err)
	}
	if err := reborn.Init(context.Background()); err != nil {
		t.Fatalf("Init reborn: %v", err)
	}
	if progress := reborn.GetProgress(); progress.Collected != 1 {
		t.Errorf("progress after restart = %+v, want 1 collected", progress)
	}
}
