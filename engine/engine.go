package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"vault/config"
	"vault/models"
	"vault/storage"
)

const (
	pendingStorageKey   = "vault:pending-unlocks"
	fragmentsStorageKey = "vault:fragments"
)

// Hooks are optional notification callbacks raised by the engine. Each
// fires at most once per underlying state transition, no matter how many
// times the change feed redelivers the same record.
type Hooks struct {
	OnNewUnlock      func(models.UnlockRecord)
	OnEventCompleted func(models.GlobalEvent)
	OnNewEvent       func(models.GlobalEvent)
}

// Progress is the fragment-collection view for the current event
type Progress struct {
	Collected int  `json:"collected"`
	Total     int  `json:"total"`
	AllDone   bool `json:"all_done"`
}

// UnlockResult is the outcome of a global unlock request. Losing the race
// is a success from the visitor's point of view: the content is unlocked.
type UnlockResult struct {
	Success         bool                 `json:"success"`
	AlreadyUnlocked bool                 `json:"already_unlocked"`
	Record          *models.UnlockRecord `json:"record,omitempty"`
}

// SolutionResult is the outcome of an event solution submission.
// FirstComplete is true only for the CAS winner.
type SolutionResult struct {
	Success       bool `json:"success"`
	FirstComplete bool `json:"first_complete"`
}

// fragmentState is the persisted per-event fragment progress. It is reset
// whenever a different event ID is observed.
type fragmentState struct {
	EventID   string   `json:"event_id"`
	Collected []string `json:"collected"`
}

// Engine keeps the device-local ledger and the cached registry state
// reconciled under concurrent, unordered updates from many sessions.
// Commands update local state optimistically, issue conditional writes to
// the registry, and rely on idempotent merging when the change feed later
// redelivers the same (or the winning) record.
type Engine struct {
	mu       sync.Mutex
	registry Registry
	store    storage.Store
	ledger   *Ledger
	deviceID string
	hooks    Hooks
	now      func() time.Time

	// confirmed unlocks, keyed by content ID
	unlocks map[string]models.UnlockRecord
	// optimistic unlock requests not yet confirmed by the registry,
	// content ID to solve method
	pending map[string]string

	event     *models.GlobalEvent
	fragments map[string]bool
	// event IDs observed this session; blocks a redelivered change for a
	// previous event from rolling the cache backwards
	seen map[string]bool

	unsubscribe func()
}

// New creates an engine for one device/session. deviceID is the opaque
// locally generated investigator identifier.
func New(registry Registry, store storage.Store, deviceID string, hooks Hooks) (*Engine, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: empty device id", ErrValidation)
	}

	ledger, err := NewLedger(store)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		registry:  registry,
		store:     store,
		ledger:    ledger,
		deviceID:  deviceID,
		hooks:     hooks,
		now:       time.Now,
		unlocks:   make(map[string]models.UnlockRecord),
		pending:   make(map[string]string),
		fragments: make(map[string]bool),
		seen:      make(map[string]bool),
	}

	if raw, exists := store.Get(pendingStorageKey); exists {
		if err := json.Unmarshal(raw, &e.pending); err != nil {
			return nil, fmt.Errorf("failed to parse pending unlocks: %w", err)
		}
	}

	var frags fragmentState
	if raw, exists := store.Get(fragmentsStorageKey); exists {
		if err := json.Unmarshal(raw, &frags); err != nil {
			return nil, fmt.Errorf("failed to parse fragment state: %w", err)
		}
		if frags.EventID != "" {
			e.event = &models.GlobalEvent{ID: frags.EventID}
			e.seen[frags.EventID] = true
			for _, id := range frags.Collected {
				e.fragments[id] = true
			}
		}
	}

	return e, nil
}

// Ledger exposes the device's completion ledger
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Init loads the authoritative state: the unlocked content set and the
// current active event. Safe to call again after a reconnect.
func (e *Engine) Init(ctx context.Context) error {
	ids, err := e.registry.GetUnlockedContentIDs(ctx)
	if err != nil {
		return asNetworkError("load unlocks", err)
	}

	e.mu.Lock()
	for _, id := range ids {
		if _, exists := e.unlocks[id]; !exists {
			e.unlocks[id] = models.UnlockRecord{ContentID: id}
		}
	}
	e.mu.Unlock()

	event, err := e.registry.GetActiveEvent(ctx)
	if err != nil {
		return asNetworkError("load active event", err)
	}
	if event != nil {
		e.observeEvent(*event)
	}
	return nil
}

// Attach subscribes the engine to a change feed. The returned lifecycle is
// owned by the engine: Close tears the subscription down. Attaching twice
// replaces the previous subscription.
func (e *Engine) Attach(feed Feed) {
	e.mu.Lock()
	previous := e.unsubscribe
	e.mu.Unlock()
	if previous != nil {
		previous()
	}

	unsubscribe := feed.Subscribe(e.Apply)
	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.mu.Unlock()
}

// Close detaches the engine from the change feed
func (e *Engine) Close() {
	e.mu.Lock()
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// IsUnlocked reports whether contentID is confirmed unlocked registry-wide
func (e *Engine) IsUnlocked(contentID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, exists := e.unlocks[contentID]
	return exists
}

// PendingUnlock reports whether an unlock request for contentID is still
// waiting for registry confirmation
func (e *Engine) PendingUnlock(contentID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, exists := e.pending[contentID]
	return exists
}

// CurrentEvent returns a copy of the cached event, or nil when none is known
func (e *Engine) CurrentEvent() *models.GlobalEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.event == nil {
		return nil
	}
	event := *e.event
	return &event
}

// IsEventActive reports whether the cached event is running right now:
// active, not completed and inside its window
func (e *Engine) IsEventActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.event == nil || !e.event.IsActive || e.event.IsCompleted() {
		return false
	}
	return !Remaining(e.event.StartedAt, e.event.WindowSeconds, e.now()).Expired
}

// TimeRemaining returns the live countdown for the cached event. An
// operator-stopped event reports expired immediately instead of leaving a
// stale countdown ticking.
func (e *Engine) TimeRemaining() RemainingTime {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.event == nil || !e.event.IsActive {
		return RemainingTime{Expired: true}
	}
	return Remaining(e.event.StartedAt, e.event.WindowSeconds, e.now())
}

// GetProgress returns the fragment-collection progress for the current event
func (e *Engine) GetProgress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := config.DefaultTotalPuzzles
	if e.event != nil && e.event.PuzzleData != nil && e.event.PuzzleData.TotalPuzzles > 0 {
		total = e.event.PuzzleData.TotalPuzzles
	}

	collected := len(e.fragments)
	return Progress{
		Collected: collected,
		Total:     total,
		AllDone:   collected >= total,
	}
}

// RecordLocalCompletion handles a puzzle widget reporting success. The
// completion is persisted to the device ledger before any network call, so
// it survives a crashed tab or a failed request. If the puzzle gates a
// tape, a global unlock is requested; a NetworkError there leaves the
// unlock pending for a later FlushPending.
func (e *Engine) RecordLocalCompletion(ctx context.Context, puzzleID string) (UnlockResult, error) {
	def := config.GetPuzzle(puzzleID)
	if def == nil {
		return UnlockResult{}, fmt.Errorf("%w: unknown puzzle %q", ErrNotFound, puzzleID)
	}
	if !def.Enabled {
		return UnlockResult{}, fmt.Errorf("%w: puzzle %q is disabled", ErrValidation, puzzleID)
	}

	if err := e.ledger.RecordCompletion(puzzleID, e.now()); err != nil {
		return UnlockResult{}, err
	}

	if def.RewardContentID == "" {
		return UnlockResult{Success: true}, nil
	}
	return e.RequestGlobalUnlock(ctx, def.RewardContentID, puzzleID)
}

// RequestGlobalUnlock races to be first to unlock contentID. The registry's
// uniqueness constraint is the sole arbiter: every racing session ends in
// the same terminal state once the winning record has been merged.
func (e *Engine) RequestGlobalUnlock(ctx context.Context, contentID, method string) (UnlockResult, error) {
	if contentID == "" {
		return UnlockResult{}, fmt.Errorf("%w: empty content id", ErrValidation)
	}

	// Local fast-path: no network call when the winner is already cached
	e.mu.Lock()
	if record, exists := e.unlocks[contentID]; exists {
		e.mu.Unlock()
		return UnlockResult{AlreadyUnlocked: true, Record: &record}, nil
	}

	// Optimistic phase: remember the in-flight request so it can be
	// retried after a crash or network failure
	e.pending[contentID] = method
	e.persistPendingLocked()
	e.mu.Unlock()

	record, err := e.registry.InsertUnlockRecord(ctx, contentID, e.deviceID, method)
	if err == nil {
		e.mergeUnlock(*record, false)
		return UnlockResult{Success: true, Record: record}, nil
	}

	if errors.Is(err, ErrDuplicate) {
		// Lost the race. Merge whatever record is now authoritative; if
		// the fetch fails the change feed will deliver it eventually.
		winner, fetchErr := e.registry.GetUnlockRecord(ctx, contentID)
		if fetchErr == nil {
			e.mergeUnlock(*winner, false)
			return UnlockResult{AlreadyUnlocked: true, Record: winner}, nil
		}

		e.mu.Lock()
		delete(e.pending, contentID)
		e.persistPendingLocked()
		e.mu.Unlock()
		return UnlockResult{AlreadyUnlocked: true}, nil
	}

	// The request stays pending; FlushPending retries it later
	return UnlockResult{}, asNetworkError("insert unlock", err)
}

// FlushPending retries every unlock request that never got a registry
// verdict, typically after a reconnect
func (e *Engine) FlushPending(ctx context.Context) error {
	e.mu.Lock()
	retries := make(map[string]string, len(e.pending))
	for contentID, method := range e.pending {
		retries[contentID] = method
	}
	e.mu.Unlock()

	var firstErr error
	for contentID, method := range retries {
		if _, err := e.RequestGlobalUnlock(ctx, contentID, method); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CollectFragment checks a fragment code against the current event's
// fragments. Codes match case-insensitively, unlike the final solution.
// Returns the updated progress and whether the code matched a fragment
// that was not yet collected.
func (e *Engine) CollectFragment(code string) (Progress, bool) {
	e.mu.Lock()

	var matched string
	if e.event != nil && e.event.PuzzleData != nil {
		for _, fragment := range e.event.PuzzleData.Fragments {
			if strings.EqualFold(fragment.ID, code) {
				matched = fragment.ID
				break
			}
		}
	}

	if matched == "" || e.fragments[matched] {
		e.mu.Unlock()
		return e.GetProgress(), false
	}

	e.fragments[matched] = true
	e.persistFragmentsLocked()
	e.mu.Unlock()
	return e.GetProgress(), true
}

// SubmitEventSolution attempts the one-time completion of the event. The
// comparison is exact and case-sensitive. Exactly one concurrent caller
// wins the conditional update; everyone else gets ErrAlreadyCompleted.
func (e *Engine) SubmitEventSolution(ctx context.Context, userID, solution string) (SolutionResult, error) {
	if userID == "" || solution == "" {
		return SolutionResult{}, fmt.Errorf("%w: user id and solution are required", ErrValidation)
	}

	event, err := e.fetchCurrentEvent(ctx)
	if err != nil {
		return SolutionResult{}, err
	}

	if event.IsCompleted() {
		e.observeEvent(*event)
		return SolutionResult{}, ErrAlreadyCompleted
	}

	// A real event always carries a solution; an empty one means this
	// registry redacts it and must judge the submission itself
	if event.Solution == "" {
		submitter, ok := e.registry.(SolutionSubmitter)
		if !ok {
			return SolutionResult{}, fmt.Errorf("event %s: %w", event.ID, ErrSolutionUnavailable)
		}
		result, err := submitter.SubmitEventSolution(ctx, event.ID, userID, solution)
		if err != nil {
			return SolutionResult{}, err
		}
		if updated, fetchErr := e.registry.GetEvent(ctx, event.ID); fetchErr == nil {
			e.observeEvent(*updated)
		}
		return result, nil
	}

	if event.Solution != solution {
		return SolutionResult{}, ErrIncorrectSolution
	}

	updated, err := e.registry.UpdateEventIfNotCompleted(ctx, event.ID, userID)
	if err != nil {
		if errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrDuplicate) {
			return SolutionResult{}, ErrAlreadyCompleted
		}
		return SolutionResult{}, asNetworkError("complete event", err)
	}

	// Best-effort completion row; losing this race is not an error
	timeTaken := int64(e.now().Sub(event.StartedAt) / time.Second)
	if err := e.registry.InsertEventCompletion(ctx, event.ID, userID, timeTaken); err != nil && !errors.Is(err, ErrDuplicate) {
		log.Printf("Failed to record event completion: %v", err)
	}

	e.observeEvent(*updated)
	return SolutionResult{Success: true, FirstComplete: true}, nil
}

// Apply is the change feed callback. Delivery is at-least-once, so every
// branch must be idempotent: re-applying a change never duplicates a
// notification or regresses local state.
func (e *Engine) Apply(change Change) {
	switch change.EntityType {
	case EntityUnlockRecord:
		if change.Unlock != nil {
			e.mergeUnlock(*change.Unlock, true)
		}
	case EntityGlobalEvent:
		if change.Event != nil {
			e.observeEvent(*change.Event)
		}
	}
}

// mergeUnlock merges an authoritative unlock record into the cache.
// viaFeed distinguishes feed deliveries from the session's own write
// callback so that the session does not get notified about its own unlock.
func (e *Engine) mergeUnlock(record models.UnlockRecord, viaFeed bool) {
	e.mu.Lock()

	_, known := e.unlocks[record.ContentID]
	_, wasPending := e.pending[record.ContentID]

	e.unlocks[record.ContentID] = record
	if wasPending {
		delete(e.pending, record.ContentID)
		e.persistPendingLocked()
	}

	notify := viaFeed && !known && !wasPending && e.hooks.OnNewUnlock != nil
	e.mu.Unlock()

	if notify {
		e.hooks.OnNewUnlock(record)
	}
}

// observeEvent reconciles an event record from any source (initial load,
// own write result or change feed). A never-seen event ID means a previous
// event ended and a new one began, even if this session missed the
// transition notification: event-scoped progress is reset, permanent
// unlocks are kept. A change carrying an already-seen, non-current ID is a
// feed redelivery arriving after the rollover; current state wins.
func (e *Engine) observeEvent(event models.GlobalEvent) {
	e.mu.Lock()

	rollover := e.event == nil || e.event.ID != event.ID
	if rollover && e.seen[event.ID] {
		e.mu.Unlock()
		return
	}
	e.seen[event.ID] = true
	wasOpen := e.event != nil && e.event.ID == event.ID && !e.event.IsCompleted()

	if rollover && len(e.fragments) > 0 {
		e.fragments = make(map[string]bool)
	}

	e.event = &event
	if rollover {
		e.persistFragmentsLocked()
	}

	notifyNew := rollover && e.hooks.OnNewEvent != nil
	notifyCompleted := wasOpen && event.IsCompleted() && e.hooks.OnEventCompleted != nil
	e.mu.Unlock()

	if notifyNew {
		e.hooks.OnNewEvent(event)
	}
	if notifyCompleted {
		e.hooks.OnEventCompleted(event)
	}
}

// fetchCurrentEvent returns a fresh copy of the current event from the
// registry, preferring the cached event ID so a completed or stopped event
// can still be resolved.
func (e *Engine) fetchCurrentEvent(ctx context.Context) (*models.GlobalEvent, error) {
	e.mu.Lock()
	cachedID := ""
	if e.event != nil {
		cachedID = e.event.ID
	}
	e.mu.Unlock()

	if cachedID != "" {
		event, err := e.registry.GetEvent(ctx, cachedID)
		if err == nil {
			return event, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, asNetworkError("fetch event", err)
		}
		// cached event was purged by an operator reset; fall through
	}

	event, err := e.registry.GetActiveEvent(ctx)
	if err != nil {
		return nil, asNetworkError("fetch active event", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: no event is running", ErrNotFound)
	}
	return event, nil
}

// persistPendingLocked writes the pending unlock set. Caller must hold e.mu.
func (e *Engine) persistPendingLocked() {
	raw, err := json.Marshal(e.pending)
	if err != nil {
		log.Printf("Failed to encode pending unlocks: %v", err)
		return
	}
	if err := e.store.Set(pendingStorageKey, raw); err != nil {
		log.Printf("Failed to persist pending unlocks: %v", err)
	}
}

// persistFragmentsLocked writes the per-event fragment state. Caller must
// hold e.mu.
func (e *Engine) persistFragmentsLocked() {
	state := fragmentState{}
	if e.event != nil {
		state.EventID = e.event.ID
	}
	for id := range e.fragments {
		state.Collected = append(state.Collected, id)
	}

	raw, err := json.Marshal(state)
	if err != nil {
		log.Printf("Failed to encode fragment state: %v", err)
		return
	}
	if err := e.store.Set(fragmentsStorageKey, raw); err != nil {
		log.Printf("Failed to persist fragment state: %v", err)
	}
}

// asNetworkError wraps transport failures, leaving typed engine errors alone
func asNetworkError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrAlreadyUnlocked) ||
		errors.Is(err, ErrIncorrectSolution) || errors.Is(err, ErrValidation) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}
