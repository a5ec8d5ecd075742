package engine

import "vault/models"

// Change types delivered by the registry's change feed
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
)

// Entity types carried on the change feed
const (
	EntityGlobalEvent  = "global_event"
	EntityUnlockRecord = "unlock_record"
)

// Change is a single change-feed notification. Delivery is at-least-once
// and unordered across entity types, but ordered for a single row.
// Exactly one of Event or Unlock is set, matching EntityType.
type Change struct {
	ChangeType string               `json:"change_type"`
	EntityType string               `json:"entity_type"`
	Event      *models.GlobalEvent  `json:"event,omitempty"`
	Unlock     *models.UnlockRecord `json:"unlock,omitempty"`
}

// Feed delivers registry changes to a subscriber. Subscribe returns an
// unsubscribe function; the engine subscribes on Attach and unsubscribes
// on Close.
type Feed interface {
	Subscribe(fn func(Change)) (unsubscribe func())
}
