package services

import (
	"context"

	"vault/models"
)

// StoreRegistry adapts the services layer to the engine.Registry contract,
// for engines embedded in the same process as the database (kiosk
// deployments, tests against a real database). Events are returned with
// the solution intact; this registry is trusted.
type StoreRegistry struct{}

func (StoreRegistry) GetActiveEvent(ctx context.Context) (*models.GlobalEvent, error) {
	return GetActiveEvent(ctx)
}

func (StoreRegistry) GetEvent(ctx context.Context, eventID string) (*models.GlobalEvent, error) {
	return GetEvent(ctx, eventID)
}

func (StoreRegistry) InsertUnlockRecord(ctx context.Context, contentID, deviceID, method string) (*models.UnlockRecord, error) {
	return InsertUnlockRecord(ctx, contentID, deviceID, method)
}

func (StoreRegistry) GetUnlockRecord(ctx context.Context, contentID string) (*models.UnlockRecord, error) {
	return GetUnlockRecord(ctx, contentID)
}

func (StoreRegistry) GetUnlockedContentIDs(ctx context.Context) ([]string, error) {
	return GetUnlockedContentIDs(ctx)
}

func (StoreRegistry) UpdateEventIfNotCompleted(ctx context.Context, eventID, completedBy string) (*models.GlobalEvent, error) {
	return CompleteEventIfOpen(ctx, eventID, completedBy)
}

func (StoreRegistry) InsertEventCompletion(ctx context.Context, eventID, userID string, timeTakenSeconds int64) error {
	return InsertEventCompletion(ctx, eventID, userID, timeTakenSeconds)
}
