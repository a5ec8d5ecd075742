package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vault/config"
	"vault/database"
	"vault/engine"
	"vault/metrics"
	"vault/models"
	"vault/realtime"

	"gorm.io/gorm"
)

// StartEvent creates a new active global event. Any previously active
// event is deactivated first so at most one event runs at a time.
func StartEvent(ctx context.Context, title, description, solution string, puzzleData *models.EventPuzzleData) (*models.GlobalEvent, error) {
	if title == "" || solution == "" {
		return nil, fmt.Errorf("%w: title and solution are required", engine.ErrValidation)
	}

	err := database.DB.WithContext(ctx).Model(&models.GlobalEvent{}).
		Where("is_active = true").
		Update("is_active", false).Error
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate previous events: %w", err)
	}

	event := models.GlobalEvent{
		Title:         title,
		Description:   description,
		Solution:      solution,
		StartedAt:     time.Now(),
		WindowSeconds: config.EventWindowSeconds,
		IsActive:      true,
		PuzzleData:    puzzleData,
	}
	if err := database.DB.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	realtime.Publish(engine.Change{
		ChangeType: engine.ChangeInsert,
		EntityType: engine.EntityGlobalEvent,
		Event:      redacted(event),
	})
	return &event, nil
}

// GetActiveEvent returns the current active event, or nil when none is running
func GetActiveEvent(ctx context.Context) (*models.GlobalEvent, error) {
	var event models.GlobalEvent
	err := database.DB.WithContext(ctx).Where("is_active = true").
		Order("started_at DESC").First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch active event: %w", err)
	}
	return &event, nil
}

// GetEvent returns the event by ID regardless of state
func GetEvent(ctx context.Context, eventID string) (*models.GlobalEvent, error) {
	var event models.GlobalEvent
	err := database.DB.WithContext(ctx).First(&event, "id = ?", eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("event %s: %w", eventID, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}
	return &event, nil
}

// CompleteEventIfOpen performs the one-time completion transition: it sets
// completed_at, completed_by and clears is_active only if completed_at is
// still null at write time. RowsAffected distinguishes the CAS winner from
// everyone who lost the race.
func CompleteEventIfOpen(ctx context.Context, eventID, completedBy string) (*models.GlobalEvent, error) {
	defer metrics.RecordDBOperation("update", "global_events", time.Now())

	now := time.Now()
	result := database.DB.WithContext(ctx).Model(&models.GlobalEvent{}).
		Where("id = ? AND completed_at IS NULL", eventID).
		Updates(map[string]interface{}{
			"completed_at": now,
			"completed_by": completedBy,
			"is_active":    false,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to complete event: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Either the event is already completed or it does not exist
		event, err := GetEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if event.IsCompleted() {
			return nil, fmt.Errorf("event %s: %w", eventID, engine.ErrAlreadyCompleted)
		}
		return nil, fmt.Errorf("event %s could not be completed", eventID)
	}

	event, err := GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	realtime.Publish(engine.Change{
		ChangeType: engine.ChangeUpdate,
		EntityType: engine.EntityGlobalEvent,
		Event:      redacted(*event),
	})
	return event, nil
}

// InsertEventCompletion records a participant's completion. A duplicate
// (event_id, user_id) pair returns engine.ErrDuplicate, which callers
// swallow: losing that race is benign.
func InsertEventCompletion(ctx context.Context, eventID, userID string, timeTakenSeconds int64) error {
	completion := models.EventCompletion{
		EventID:          eventID,
		UserID:           userID,
		CompletedAt:      time.Now(),
		TimeTakenSeconds: timeTakenSeconds,
	}
	if err := database.DB.WithContext(ctx).Create(&completion).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("completion for %s/%s: %w", eventID, userID, engine.ErrDuplicate)
		}
		return fmt.Errorf("failed to create event completion: %w", err)
	}
	return nil
}

// GetEventCompletions returns the completions for an event, fastest first
func GetEventCompletions(ctx context.Context, eventID string) ([]models.EventCompletion, error) {
	var completions []models.EventCompletion
	err := database.DB.WithContext(ctx).Where("event_id = ?", eventID).
		Order("completed_at ASC").Find(&completions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event completions: %w", err)
	}
	return completions, nil
}

// StopEvent force-closes an active event without a completion. The
// client-side countdown treats a stopped event as expired immediately.
func StopEvent(ctx context.Context, eventID string) (*models.GlobalEvent, error) {
	result := database.DB.WithContext(ctx).Model(&models.GlobalEvent{}).
		Where("id = ? AND is_active = true", eventID).
		Update("is_active", false)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to stop event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("event %s: %w", eventID, engine.ErrNotFound)
	}

	event, err := GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	realtime.Publish(engine.Change{
		ChangeType: engine.ChangeUpdate,
		EntityType: engine.EntityGlobalEvent,
		Event:      redacted(*event),
	})
	return event, nil
}

// ResetEvent purges an event and all of its child records
func ResetEvent(ctx context.Context, eventID string) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&models.EventCompletion{}).Error; err != nil {
			return fmt.Errorf("failed to delete event completions: %w", err)
		}
		result := tx.Delete(&models.GlobalEvent{}, "id = ?", eventID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete event: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("event %s: %w", eventID, engine.ErrNotFound)
		}
		return nil
	})
}

// redacted strips the solution before a record leaves the server
func redacted(event models.GlobalEvent) *models.GlobalEvent {
	event.Solution = ""
	return &event
}
