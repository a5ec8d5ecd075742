package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vault/database"
	"vault/engine"
	"vault/metrics"
	"vault/models"
	"vault/realtime"

	"gorm.io/gorm"
)

// InsertUnlockRecord creates the unlock for contentID. The unique index on
// content_id is the sole arbiter under race: the first insert wins and
// every later one returns engine.ErrDuplicate.
func InsertUnlockRecord(ctx context.Context, contentID, deviceID, method string) (*models.UnlockRecord, error) {
	defer metrics.RecordDBOperation("insert", "unlock_records", time.Now())

	record := models.UnlockRecord{
		ContentID:  contentID,
		UnlockedBy: deviceID,
		UnlockedAt: time.Now(),
		Method:     method,
	}

	if err := database.DB.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("unlock for %s: %w", contentID, engine.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create unlock record: %w", err)
	}

	realtime.Publish(engine.Change{
		ChangeType: engine.ChangeInsert,
		EntityType: engine.EntityUnlockRecord,
		Unlock:     &record,
	})
	return &record, nil
}

// GetUnlockRecord returns the authoritative unlock for contentID
func GetUnlockRecord(ctx context.Context, contentID string) (*models.UnlockRecord, error) {
	var record models.UnlockRecord
	err := database.DB.WithContext(ctx).Where("content_id = ?", contentID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unlock for %s: %w", contentID, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch unlock record: %w", err)
	}
	return &record, nil
}

// GetUnlockedContentIDs returns every unlocked content ID
func GetUnlockedContentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := database.DB.WithContext(ctx).Model(&models.UnlockRecord{}).
		Pluck("content_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unlocked content ids: %w", err)
	}
	return ids, nil
}

// GetAllUnlocks returns every unlock record, newest first
func GetAllUnlocks(ctx context.Context) ([]models.UnlockRecord, error) {
	var records []models.UnlockRecord
	err := database.DB.WithContext(ctx).Order("unlocked_at DESC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unlock records: %w", err)
	}
	return records, nil
}
