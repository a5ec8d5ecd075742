package services

import (
	"context"
	"errors"
	"fmt"

	"vault/database"
	"vault/engine"
	"vault/models"

	"gorm.io/gorm"
)

// GetAllTapes returns every tape in the archive
func GetAllTapes(ctx context.Context) ([]models.Tape, error) {
	var tapes []models.Tape
	if err := database.DB.WithContext(ctx).Order("slug ASC").Find(&tapes).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tapes: %w", err)
	}
	return tapes, nil
}

// GetTapeBySlug returns a single tape by its slug
func GetTapeBySlug(ctx context.Context, slug string) (*models.Tape, error) {
	var tape models.Tape
	err := database.DB.WithContext(ctx).Where("slug = ?", slug).First(&tape).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tape %s: %w", slug, engine.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch tape: %w", err)
	}
	return &tape, nil
}

// TapeIsVisible reports whether the tape is visible to visitors: either it
// has no gating puzzle or its content has been unlocked registry-wide
func TapeIsVisible(ctx context.Context, tape *models.Tape) (bool, error) {
	if tape.PuzzleID == "" {
		return true, nil
	}

	_, err := GetUnlockRecord(ctx, tape.Slug)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
