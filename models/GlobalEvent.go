package models

import "time"

// GlobalEvent represents a time-boxed collaborative challenge with a single
// shared solution. completed_at transitions null to non-null exactly once,
// enforced by a conditional update in the services layer.
type GlobalEvent struct {
	ID            string          `gorm:"type:uuid;default:gen_random_uuid();primary_key" json:"id"`
	Title         string          `gorm:"type:varchar(100);not null" json:"title"`
	Description   string          `gorm:"type:varchar(255)" json:"description"`
	StartedAt     time.Time       `gorm:"not null;column:started_at" json:"started_at"`
	WindowSeconds int64           `gorm:"not null;column:window_seconds" json:"window_seconds"`
	IsActive      bool            `gorm:"not null;default:false;column:is_active" json:"is_active"`
	Solution      string          `gorm:"type:varchar(255);not null" json:"-"` // never serialized to clients
	CompletedAt   *time.Time      `gorm:"column:completed_at" json:"completed_at"`
	CompletedBy   *string         `gorm:"type:varchar(100);column:completed_by" json:"completed_by"`
	PuzzleData    *EventPuzzleData `gorm:"type:jsonb;column:puzzle_data" json:"puzzle_data"`
}

// IsCompleted reports whether the event has reached its terminal state
func (e *GlobalEvent) IsCompleted() bool {
	return e.CompletedAt != nil
}
