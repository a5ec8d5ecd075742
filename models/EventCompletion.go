package models

import "time"

// EventCompletion records that a participant finished a global event.
// Unique per (event_id, user_id); inserting a duplicate under race is
// expected and treated as a benign no-op by the services layer.
type EventCompletion struct {
	ID               string    `gorm:"type:uuid;default:gen_random_uuid();primary_key" json:"id"`
	EventID          string    `gorm:"type:uuid;not null;uniqueIndex:idx_event_user;column:event_id" json:"event_id"`
	UserID           string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_event_user;column:user_id" json:"user_id"`
	CompletedAt      time.Time `gorm:"not null;column:completed_at" json:"completed_at"`
	TimeTakenSeconds int64     `gorm:"not null;column:time_taken_seconds" json:"time_taken_seconds"`
}
