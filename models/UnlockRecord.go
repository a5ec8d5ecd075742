package models

import "time"

// UnlockRecord marks a piece of content as unlocked for every visitor.
// The unique index on content_id is the sole arbiter when multiple
// sessions race to unlock the same content: the first insert wins and
// every later insert fails with a uniqueness violation.
type UnlockRecord struct {
	ID         string    `gorm:"type:uuid;default:gen_random_uuid();primary_key" json:"id"`
	ContentID  string    `gorm:"type:varchar(100);uniqueIndex;not null;column:content_id" json:"content_id"`
	UnlockedBy string    `gorm:"type:varchar(100);not null;column:unlocked_by" json:"unlocked_by"`
	UnlockedAt time.Time `gorm:"not null;column:unlocked_at" json:"unlocked_at"`
	Method     string    `gorm:"type:varchar(50);not null" json:"method"` // e.g. "memory-match", "keypad", "operator"
}
