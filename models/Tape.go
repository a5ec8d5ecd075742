package models

// Tape represents a piece of archive media (tape, recording or document)
// that becomes visible site-wide once its gating puzzle has been solved
type Tape struct {
	ID          string `gorm:"type:uuid;default:gen_random_uuid();primary_key" json:"id"`
	Slug        string `gorm:"type:varchar(100);unique;not null" json:"slug"`
	Title       string `gorm:"type:varchar(100);not null" json:"title"`
	Description string `gorm:"type:varchar(255)" json:"description"`
	Kind        string `gorm:"type:varchar(20);not null;default:'tape'" json:"kind"` // "tape", "recording" or "document"
	MediaURL    string `gorm:"type:varchar(255);column:media_url" json:"media_url"`
	PuzzleID    string `gorm:"type:varchar(100);column:puzzle_id" json:"puzzle_id"` // puzzle that gates this tape, empty if always visible
}
