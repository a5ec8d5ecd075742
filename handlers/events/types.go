package events

import (
	"vault/engine"
	"vault/models"
)

// Constants for error messages
const (
	ErrEventNotFound        = "Event not found"
	ErrNoActiveEvent        = "No event is currently running"
	ErrInvalidRequest       = "Invalid request data"
	ErrFailedCreateEvent    = "Failed to create event"
	ErrFailedStopEvent      = "Failed to stop event"
	ErrFailedResetEvent     = "Failed to reset event"
	ErrFailedFetchEvent     = "Failed to fetch event"
	ErrFailedSubmitSolution = "Failed to submit solution"
	ErrIncorrectSolution    = "Incorrect solution"
	ErrTooManyGuesses       = "Too many wrong guesses, wait before trying again"
)

// CreateEventRequest model for starting a global event
type CreateEventRequest struct {
	Title        string                 `json:"title" binding:"required"`
	Description  string                 `json:"description"`
	Solution     string                 `json:"solution" binding:"required"`
	TotalPuzzles int                    `json:"total_puzzles"`
	Fragments    []models.PuzzlePayload `json:"fragments"`
}

// SubmitSolutionRequest model for submitting the shared event solution
type SubmitSolutionRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Solution string `json:"solution" binding:"required"`
}

// EventResponse pairs the redacted event with its live countdown
type EventResponse struct {
	Event     *models.GlobalEvent  `json:"event"`
	Remaining engine.RemainingTime `json:"remaining"`
}
