package events

import (
	"crypto/subtle"
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"vault/config"
	"vault/engine"
	"vault/metrics"
	"vault/models"
	"vault/services"
	"vault/utils/response"

	"github.com/gin-gonic/gin"
)

var guesses = newGuessTracker(config.DefaultGuessLimitConfig)

// GetActiveEvent retrieves the currently running global event
// @Summary Get the active global event
// @Description Get the active event with its live countdown; the solution is never included
// @Tags Events
// @Accept json
// @Produce json
// @Success 200 {object} EventResponse
// @Failure 404 {object} map[string]string
// @Router /events/active [get]
func GetActiveEvent(c *gin.Context) {
	event, err := services.GetActiveEvent(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchEvent)
		return
	}
	if event == nil {
		response.Error(c, http.StatusNotFound, ErrNoActiveEvent)
		return
	}

	event.Solution = ""
	c.JSON(http.StatusOK, EventResponse{
		Event:     event,
		Remaining: engine.Remaining(event.StartedAt, event.WindowSeconds, time.Now()),
	})
}

// GetEvent retrieves one event by ID
// @Summary Get an event
// @Description Get the event regardless of state; the solution is never included
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} map[string]string
// @Router /events/{id} [get]
func GetEvent(c *gin.Context) {
	event, err := services.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			response.Error(c, http.StatusNotFound, ErrEventNotFound)
			return
		}
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchEvent)
		return
	}

	event.Solution = ""
	c.JSON(http.StatusOK, EventResponse{
		Event:     event,
		Remaining: engine.Remaining(event.StartedAt, event.WindowSeconds, time.Now()),
	})
}

// SubmitSolution attempts the one-time completion of a global event
// @Summary Submit the shared event solution
// @Description Case-sensitive exact match; exactly one concurrent correct submission wins first_complete
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body SubmitSolutionRequest true "Solution submission"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /events/{id}/solution [post]
func SubmitSolution(c *gin.Context) {
	eventID := c.Param("id")

	var request SubmitSolutionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Error(c, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if cooldown := guesses.blockedFor(request.UserID, time.Now()); cooldown > 0 {
		metrics.RateLimiterRejections.WithLabelValues(c.ClientIP()).Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       ErrTooManyGuesses,
			"retry_after": int(math.Ceil(cooldown.Seconds())),
		})
		return
	}

	event, err := services.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			response.Error(c, http.StatusNotFound, ErrEventNotFound)
			return
		}
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchEvent)
		return
	}

	if event.IsCompleted() {
		metrics.SolutionSubmissions.WithLabelValues("already_completed").Inc()
		c.JSON(http.StatusOK, gin.H{"success": false, "already_completed": true})
		return
	}

	// Exact, case-sensitive comparison; fragment codes are the lenient ones.
	// The incorrect flag lets clients tell a judged wrong answer apart from
	// a request rejection.
	if subtle.ConstantTimeCompare([]byte(request.Solution), []byte(event.Solution)) != 1 {
		guesses.recordWrong(request.UserID, time.Now())
		metrics.SolutionSubmissions.WithLabelValues("incorrect").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrIncorrectSolution, "incorrect": true})
		return
	}
	guesses.reset(request.UserID)

	updated, err := services.CompleteEventIfOpen(c.Request.Context(), eventID, request.UserID)
	if err != nil {
		if errors.Is(err, engine.ErrAlreadyCompleted) {
			// Another participant won between the fetch and the write
			metrics.SolutionSubmissions.WithLabelValues("already_completed").Inc()
			c.JSON(http.StatusOK, gin.H{"success": false, "already_completed": true})
			return
		}
		metrics.SolutionSubmissions.WithLabelValues("error").Inc()
		response.Error(c, http.StatusInternalServerError, ErrFailedSubmitSolution)
		return
	}

	// Best-effort completion row; a duplicate is a benign race loss
	timeTaken := int64(time.Since(event.StartedAt) / time.Second)
	if err := services.InsertEventCompletion(c.Request.Context(), eventID, request.UserID, timeTaken); err != nil && !errors.Is(err, engine.ErrDuplicate) {
		log.Printf("Failed to record event completion: %v", err)
	}

	metrics.SolutionSubmissions.WithLabelValues("first").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "first_complete": true, "event": updated})
}

// GetEventCompletions retrieves the completions for an event
// @Summary Get event completions
// @Description Get every recorded completion for the event, fastest first
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {array} models.EventCompletion
// @Failure 500 {object} map[string]string
// @Router /events/{id}/completions [get]
func GetEventCompletions(c *gin.Context) {
	completions, err := services.GetEventCompletions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchEvent)
		return
	}
	c.JSON(http.StatusOK, completions)
}

// CreateEvent starts a new global event
// @Summary Start a global event
// @Description Create and activate a new time-boxed event; any previous active event is deactivated
// @Tags Events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "Event details"
// @Success 201 {object} models.GlobalEvent
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /events [post]
// @Security Bearer
func CreateEvent(c *gin.Context) {
	var request CreateEventRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Error(c, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	var puzzleData *models.EventPuzzleData
	if len(request.Fragments) > 0 || request.TotalPuzzles > 0 {
		total := request.TotalPuzzles
		if total == 0 {
			total = len(request.Fragments)
		}
		puzzleData = &models.EventPuzzleData{TotalPuzzles: total, Fragments: request.Fragments}
	}

	event, err := services.StartEvent(c.Request.Context(), request.Title, request.Description, request.Solution, puzzleData)
	if err != nil {
		if errors.Is(err, engine.ErrValidation) {
			response.Error(c, http.StatusBadRequest, ErrInvalidRequest)
			return
		}
		response.Error(c, http.StatusInternalServerError, ErrFailedCreateEvent)
		return
	}

	event.Solution = ""
	c.JSON(http.StatusCreated, event)
}

// StopEvent force-closes an active event
// @Summary Stop an event
// @Description Deactivate the event without a completion; clients treat it as expired immediately
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} models.GlobalEvent
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /events/{id}/stop [put]
// @Security Bearer
func StopEvent(c *gin.Context) {
	event, err := services.StopEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			response.Error(c, http.StatusNotFound, ErrEventNotFound)
			return
		}
		response.Error(c, http.StatusInternalServerError, ErrFailedStopEvent)
		return
	}

	event.Solution = ""
	c.JSON(http.StatusOK, event)
}

// ResetEvent purges an event and all of its child records
// @Summary Reset an event
// @Description Delete the event and every completion attached to it
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /events/{id} [delete]
// @Security Bearer
func ResetEvent(c *gin.Context) {
	if err := services.ResetEvent(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			response.Error(c, http.StatusNotFound, ErrEventNotFound)
			return
		}
		response.Error(c, http.StatusInternalServerError, ErrFailedResetEvent)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event reset"})
}
