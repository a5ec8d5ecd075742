package unlocks

import (
	"errors"
	"net/http"

	"vault/config"
	"vault/engine"
	"vault/metrics"
	"vault/services"
	"vault/utils/response"

	"github.com/gin-gonic/gin"
)

// GetAllUnlocks retrieves every unlock record
// @Summary Get all unlock records
// @Description Get every content unlock, newest first
// @Tags Unlocks
// @Accept json
// @Produce json
// @Success 200 {array} models.UnlockRecord
// @Failure 500 {object} map[string]string
// @Router /unlocks [get]
func GetAllUnlocks(c *gin.Context) {
	records, err := services.GetAllUnlocks(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchUnlocks)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetUnlock retrieves the unlock record for one piece of content
// @Summary Get an unlock record
// @Description Get the authoritative unlock for a content ID; 404 while still locked
// @Tags Unlocks
// @Accept json
// @Produce json
// @Param content_id path string true "Content ID"
// @Success 200 {object} models.UnlockRecord
// @Failure 404 {object} map[string]string
// @Router /unlocks/{content_id} [get]
func GetUnlock(c *gin.Context) {
	record, err := services.GetUnlockRecord(c.Request.Context(), c.Param("content_id"))
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "Content is still locked")
			return
		}
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchUnlocks)
		return
	}
	c.JSON(http.StatusOK, record)
}

// RequestUnlock races to create the unlock record for a piece of content
// @Summary Request a global content unlock
// @Description First requester wins; losing the race returns already_unlocked with the winning record
// @Tags Unlocks
// @Accept json
// @Produce json
// @Param request body UnlockRequest true "Unlock request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /unlocks [post]
func RequestUnlock(c *gin.Context) {
	var request UnlockRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Error(c, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	record, err := services.InsertUnlockRecord(c.Request.Context(), request.ContentID, request.DeviceID, request.Method)
	if err != nil {
		if errors.Is(err, engine.ErrDuplicate) {
			// Someone else unlocked it first; hand back the winning record
			metrics.UnlockRequests.WithLabelValues("lost").Inc()
			winner, fetchErr := services.GetUnlockRecord(c.Request.Context(), request.ContentID)
			if fetchErr != nil {
				c.JSON(http.StatusOK, gin.H{"success": false, "already_unlocked": true})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": false, "already_unlocked": true, "record": winner})
			return
		}
		metrics.UnlockRequests.WithLabelValues("error").Inc()
		response.Error(c, http.StatusInternalServerError, ErrFailedCreateUnlock)
		return
	}

	metrics.UnlockRequests.WithLabelValues("won").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "record": record})
}

// SolvePuzzle reports a solved gating puzzle and unlocks its reward content
// @Summary Report a solved puzzle
// @Description Resolves the puzzle's reward content and races to unlock it
// @Tags Unlocks
// @Accept json
// @Produce json
// @Param request body SolveRequest true "Solve report"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /unlocks/solve [post]
func SolvePuzzle(c *gin.Context) {
	var request SolveRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Error(c, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	def := config.GetPuzzle(request.PuzzleID)
	if def == nil {
		response.Error(c, http.StatusNotFound, ErrUnknownPuzzle)
		return
	}
	if !def.Enabled {
		response.Error(c, http.StatusBadRequest, ErrPuzzleDisabled)
		return
	}
	if def.RewardContentID == "" {
		response.Error(c, http.StatusBadRequest, ErrPuzzleHasNoReward)
		return
	}

	record, err := services.InsertUnlockRecord(c.Request.Context(), def.RewardContentID, request.DeviceID, request.PuzzleID)
	if err != nil {
		if errors.Is(err, engine.ErrDuplicate) {
			metrics.UnlockRequests.WithLabelValues("lost").Inc()
			c.JSON(http.StatusOK, gin.H{"success": false, "already_unlocked": true})
			return
		}
		metrics.UnlockRequests.WithLabelValues("error").Inc()
		response.Error(c, http.StatusInternalServerError, ErrFailedCreateUnlock)
		return
	}

	metrics.UnlockRequests.WithLabelValues("won").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "record": record})
}
