package tapes

import (
	"errors"
	"net/http"

	"vault/engine"
	"vault/services"
	"vault/utils/response"

	"github.com/gin-gonic/gin"
)

// GetAllTapes retrieves the archive index
// @Summary Get the tape archive index
// @Description Get every tape; locked tapes are redacted to slug, kind and lock state
// @Tags Tapes
// @Accept json
// @Produce json
// @Success 200 {array} TapeResponse
// @Failure 500 {object} map[string]string
// @Router /tapes [get]
func GetAllTapes(c *gin.Context) {
	allTapes, err := services.GetAllTapes(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchTapes)
		return
	}

	unlockedIDs, err := services.GetUnlockedContentIDs(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchTapes)
		return
	}
	unlocked := make(map[string]bool, len(unlockedIDs))
	for _, id := range unlockedIDs {
		unlocked[id] = true
	}

	result := make([]TapeResponse, 0, len(allTapes))
	for _, tape := range allTapes {
		result = append(result, visibleTape(tape, tape.PuzzleID == "" || unlocked[tape.Slug]))
	}

	c.JSON(http.StatusOK, result)
}

// GetTape retrieves one tape by slug
// @Summary Get a tape
// @Description Get a single tape; returns 403 while the tape is still locked
// @Tags Tapes
// @Accept json
// @Produce json
// @Param slug path string true "Tape slug"
// @Success 200 {object} TapeResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tapes/{slug} [get]
func GetTape(c *gin.Context) {
	slug := c.Param("slug")

	tape, err := services.GetTapeBySlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			response.Error(c, http.StatusNotFound, ErrTapeNotFound)
			return
		}
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchTapes)
		return
	}

	visible, err := services.TapeIsVisible(c.Request.Context(), tape)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, ErrFailedFetchTapes)
		return
	}
	if !visible {
		response.Error(c, http.StatusForbidden, ErrTapeStillLocked)
		return
	}

	c.JSON(http.StatusOK, visibleTape(*tape, true))
}
