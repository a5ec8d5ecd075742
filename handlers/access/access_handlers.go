package access

import (
	"crypto/subtle"
	"net/http"

	"vault/config"
	"vault/middleware"
	"vault/utils/response"

	"github.com/gin-gonic/gin"
)

// ExchangeAccessCode exchanges the shared access code for an operator token
// @Summary Exchange the shared access code for an operator token
// @Description The site uses a single shared access code instead of user accounts; a valid code yields a short-lived operator token
// @Tags Access
// @Accept json
// @Produce json
// @Param request body AccessRequest true "Access code"
// @Success 200 {object} AccessResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /access [post]
func ExchangeAccessCode(c *gin.Context) {
	var request AccessRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	if config.AccessCode == "" {
		response.Error(c, http.StatusServiceUnavailable, ErrAccessNotConfigured)
		return
	}

	if subtle.ConstantTimeCompare([]byte(request.Code), []byte(config.AccessCode)) != 1 {
		response.Error(c, http.StatusUnauthorized, ErrInvalidAccessCode)
		return
	}

	token, err := middleware.GenerateOperatorToken()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, ErrTokenGenerateFailed)
		return
	}

	c.JSON(http.StatusOK, AccessResponse{Token: token})
}
