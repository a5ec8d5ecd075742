package unlocks

import (
	"vault/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes related to content unlocks
// r: the RouterGroup to which the routes are added
func RegisterRoutes(r *gin.RouterGroup) {
	// Unlock attempts ride on puzzle solves, so keep guessing cheap to stop
	unlockRateLimiter := middleware.NewRateLimiter(60, 20)

	unlocks := r.Group("/unlocks")
	{
		unlocks.GET("/", GetAllUnlocks)
		unlocks.GET("/:content_id", GetUnlock)
		unlocks.POST("/", middleware.RateLimiterMiddleware(unlockRateLimiter), RequestUnlock)
		unlocks.POST("/solve", middleware.RateLimiterMiddleware(unlockRateLimiter), SolvePuzzle)
	}
}
