package events

import (
	"vault/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes related to global events
// r: the RouterGroup to which the routes are added
func RegisterRoutes(r *gin.RouterGroup) {
	// Solutions are guessable; keep brute force slow
	solutionRateLimiter := middleware.NewRateLimiter(30, 10)

	events := r.Group("/events")
	{
		// Public routes
		events.GET("/active", GetActiveEvent)
		events.GET("/:id", GetEvent)
		events.GET("/:id/completions", GetEventCompletions)
		events.POST("/:id/solution", middleware.RateLimiterMiddleware(solutionRateLimiter), SubmitSolution)

		// Operator routes
		operator := events.Group("/")
		operator.Use(middleware.AuthMiddleware())
		{
			operator.POST("/", CreateEvent)
			operator.PUT("/:id/stop", StopEvent)
			operator.DELETE("/:id", ResetEvent)
		}
	}

	// Change feed websocket
	r.GET("/feed/ws", FeedWebSocket)
}
