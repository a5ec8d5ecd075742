package v1

import (
	"vault/handlers/access"
	"vault/handlers/events"
	"vault/handlers/tapes"
	"vault/handlers/unlocks"
	"vault/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Register the endpoints for the v1 API
func Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// Add metrics middleware to all routes
	v1.Use(middleware.MetricsMiddleware())

	rateLimiter := middleware.NewRateLimiter(10000, 1500)
	v1.Use(middleware.RateLimiterMiddleware(rateLimiter))

	RegisterPingRoutes(v1)
	access.RegisterRoutes(v1)
	tapes.RegisterRoutes(v1)
	unlocks.RegisterRoutes(v1)
	events.RegisterRoutes(v1)

	// Register metrics endpoint
	RegisterMetricsRoutes(v1)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
