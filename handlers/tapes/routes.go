package tapes

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes related to the tape archive
// r: the RouterGroup to which the routes are added
func RegisterRoutes(r *gin.RouterGroup) {
	tapes := r.Group("/tapes")
	{
		tapes.GET("/", GetAllTapes)
		tapes.GET("/:slug", GetTape)
	}
}
