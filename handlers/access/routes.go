package access

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes related to operator access
// r: the RouterGroup to which routes are added
func RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/access")
	{
		auth.POST("/", ExchangeAccessCode)
	}
}
