package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adforge-ai/adgen-backend/pkg/repository"
)

// SetupRouter wires the HTTP routes. Debug mode keeps gin's default logger;
// release mode relies on the structured application logs instead.
func SetupRouter(adHandler *AdHandler, vectorDB repository.VectorDatabase, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if debug {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", healthCheck(vectorDB))

	v1 := r.Group("/v1")
	{
		adRequests := v1.Group("/ad-requests")
		{
			adRequests.POST("", adHandler.CreateAdRequest)
			adRequests.GET("", adHandler.ListAdRequests)
			adRequests.GET("/:uid", adHandler.GetAdRequest)
		}
	}

	return r
}

func healthCheck(vectorDB repository.VectorDatabase) gin.HandlerFunc {
	return func(c *gin.Context) {
		healthy, err := vectorDB.GetHealth(c.Request.Context())
		if err != nil || !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
