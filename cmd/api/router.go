package api

import (
	"net/http"

	"xlytics-backend/internal/sync/delivery"
	"xlytics-backend/internal/sync/domain"
	"xlytics-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, syncHandler *delivery.SyncHandler, cfg *config.Config) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Sync routes (protected)
		sync := api.Group("/sync")
		sync.Use(delivery.AuthMiddleware(cfg.JWTSecret))
		{
			sync.POST("/:handle", syncHandler.SyncPosts)
		}

		// Live search (protected)
		search := api.Group("/search")
		search.Use(delivery.AuthMiddleware(cfg.JWTSecret))
		{
			search.GET("", syncHandler.SearchLive)
		}

		// Subject routes (protected)
		subjects := api.Group("/subjects")
		subjects.Use(delivery.AuthMiddleware(cfg.JWTSecret))
		{
			subjects.GET("/by-handle/:handle", syncHandler.GetSubject)
			subjects.GET("/:id/posts", syncHandler.GetPosts)
			subjects.GET("/:id/followers", syncHandler.GetConnections(domain.RelationFollower))
			subjects.GET("/:id/following", syncHandler.GetConnections(domain.RelationFollowing))
			subjects.GET("/:id/reconciliation", syncHandler.GetReconciliation)
			subjects.GET("/:id/summary", syncHandler.GetSummary)
			subjects.GET("/:id/search", syncHandler.SearchPosts)
			subjects.POST("/:id/archive", syncHandler.IngestArchive)
		}
	}
}
