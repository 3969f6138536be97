package api

import (
	syncDelivery "xlytics-backend/internal/sync/delivery"
	syncUsecasePkg "xlytics-backend/internal/sync/usecase"
	"xlytics-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	syncUsecase syncUsecasePkg.SyncUsecase
	config      *config.Config
	syncHandler *syncDelivery.SyncHandler
}

func NewHandler(syncUc syncUsecasePkg.SyncUsecase, cfg *config.Config) *Handler {
	return &Handler{
		syncUsecase: syncUc,
		config:      cfg,
		syncHandler: syncDelivery.NewSyncHandler(syncUc),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Setup routes
	SetupRoutes(r, h.syncHandler, h.config)

	return r.Run(addr)
}
