package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartvoice/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		voice := v1.Group("/voice")
		{
			voice.POST("/process", handler.ProcessCommand)
			voice.POST("/command", handler.ExecuteCommand)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.GET("/resolve", handler.ResolveItem)
		}

		lists := v1.Group("/lists")
		{
			lists.POST("", handler.CreateList)
			lists.GET("", handler.GetLists)
			lists.GET("/:id", handler.GetList)
			lists.DELETE("/:id", handler.DeleteList)
			lists.GET("/:id/share", handler.ShareList)
			lists.POST("/:id/items", handler.AddItem)
			lists.PATCH("/:id/items/:itemId", handler.UpdateItem)
			lists.DELETE("/:id/items/:itemId", handler.RemoveItem)
		}

		store := v1.Group("/store")
		{
			store.GET("/home", handler.StoreHome)
			store.GET("/category/:name", handler.StoreCategory)
			store.GET("/search", handler.StoreSearch)
			store.GET("/products/:name/related", handler.RelatedProducts)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", handler.PlaceOrder)
			orders.GET("", handler.OrderHistory)
		}
	}

	return router
}
