package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/waveroom/marketplace-backend/internal/handlers"
	"github.com/waveroom/marketplace-backend/internal/middleware"
)

type RouterConfig struct {
	CartHandler       *handlers.CartHandler
	NoticeHandler     *handlers.NoticeHandler
	SessionMiddleware *middleware.SessionMiddleware
	AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("marketplace-backend"))

	allowOrigins := cfg.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Session-ID"},
		ExposeHeaders:    []string{"X-Session-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.SessionMiddleware.Attach())
	{
		api.GET("/cart", cfg.CartHandler.GetCart)
		api.GET("/cart/contains", cfg.CartHandler.Contains)
		api.POST("/cart/items", cfg.CartHandler.AddItem)
		api.POST("/cart/items/track-variant", cfg.CartHandler.AddTrackVariant)
		api.DELETE("/cart/items/:id", cfg.CartHandler.RemoveItem)
		api.POST("/cart/items/:id/save", cfg.CartHandler.SaveItem)
		api.POST("/cart/items/:id/restore", cfg.CartHandler.RestoreItem)
		api.POST("/cart/clear", cfg.CartHandler.Clear)
		api.GET("/cart/notices", cfg.NoticeHandler.Stream)
	}

	return router
}
