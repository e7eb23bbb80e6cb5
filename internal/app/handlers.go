package app

import (
	"github.com/gin-gonic/gin"

	"github.com/waveroom/marketplace-backend/internal/handlers"
	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/middleware"
	"github.com/waveroom/marketplace-backend/internal/notify"
	"github.com/waveroom/marketplace-backend/internal/server"
)

type Handlers struct {
	Cart    *handlers.CartHandler
	Notices *handlers.NoticeHandler
}

type Middleware struct {
	Session *middleware.SessionMiddleware
}

func wireHandlers(log *logger.Logger, serviceset Services, hub *notify.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Cart:    handlers.NewCartHandler(log, serviceset.Sessions),
		Notices: handlers.NewNoticeHandler(log, hub),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Session: middleware.NewSessionMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireRouter(cfg Config, handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		CartHandler:       handlerset.Cart,
		NoticeHandler:     handlerset.Notices,
		SessionMiddleware: middlewareset.Session,
		AllowOrigins:      cfg.AllowOrigins,
	})
}
