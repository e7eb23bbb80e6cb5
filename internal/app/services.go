package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/services"
)

type Services struct {
	Resolver services.EntityResolver
	Pricer   *services.PriceCalculator
	Sessions *services.CartSessions
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")

	resolver := services.NewEntityResolver(
		db,
		log,
		reposet.User,
		reposet.Track,
		reposet.Project,
		reposet.ProjectFile,
		reposet.ServiceListing,
		reposet.SoundPack,
	)
	pricer := services.NewPriceCalculator(nil)

	sessions := services.NewCartSessions(ctx, log, services.SessionsConfig{
		Notifier:  clients.NoticeBus,
		Resolver:  resolver,
		Pricer:    pricer,
		AnonStore: clients.AnonCartStore,
		CartRepo:  reposet.Cart,
		OpTimeout: cfg.CartOpTimeout,
		IdleTTL:   cfg.SessionIdleTTL,
	})

	return Services{
		Resolver: resolver,
		Pricer:   pricer,
		Sessions: sessions,
	}
}
