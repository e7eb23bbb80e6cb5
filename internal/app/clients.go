package app

import (
	"fmt"
	"time"

	"github.com/waveroom/marketplace-backend/internal/clients/redis"
	"github.com/waveroom/marketplace-backend/internal/logger"
)

type Clients struct {
	AnonCartStore redis.AnonCartStore
	NoticeBus     redis.NoticeBus
}

func wireClients(log *logger.Logger, anonCartTTL time.Duration) (Clients, error) {
	log.Info("Wiring clients...")

	rdb, err := redis.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis client: %w", err)
	}

	anonCartStore, err := redis.NewAnonCartStore(log, rdb, anonCartTTL)
	if err != nil {
		return Clients{}, fmt.Errorf("init anon cart store: %w", err)
	}

	noticeBus, err := redis.NewNoticeBus(log, rdb)
	if err != nil {
		return Clients{}, fmt.Errorf("init notice bus: %w", err)
	}

	return Clients{
		AnonCartStore: anonCartStore,
		NoticeBus:     noticeBus,
	}, nil
}
