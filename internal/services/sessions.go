package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	redisclients "github.com/waveroom/marketplace-backend/internal/clients/redis"
	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/notify"
	"github.com/waveroom/marketplace-backend/internal/platform/apierr"
	"github.com/waveroom/marketplace-backend/internal/repos"
	"github.com/waveroom/marketplace-backend/internal/requestdata"
	"github.com/waveroom/marketplace-backend/internal/types"
)

// CartSessions hands out one CartEngine per logical session and owns the
// anonymous->authenticated handoff. Idle engines are evicted; a dropped
// engine costs one store round-trip to rebuild.
type CartSessions struct {
	log       *logger.Logger
	notifier  notify.Sink
	resolver  EntityResolver
	pricer    *PriceCalculator
	anonStore redisclients.AnonCartStore
	cartRepo  repos.CartRepo
	opTimeout time.Duration
	idleTTL   time.Duration

	mu      sync.Mutex
	entries map[string]*sessionEntry

	// Collapses concurrent first-request pipelines (load, login merge) for
	// the same session key into one execution.
	flight singleflight.Group
}

type sessionEntry struct {
	engine   *CartEngine
	store    CartStore
	lastSeen time.Time
}

type SessionsConfig struct {
	Notifier  notify.Sink
	Resolver  EntityResolver
	Pricer    *PriceCalculator
	AnonStore redisclients.AnonCartStore
	CartRepo  repos.CartRepo
	OpTimeout time.Duration
	IdleTTL   time.Duration
}

func NewCartSessions(ctx context.Context, log *logger.Logger, cfg SessionsConfig) *CartSessions {
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	cs := &CartSessions{
		log:       log.With("service", "CartSessions"),
		notifier:  cfg.Notifier,
		resolver:  cfg.Resolver,
		pricer:    cfg.Pricer,
		anonStore: cfg.AnonStore,
		cartRepo:  cfg.CartRepo,
		opTimeout: cfg.OpTimeout,
		idleTTL:   idleTTL,
		entries:   make(map[string]*sessionEntry),
	}
	go cs.janitor(ctx)
	return cs
}

// Engine returns the ready engine for the request's session, creating,
// loading and (on the first authenticated request that still carries an
// anonymous session id) merging as needed.
func (cs *CartSessions) Engine(ctx context.Context, rd *requestdata.RequestData) (*CartEngine, error) {
	if rd == nil {
		return nil, apierr.Invalid(errors.New("missing session data"))
	}

	if rd.Mode == types.SessionAuthenticated {
		return cs.authenticatedEngine(ctx, rd)
	}

	if rd.SessionID == "" {
		return nil, apierr.Invalid(errors.New("anonymous request without session id"))
	}
	return cs.anonymousEngine(ctx, rd.SessionID)
}

func (cs *CartSessions) authenticatedEngine(ctx context.Context, rd *requestdata.RequestData) (*CartEngine, error) {
	key := rd.SessionKey()

	cs.mu.Lock()
	entry, ok := cs.entries[key]
	if !ok {
		store := NewRemoteCartStore(cs.log, cs.cartRepo, rd.UserID)
		engine := NewCartEngine(cs.log, EngineConfig{
			SessionKey: key,
			Mode:       types.SessionAuthenticated,
			Store:      store,
			Resolver:   cs.resolver,
			Pricer:     cs.pricer,
			Notifier:   cs.notifier,
			OpTimeout:  cs.opTimeout,
		})
		entry = &sessionEntry{engine: engine, store: store}
		cs.entries[key] = entry
		// A login that never went through an anonymous session has nothing
		// to migrate; a stale session header on a later request must not
		// trigger one either.
		if rd.SessionID == "" {
			engine.MarkMerged()
		}
	}
	entry.lastSeen = time.Now()
	// The anonymous engine for this session is obsolete once the user is
	// authenticated.
	if rd.SessionID != "" {
		delete(cs.entries, "anon:"+rd.SessionID)
	}
	cs.mu.Unlock()

	_, err, _ := cs.flight.Do(key, func() (interface{}, error) {
		if rd.SessionID != "" {
			mc := NewMergeCoordinator(cs.log, cs.notifier, rd.SessionID, key, cs.anonStore, entry.store)
			if err := entry.engine.EnsureMerged(ctx, mc, entry.store); err != nil {
				return nil, err
			}
		}
		return nil, entry.engine.Init(ctx)
	})
	if err != nil {
		return nil, err
	}
	return entry.engine, nil
}

func (cs *CartSessions) anonymousEngine(ctx context.Context, sessionID string) (*CartEngine, error) {
	key := "anon:" + sessionID

	cs.mu.Lock()
	entry, ok := cs.entries[key]
	if !ok {
		store := NewLocalCartStore(cs.log, cs.anonStore, sessionID)
		engine := NewCartEngine(cs.log, EngineConfig{
			SessionKey: key,
			Mode:       types.SessionAnonymous,
			Store:      store,
			Resolver:   cs.resolver,
			Pricer:     cs.pricer,
			Notifier:   cs.notifier,
			OpTimeout:  cs.opTimeout,
		})
		entry = &sessionEntry{engine: engine, store: store}
		cs.entries[key] = entry
	}
	entry.lastSeen = time.Now()
	cs.mu.Unlock()

	_, err, _ := cs.flight.Do(key, func() (interface{}, error) {
		return nil, entry.engine.Init(ctx)
	})
	if err != nil {
		return nil, err
	}
	return entry.engine, nil
}

// Drop forgets a session's engine. Used on logout; the remote cart itself
// is retained.
func (cs *CartSessions) Drop(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.entries, key)
}

func (cs *CartSessions) janitor(ctx context.Context) {
	ticker := time.NewTicker(cs.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-cs.idleTTL)
			cs.mu.Lock()
			for key, entry := range cs.entries {
				if entry.lastSeen.Before(cutoff) {
					delete(cs.entries, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}
