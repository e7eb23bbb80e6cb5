package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/types"
)

const anonCartKeyPrefix = "cart:anon:"

// AnonCartStore is the ephemeral store for anonymous-session carts: one JSON
// list under one namespaced key per session, last writer wins. It is the
// server-side counterpart of the storefront's local cart storage.
type AnonCartStore interface {
	Load(ctx context.Context, sessionID string) ([]*types.CartItem, error)
	// Save persists the union of active and saved items. Items without a
	// recognizable entity reference are dropped; an empty list removes the
	// key entirely.
	Save(ctx context.Context, sessionID string, items []*types.CartItem) error
	Clear(ctx context.Context, sessionID string) error
}

type anonCartStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewAnonCartStore(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) (AnonCartStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &anonCartStore{
		log: log.With("service", "AnonCartStore"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (s *anonCartStore) key(sessionID string) string {
	return anonCartKeyPrefix + sessionID
}

func (s *anonCartStore) Load(ctx context.Context, sessionID string) ([]*types.CartItem, error) {
	raw, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	if err == goredis.Nil {
		return []*types.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load anon cart: %w", err)
	}

	var items []*types.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		// A corrupt payload is unrecoverable; treat it as an empty cart
		// rather than wedging the session.
		s.log.Warn("Discarding unreadable anon cart payload", "session_id", sessionID, "error", err)
		return []*types.CartItem{}, nil
	}
	return items, nil
}

func (s *anonCartStore) Save(ctx context.Context, sessionID string, items []*types.CartItem) error {
	kept := make([]*types.CartItem, 0, len(items))
	for _, item := range items {
		if _, ok := item.Ref(); !ok {
			s.log.Warn("Dropping anon cart item without entity reference", "session_id", sessionID, "item_id", item.ID)
			continue
		}
		kept = append(kept, item)
	}

	if len(kept) == 0 {
		return s.Clear(ctx, sessionID)
	}

	raw, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("marshal anon cart: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save anon cart: %w", err)
	}
	return nil
}

func (s *anonCartStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear anon cart: %w", err)
	}
	return nil
}
