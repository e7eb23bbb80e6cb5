package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	redisclients "github.com/waveroom/marketplace-backend/internal/clients/redis"
	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/platform/apierr"
	"github.com/waveroom/marketplace-backend/internal/repos"
	"github.com/waveroom/marketplace-backend/internal/types"
)

// CartStore is the persistence adapter the cart engine writes through. The
// anonymous session speaks to the ephemeral per-session store, the
// authenticated session to the durable per-user aggregate; the engine is
// oblivious to which one it holds.
type CartStore interface {
	Load(ctx context.Context) ([]*types.CartItem, error)
	// Insert persists one line and returns it with its store-assigned ID. A
	// line already present by (kind, entity-id) comes back as an apierr
	// Conflict.
	Insert(ctx context.Context, item *types.CartItem) (*types.CartItem, error)
	Delete(ctx context.Context, itemID uuid.UUID) error
	SetSaved(ctx context.Context, itemID uuid.UUID, saved bool) error
	// ClearActive removes every line with SavedForLater == false.
	ClearActive(ctx context.Context) error
}

// localCartStore adapts the whole-list anonymous store to the per-item
// CartStore contract. IDs are locally generated and temporary; they are
// discarded when the cart merges into the remote store.
type localCartStore struct {
	log       *logger.Logger
	store     redisclients.AnonCartStore
	sessionID string
}

func NewLocalCartStore(log *logger.Logger, store redisclients.AnonCartStore, sessionID string) CartStore {
	return &localCartStore{
		log:       log.With("service", "LocalCartStore"),
		store:     store,
		sessionID: sessionID,
	}
}

func (lcs *localCartStore) Load(ctx context.Context) ([]*types.CartItem, error) {
	return lcs.store.Load(ctx, lcs.sessionID)
}

func (lcs *localCartStore) Insert(ctx context.Context, item *types.CartItem) (*types.CartItem, error) {
	items, err := lcs.store.Load(ctx, lcs.sessionID)
	if err != nil {
		return nil, err
	}

	ref, ok := item.Ref()
	if !ok {
		return nil, apierr.Invalid(fmt.Errorf("cart item has no entity reference"))
	}
	for _, existing := range items {
		if existingRef, ok := existing.Ref(); ok && existingRef == ref {
			// Mirror the remote store's uniqueness constraint.
			return nil, apierr.Conflict(fmt.Errorf("cart item already exists for %s", ref))
		}
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	items = append(items, item)
	if err := lcs.store.Save(ctx, lcs.sessionID, items); err != nil {
		return nil, err
	}
	return item, nil
}

func (lcs *localCartStore) Delete(ctx context.Context, itemID uuid.UUID) error {
	items, err := lcs.store.Load(ctx, lcs.sessionID)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, existing := range items {
		if existing.ID != itemID {
			kept = append(kept, existing)
		}
	}
	return lcs.store.Save(ctx, lcs.sessionID, kept)
}

func (lcs *localCartStore) SetSaved(ctx context.Context, itemID uuid.UUID, saved bool) error {
	items, err := lcs.store.Load(ctx, lcs.sessionID)
	if err != nil {
		return err
	}
	for _, existing := range items {
		if existing.ID == itemID {
			existing.SavedForLater = saved
		}
	}
	return lcs.store.Save(ctx, lcs.sessionID, items)
}

func (lcs *localCartStore) ClearActive(ctx context.Context) error {
	items, err := lcs.store.Load(ctx, lcs.sessionID)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, existing := range items {
		if existing.SavedForLater {
			kept = append(kept, existing)
		}
	}
	return lcs.store.Save(ctx, lcs.sessionID, kept)
}

// remoteCartStore backs an authenticated session with the per-user cart
// aggregate, resolving the aggregate lazily on first use.
type remoteCartStore struct {
	log    *logger.Logger
	repo   repos.CartRepo
	userID uuid.UUID

	mu     sync.Mutex
	cartID uuid.UUID
}

func NewRemoteCartStore(log *logger.Logger, repo repos.CartRepo, userID uuid.UUID) CartStore {
	return &remoteCartStore{
		log:    log.With("service", "RemoteCartStore"),
		repo:   repo,
		userID: userID,
	}
}

func (rcs *remoteCartStore) cart(ctx context.Context) (uuid.UUID, error) {
	rcs.mu.Lock()
	defer rcs.mu.Unlock()
	if rcs.cartID != uuid.Nil {
		return rcs.cartID, nil
	}
	cart, err := rcs.repo.FindOrCreateByUserID(ctx, nil, rcs.userID)
	if err != nil {
		return uuid.Nil, err
	}
	rcs.cartID = cart.ID
	return rcs.cartID, nil
}

func (rcs *remoteCartStore) Load(ctx context.Context) ([]*types.CartItem, error) {
	cartID, err := rcs.cart(ctx)
	if err != nil {
		return nil, err
	}
	return rcs.repo.GetItemsByCartID(ctx, nil, cartID)
}

func (rcs *remoteCartStore) Insert(ctx context.Context, item *types.CartItem) (*types.CartItem, error) {
	cartID, err := rcs.cart(ctx)
	if err != nil {
		return nil, err
	}
	item.CartID = cartID
	return rcs.repo.CreateItem(ctx, nil, item)
}

func (rcs *remoteCartStore) Delete(ctx context.Context, itemID uuid.UUID) error {
	return rcs.repo.DeleteItemByID(ctx, nil, itemID)
}

func (rcs *remoteCartStore) SetSaved(ctx context.Context, itemID uuid.UUID, saved bool) error {
	return rcs.repo.UpdateItemSavedFlag(ctx, nil, itemID, saved)
}

func (rcs *remoteCartStore) ClearActive(ctx context.Context) error {
	cartID, err := rcs.cart(ctx)
	if err != nil {
		return err
	}
	return rcs.repo.DeleteActiveByCartID(ctx, nil, cartID)
}
