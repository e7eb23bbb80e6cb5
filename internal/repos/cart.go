package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/platform/apierr"
	"github.com/waveroom/marketplace-backend/internal/types"
)

type CartRepo interface {
	// FindOrCreateByUserID returns the user's cart aggregate, creating it on
	// first need. When a user has more than one cart row (known anomaly) the
	// newest one wins.
	FindOrCreateByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Cart, error)
	GetItemsByCartID(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) ([]*types.CartItem, error)
	// CreateItem inserts one cart line. A uniqueness violation on
	// (cart_id, kind, entity_id) comes back as an apierr Conflict, never as a
	// raw store error.
	CreateItem(ctx context.Context, tx *gorm.DB, item *types.CartItem) (*types.CartItem, error)
	DeleteItemByID(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error
	UpdateItemSavedFlag(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, saved bool) error
	// DeleteActiveByCartID bulk-deletes every line with saved_for_later = false.
	DeleteActiveByCartID(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type cartRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo {
	repoLog := baseLog.With("repo", "CartRepo")
	return &cartRepo{db: db, log: repoLog}
}

func (cr *cartRepo) FindOrCreateByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Cart, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var carts []*types.Cart
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(2).
		Find(&carts).Error; err != nil {
		return nil, err
	}
	if len(carts) > 1 {
		cr.log.Warn("User has multiple carts, using newest", "user_id", userID)
	}
	if len(carts) > 0 {
		return carts[0], nil
	}

	cart := &types.Cart{ID: uuid.New(), UserID: userID}
	if err := transaction.WithContext(ctx).Create(cart).Error; err != nil {
		if IsDuplicateKey(err) {
			// Lost a create race; the winner's row is what we want.
			return cr.FindOrCreateByUserID(ctx, tx, userID)
		}
		return nil, err
	}
	return cart, nil
}

func (cr *cartRepo) GetItemsByCartID(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) ([]*types.CartItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.CartItem
	if err := transaction.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (cr *cartRepo) CreateItem(ctx context.Context, tx *gorm.DB, item *types.CartItem) (*types.CartItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	if err := transaction.WithContext(ctx).Create(item).Error; err != nil {
		if IsDuplicateKey(err) {
			return nil, apierr.Conflict(fmt.Errorf("cart item already exists: %w", err))
		}
		return nil, err
	}

	return item, nil
}

func (cr *cartRepo) DeleteItemByID(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&types.CartItem{}).Error; err != nil {
		return err
	}

	return nil
}

func (cr *cartRepo) UpdateItemSavedFlag(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, saved bool) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.CartItem{}).
		Where("id = ?", itemID).
		Update("saved_for_later", saved).Error; err != nil {
		return err
	}

	return nil
}

func (cr *cartRepo) DeleteActiveByCartID(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).
		Where("cart_id = ? AND saved_for_later = ?", cartID, false).
		Delete(&types.CartItem{}).Error; err != nil {
		return err
	}

	return nil
}
