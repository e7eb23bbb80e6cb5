package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/types"
)

type ServiceListingRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, listingIDs []uuid.UUID) ([]*types.ServiceListing, error)
	GetByID(ctx context.Context, tx *gorm.DB, listingID uuid.UUID) (*types.ServiceListing, error)
}

type serviceListingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewServiceListingRepo(db *gorm.DB, baseLog *logger.Logger) ServiceListingRepo {
	repoLog := baseLog.With("repo", "ServiceListingRepo")
	return &serviceListingRepo{db: db, log: repoLog}
}

func (slr *serviceListingRepo) GetByIDs(ctx context.Context, tx *gorm.DB, listingIDs []uuid.UUID) ([]*types.ServiceListing, error) {
	transaction := tx
	if transaction == nil {
		transaction = slr.db
	}

	var results []*types.ServiceListing

	if len(listingIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", listingIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (slr *serviceListingRepo) GetByID(ctx context.Context, tx *gorm.DB, listingID uuid.UUID) (*types.ServiceListing, error) {
	listings, err := slr.GetByIDs(ctx, tx, []uuid.UUID{listingID})
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, nil
	}
	return listings[0], nil
}
