package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/types"
)

type SoundPackRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, packIDs []uuid.UUID) ([]*types.SoundPack, error)
	GetByID(ctx context.Context, tx *gorm.DB, packID uuid.UUID) (*types.SoundPack, error)
}

type soundPackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSoundPackRepo(db *gorm.DB, baseLog *logger.Logger) SoundPackRepo {
	repoLog := baseLog.With("repo", "SoundPackRepo")
	return &soundPackRepo{db: db, log: repoLog}
}

func (spr *soundPackRepo) GetByIDs(ctx context.Context, tx *gorm.DB, packIDs []uuid.UUID) ([]*types.SoundPack, error) {
	transaction := tx
	if transaction == nil {
		transaction = spr.db
	}

	var results []*types.SoundPack

	if len(packIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", packIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (spr *soundPackRepo) GetByID(ctx context.Context, tx *gorm.DB, packID uuid.UUID) (*types.SoundPack, error) {
	packs, err := spr.GetByIDs(ctx, tx, []uuid.UUID{packID})
	if err != nil {
		return nil, err
	}
	if len(packs) == 0 {
		return nil, nil
	}
	return packs[0], nil
}
