package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/types"
)

type TrackRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tracks []*types.Track) ([]*types.Track, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, trackIDs []uuid.UUID) ([]*types.Track, error)
	GetByID(ctx context.Context, tx *gorm.DB, trackID uuid.UUID) (*types.Track, error)
	GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.Track, error)
}

type trackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackRepo(db *gorm.DB, baseLog *logger.Logger) TrackRepo {
	repoLog := baseLog.With("repo", "TrackRepo")
	return &trackRepo{db: db, log: repoLog}
}

func (tr *trackRepo) Create(ctx context.Context, tx *gorm.DB, tracks []*types.Track) ([]*types.Track, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(tracks) == 0 {
		return []*types.Track{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&tracks).Error; err != nil {
		return nil, err
	}

	return tracks, nil
}

func (tr *trackRepo) GetByIDs(ctx context.Context, tx *gorm.DB, trackIDs []uuid.UUID) ([]*types.Track, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Track

	if len(trackIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", trackIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (tr *trackRepo) GetByID(ctx context.Context, tx *gorm.DB, trackID uuid.UUID) (*types.Track, error) {
	tracks, err := tr.GetByIDs(ctx, tx, []uuid.UUID{trackID})
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, nil
	}
	return tracks[0], nil
}

func (tr *trackRepo) GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.Track, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Track

	if len(projectIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}
