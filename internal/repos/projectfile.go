package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/types"
)

type ProjectFileRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) ([]*types.ProjectFile, error)
	GetByID(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) (*types.ProjectFile, error)
	GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.ProjectFile, error)
}

type projectFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectFileRepo(db *gorm.DB, baseLog *logger.Logger) ProjectFileRepo {
	repoLog := baseLog.With("repo", "ProjectFileRepo")
	return &projectFileRepo{db: db, log: repoLog}
}

func (pfr *projectFileRepo) GetByIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID) ([]*types.ProjectFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pfr.db
	}

	var results []*types.ProjectFile

	if len(fileIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", fileIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (pfr *projectFileRepo) GetByID(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) (*types.ProjectFile, error) {
	files, err := pfr.GetByIDs(ctx, tx, []uuid.UUID{fileID})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

func (pfr *projectFileRepo) GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.ProjectFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pfr.db
	}

	var results []*types.ProjectFile

	if len(projectIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Order("file_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}
