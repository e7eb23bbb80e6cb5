package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/platform/apierr"
	"github.com/waveroom/marketplace-backend/internal/repos"
	"github.com/waveroom/marketplace-backend/internal/types"
)

// EntityResolver fetches the canonical attributes needed to materialize a
// cart line from an entity reference.
type EntityResolver interface {
	Resolve(ctx context.Context, ref types.EntityRef) (*types.EntitySnapshot, error)
}

type entityResolver struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	trackRepo     repos.TrackRepo
	projectRepo   repos.ProjectRepo
	fileRepo      repos.ProjectFileRepo
	listingRepo   repos.ServiceListingRepo
	soundPackRepo repos.SoundPackRepo
}

func NewEntityResolver(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	trackRepo repos.TrackRepo,
	projectRepo repos.ProjectRepo,
	fileRepo repos.ProjectFileRepo,
	listingRepo repos.ServiceListingRepo,
	soundPackRepo repos.SoundPackRepo,
) EntityResolver {
	serviceLog := log.With("service", "EntityResolver")
	return &entityResolver{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		trackRepo:     trackRepo,
		projectRepo:   projectRepo,
		fileRepo:      fileRepo,
		listingRepo:   listingRepo,
		soundPackRepo: soundPackRepo,
	}
}

func (er *entityResolver) Resolve(ctx context.Context, ref types.EntityRef) (*types.EntitySnapshot, error) {
	switch ref.Kind {
	case types.KindTrack:
		return er.resolveTrack(ctx, ref.ID)
	case types.KindProject:
		return er.resolveProject(ctx, ref.ID)
	case types.KindService:
		return er.resolveService(ctx, ref.ID)
	case types.KindSoundPack:
		return er.resolveSoundPack(ctx, ref.ID)
	}
	return nil, apierr.Invalid(fmt.Errorf("unknown entity kind %q", ref.Kind))
}

// resolveTrack handles the two representations a logical track can have: a
// canonical track row, or a legacy project file not yet upgraded. The
// upgrade is idempotent: losing the insert race to a concurrent upgrade is
// treated as success and the winner's row is used.
func (er *entityResolver) resolveTrack(ctx context.Context, id uuid.UUID) (*types.EntitySnapshot, error) {
	track, err := er.trackRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if track == nil {
		track, err = er.upgradeFromProjectFile(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if track == nil {
		return nil, apierr.NotFound(fmt.Errorf("track %s not found", id))
	}

	snap := &types.EntitySnapshot{
		Ref:             types.EntityRef{Kind: types.KindTrack, ID: track.ID},
		Title:           track.Title,
		Price:           track.Price,
		Genre:           track.Genre,
		ParentProjectID: track.ProjectID,
	}

	if err := er.fillProducer(ctx, snap, track.ProducerID); err != nil {
		return nil, err
	}

	if track.ProjectID != nil {
		files, err := er.fileRepo.GetByProjectIDs(ctx, nil, []uuid.UUID{*track.ProjectID})
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			snap.Manifest = append(snap.Manifest, types.ManifestFile{Name: f.FileName, Price: f.Price})
		}
	}

	return snap, nil
}

func (er *entityResolver) upgradeFromProjectFile(ctx context.Context, id uuid.UUID) (*types.Track, error) {
	file, err := er.fileRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, nil
	}

	project, err := er.projectRepo.GetByID(ctx, nil, file.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apierr.NotFound(fmt.Errorf("project %s for file %s not found", file.ProjectID, id))
	}

	projectID := file.ProjectID
	track := &types.Track{
		ID:            file.ID,
		ProducerID:    project.ProducerID,
		ProjectID:     &projectID,
		Title:         trackTitleFromFileName(file.FileName),
		Genre:         project.Genre,
		Price:         file.Price,
		AudioURL:      file.FileURL,
		AllowDownload: file.AllowDownload,
	}

	er.log.Info("Materializing canonical track from project file", "track_id", file.ID, "project_id", file.ProjectID)
	if _, err := er.trackRepo.Create(ctx, nil, []*types.Track{track}); err != nil {
		if !repos.IsDuplicateKey(err) {
			return nil, err
		}
		// Concurrent upgrade won the race; read its row back.
		return er.trackRepo.GetByID(ctx, nil, id)
	}
	return track, nil
}

func (er *entityResolver) resolveProject(ctx context.Context, id uuid.UUID) (*types.EntitySnapshot, error) {
	project, err := er.projectRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apierr.NotFound(fmt.Errorf("project %s not found", id))
	}

	snap := &types.EntitySnapshot{
		Ref:        types.EntityRef{Kind: types.KindProject, ID: project.ID},
		Title:      project.Title,
		Price:      project.Price,
		Genre:      project.Genre,
		TrackCount: project.TrackCount,
	}
	if err := er.fillProducer(ctx, snap, project.ProducerID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (er *entityResolver) resolveService(ctx context.Context, id uuid.UUID) (*types.EntitySnapshot, error) {
	listing, err := er.listingRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, apierr.NotFound(fmt.Errorf("service listing %s not found", id))
	}

	snap := &types.EntitySnapshot{
		Ref:   types.EntityRef{Kind: types.KindService, ID: listing.ID},
		Title: listing.Title,
		Price: listing.Price,
	}
	if err := er.fillProducer(ctx, snap, listing.ProducerID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (er *entityResolver) resolveSoundPack(ctx context.Context, id uuid.UUID) (*types.EntitySnapshot, error) {
	pack, err := er.soundPackRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if pack == nil {
		return nil, apierr.NotFound(fmt.Errorf("sound pack %s not found", id))
	}

	snap := &types.EntitySnapshot{
		Ref:        types.EntityRef{Kind: types.KindSoundPack, ID: pack.ID},
		Title:      pack.Title,
		Price:      pack.Price,
		Genre:      pack.Genre,
		TrackCount: pack.TrackCount,
	}
	if err := er.fillProducer(ctx, snap, pack.ProducerID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (er *entityResolver) fillProducer(ctx context.Context, snap *types.EntitySnapshot, producerID uuid.UUID) error {
	producer, err := er.userRepo.GetByID(ctx, nil, producerID)
	if err != nil {
		return err
	}
	if producer == nil {
		// Orphaned producer references exist in old data; the line can
		// still render without them.
		er.log.Warn("Producer not found for entity", "producer_id", producerID, "entity", snap.Ref.String())
		return nil
	}
	snap.ProducerName = producer.DisplayName
	snap.ProducerAvatarURL = producer.AvatarURL
	return nil
}

func trackTitleFromFileName(name string) string {
	base := strings.TrimSpace(name)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
