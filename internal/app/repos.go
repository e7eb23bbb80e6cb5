package app

import (
	"gorm.io/gorm"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/repos"
)

type Repos struct {
	User           repos.UserRepo
	Track          repos.TrackRepo
	Project        repos.ProjectRepo
	ProjectFile    repos.ProjectFileRepo
	ServiceListing repos.ServiceListingRepo
	SoundPack      repos.SoundPackRepo
	Cart           repos.CartRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		Track:          repos.NewTrackRepo(db, log),
		Project:        repos.NewProjectRepo(db, log),
		ProjectFile:    repos.NewProjectFileRepo(db, log),
		ServiceListing: repos.NewServiceListingRepo(db, log),
		SoundPack:      repos.NewSoundPackRepo(db, log),
		Cart:           repos.NewCartRepo(db, log),
	}
}
