package types

import (
	"time"

	"github.com/google/uuid"
)

// Track is a canonical track record. Legacy storefront data has tracks that
// exist only as project files; the entity resolver materializes rows here
// from those on first demand.
type Track struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProducerID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"producer_id"`
	Producer      *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProducerID;references:ID" json:"producer,omitempty"`
	ProjectID     *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Title         string     `gorm:"column:title;not null" json:"title"`
	Genre         string     `gorm:"column:genre" json:"genre"`
	Price         float64    `gorm:"column:price;not null;default:0" json:"price"`
	AudioURL      string     `gorm:"column:audio_url" json:"audio_url"`
	AllowDownload bool       `gorm:"column:allow_download;not null;default:false" json:"allow_download"`
	CreatedAt     time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Track) TableName() string { return "track" }

type Project struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProducerID uuid.UUID `gorm:"type:uuid;not null;index" json:"producer_id"`
	Producer   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProducerID;references:ID" json:"producer,omitempty"`
	Title      string    `gorm:"column:title;not null" json:"title"`
	Genre      string    `gorm:"column:genre" json:"genre"`
	Price      float64   `gorm:"column:price;not null;default:0" json:"price"`
	TrackCount int       `gorm:"column:track_count;not null;default:0" json:"track_count"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Project) TableName() string { return "project" }

// ProjectFile is one entry of a project's file manifest. For legacy projects
// these rows double as the derived representation of a track: a file tagged
// as a track candidate can be upgraded into a canonical Track row.
type ProjectFile struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID     uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project       *Project  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	FileName      string    `gorm:"column:file_name;not null" json:"file_name"`
	FileURL       string    `gorm:"column:file_url" json:"file_url"`
	Price         float64   `gorm:"column:price;not null;default:0" json:"price"`
	AllowDownload bool      `gorm:"column:allow_download;not null;default:false" json:"allow_download"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ProjectFile) TableName() string { return "project_file" }

type ServiceListing struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProducerID uuid.UUID `gorm:"type:uuid;not null;index" json:"producer_id"`
	Producer   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProducerID;references:ID" json:"producer,omitempty"`
	Title      string    `gorm:"column:title;not null" json:"title"`
	Price      float64   `gorm:"column:price;not null;default:0" json:"price"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ServiceListing) TableName() string { return "service_listing" }

type SoundPack struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProducerID uuid.UUID `gorm:"type:uuid;not null;index" json:"producer_id"`
	Producer   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProducerID;references:ID" json:"producer,omitempty"`
	Title      string    `gorm:"column:title;not null" json:"title"`
	Genre      string    `gorm:"column:genre" json:"genre"`
	Price      float64   `gorm:"column:price;not null;default:0" json:"price"`
	TrackCount int       `gorm:"column:track_count;not null;default:0" json:"track_count"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SoundPack) TableName() string { return "sound_pack" }
