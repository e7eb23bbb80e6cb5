package types

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityKind identifies which catalog table a cart line points at.
type EntityKind string

const (
	KindTrack     EntityKind = "track"
	KindProject   EntityKind = "project"
	KindService   EntityKind = "service"
	KindSoundPack EntityKind = "soundpack"
)

func (k EntityKind) Valid() bool {
	switch k {
	case KindTrack, KindProject, KindService, KindSoundPack:
		return true
	}
	return false
}

func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
	return k, nil
}

// EntityRef is the (kind, id) identity of a catalog entity. Cart membership
// and merge deduplication both compare by EntityRef.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

func (r EntityRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// ManifestFile is one file of a bundle's manifest as the price calculator
// sees it.
type ManifestFile struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// EntitySnapshot carries the denormalized display and pricing fields captured
// when an entity is materialized into a cart line. It is not re-synced after
// the line exists.
type EntitySnapshot struct {
	Ref               EntityRef
	Title             string
	Price             float64
	Genre             string
	TrackCount        int
	ProducerName      string
	ProducerAvatarURL string

	// ParentProjectID is set for tracks that belong to a project bundle.
	ParentProjectID *uuid.UUID

	// Manifest holds the parent bundle's file list, used only for variant
	// pricing of tracks.
	Manifest []ManifestFile
}
