package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cart is the durable per-user aggregate. It is created lazily on the first
// remote cart operation and never deleted by the cart subsystem. Historical
// data contains users with more than one cart row; readers must pick the
// newest instead of failing.
type Cart struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Cart) TableName() string { return "cart" }

// CartItem is a single cart line. While the session is anonymous the line
// lives as JSON in the session's local store with a locally generated ID;
// once persisted remotely the store-assigned ID takes over. Exactly one of
// the entity reference fields is set, mirrored into EntityID for the
// (cart_id, kind, entity_id) uniqueness constraint.
type CartItem struct {
	ID     uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CartID uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:uq_cart_item_entity" json:"cart_id"`
	Kind   EntityKind `gorm:"column:kind;not null;uniqueIndex:uq_cart_item_entity" json:"kind"`

	// EntityID mirrors whichever reference below matches Kind.
	EntityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_cart_item_entity" json:"entity_id"`

	TrackID     *uuid.UUID `gorm:"type:uuid;index" json:"track_id,omitempty"`
	ProjectID   *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	ServiceID   *uuid.UUID `gorm:"type:uuid;index" json:"service_id,omitempty"`
	SoundPackID *uuid.UUID `gorm:"type:uuid;index" json:"sound_pack_id,omitempty"`

	// ParentProjectID is the bundle a track item belongs to, kept for the
	// project/track exclusivity check.
	ParentProjectID *uuid.UUID `gorm:"type:uuid" json:"parent_project_id,omitempty"`

	Quantity      int  `gorm:"column:quantity;not null;default:1" json:"quantity"`
	SavedForLater bool `gorm:"column:saved_for_later;not null;default:false" json:"saved_for_later"`

	// Display/pricing snapshot captured at add time, not re-synced.
	Title             string  `gorm:"column:title" json:"title"`
	Price             float64 `gorm:"column:price;not null;default:0" json:"price"`
	ProducerName      string  `gorm:"column:producer_name" json:"producer_name"`
	ProducerAvatarURL string  `gorm:"column:producer_avatar_url" json:"producer_avatar_url"`
	Genre             string  `gorm:"column:genre" json:"genre"`
	TrackCount        int     `gorm:"column:track_count;not null;default:0" json:"track_count"`

	// SelectedVariants is meaningful only for Kind == track.
	SelectedVariants datatypes.JSONSlice[string] `gorm:"column:selected_variants" json:"selected_variants,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CartItem) TableName() string { return "cart_item" }

// Ref returns the item's (kind, entity-id) identity. ok is false when the
// item carries no recognizable reference for its kind; such items are
// dropped rather than persisted.
func (ci *CartItem) Ref() (EntityRef, bool) {
	var id *uuid.UUID
	switch ci.Kind {
	case KindTrack:
		id = ci.TrackID
	case KindProject:
		id = ci.ProjectID
	case KindService:
		id = ci.ServiceID
	case KindSoundPack:
		id = ci.SoundPackID
	}
	if id == nil || *id == uuid.Nil {
		return EntityRef{}, false
	}
	return EntityRef{Kind: ci.Kind, ID: *id}, true
}

// SetRef points the item at ref, clearing the other reference fields and
// keeping EntityID in sync.
func (ci *CartItem) SetRef(ref EntityRef) {
	ci.Kind = ref.Kind
	ci.TrackID, ci.ProjectID, ci.ServiceID, ci.SoundPackID = nil, nil, nil, nil
	id := ref.ID
	switch ref.Kind {
	case KindTrack:
		ci.TrackID = &id
	case KindProject:
		ci.ProjectID = &id
	case KindService:
		ci.ServiceID = &id
	case KindSoundPack:
		ci.SoundPackID = &id
	}
	ci.EntityID = ref.ID
}

// BeforeCreate enforces the exactly-one-reference invariant and syncs
// EntityID before the row hits the store.
func (ci *CartItem) BeforeCreate(_ *gorm.DB) error {
	refs := 0
	for _, id := range []*uuid.UUID{ci.TrackID, ci.ProjectID, ci.ServiceID, ci.SoundPackID} {
		if id != nil && *id != uuid.Nil {
			refs++
		}
	}
	if refs != 1 {
		return fmt.Errorf("cart item must reference exactly one entity, has %d", refs)
	}
	ref, ok := ci.Ref()
	if !ok {
		return fmt.Errorf("cart item reference does not match kind %q", ci.Kind)
	}
	ci.EntityID = ref.ID
	if ci.Quantity <= 0 {
		ci.Quantity = 1
	}
	return nil
}
