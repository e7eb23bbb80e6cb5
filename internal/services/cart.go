package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/notify"
	"github.com/waveroom/marketplace-backend/internal/platform/apierr"
	"github.com/waveroom/marketplace-backend/internal/types"
)

type EngineState string

const (
	EngineUninitialized EngineState = "uninitialized"
	EngineLoading       EngineState = "loading"
	EngineReady         EngineState = "ready"
)

// MergeState guards the one-time anonymous->authenticated merge. A second
// transition event while a merge is in flight or finished must not start
// another one.
type MergeState int

const (
	MergeNotStarted MergeState = iota
	MergeInProgress
	MergeDone
)

// TrackVariantInput carries raw track metadata for the AddTrackVariant
// convenience path, where the storefront already holds the track row and
// its bundle manifest and skips the resolver round-trip.
type TrackVariantInput struct {
	TrackID           uuid.UUID            `json:"track_id"`
	ParentProjectID   *uuid.UUID           `json:"parent_project_id,omitempty"`
	Title             string               `json:"title"`
	Genre             string               `json:"genre"`
	ProducerName      string               `json:"producer_name"`
	ProducerAvatarURL string               `json:"producer_avatar_url"`
	Price             float64              `json:"price"`
	Manifest          []types.ManifestFile `json:"manifest"`
	SelectedVariants  []string             `json:"selected_variants"`
	Quantity          int                  `json:"quantity"`
}

// CartEngine is the cart facade for one logical session. It holds the
// in-memory active and saved-for-later lists, enforces the project/track
// exclusivity invariant, and persists through whichever CartStore matches
// the session mode. Mutating operations take effect in memory before the
// store confirms them and roll back when the adapter fails.
//
// All operations serialize on one mutex: the engine models a single session
// context, not a shared concurrent structure.
type CartEngine struct {
	log      *logger.Logger
	notifier notify.Sink
	resolver EntityResolver
	pricer   *PriceCalculator

	mu         sync.Mutex
	sessionKey string
	mode       types.SessionMode
	state      EngineState
	mergeState MergeState
	store      CartStore
	opTimeout  time.Duration
	active     []*types.CartItem
	saved      []*types.CartItem
}

type EngineConfig struct {
	SessionKey string
	Mode       types.SessionMode
	Store      CartStore
	Resolver   EntityResolver
	Pricer     *PriceCalculator
	Notifier   notify.Sink
	OpTimeout  time.Duration
}

func NewCartEngine(log *logger.Logger, cfg EngineConfig) *CartEngine {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NopSink{}
	}
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CartEngine{
		log:        log.With("service", "CartEngine", "session", cfg.SessionKey),
		notifier:   notifier,
		resolver:   cfg.Resolver,
		pricer:     cfg.Pricer,
		sessionKey: cfg.SessionKey,
		mode:       cfg.Mode,
		state:      EngineUninitialized,
		mergeState: MergeNotStarted,
		store:      cfg.Store,
		opTimeout:  timeout,
	}
}

func (ce *CartEngine) Mode() types.SessionMode {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	return ce.mode
}

func (ce *CartEngine) State() EngineState {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	return ce.state
}

// Init loads the in-memory lists from the session's store. Re-entering the
// loading state replaces in-memory state rather than merging it.
func (ce *CartEngine) Init(ctx context.Context) error {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	if ce.state == EngineReady {
		return nil
	}
	return ce.loadLocked(ctx)
}

func (ce *CartEngine) loadLocked(ctx context.Context) error {
	ce.state = EngineLoading
	var items []*types.CartItem
	err := ce.persist(ctx, func(opCtx context.Context) error {
		var loadErr error
		items, loadErr = ce.store.Load(opCtx)
		return loadErr
	})
	if err != nil {
		ce.state = EngineUninitialized
		return transientWrap(err)
	}
	ce.replaceListsLocked(items)
	ce.state = EngineReady
	return nil
}

// EnsureMerged runs the one-time anonymous->authenticated migration and
// switches the engine onto the remote store. Safe to call on every
// authenticated request: only the first call does work.
func (ce *CartEngine) EnsureMerged(ctx context.Context, mc *MergeCoordinator, remote CartStore) error {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if ce.mergeState != MergeNotStarted {
		return nil
	}
	ce.mergeState = MergeInProgress
	ce.state = EngineLoading

	items, err := mc.Run(ctx)
	if err != nil && !isPartialMerge(err) {
		// The merge never completed; allow a later transition event to
		// retry. Idempotent by construction, so a retry is safe.
		ce.mergeState = MergeNotStarted
		ce.state = EngineUninitialized
		return transientWrap(err)
	}
	if err != nil {
		ce.log.Warn("Proceeding after partial cart merge", "error", err)
	}

	ce.mergeState = MergeDone
	ce.mode = types.SessionAuthenticated
	ce.store = remote
	ce.replaceListsLocked(items)
	ce.state = EngineReady
	return nil
}

// MarkMerged records that this session needs no migration (a session that
// was never anonymous).
func (ce *CartEngine) MarkMerged() {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	if ce.mergeState == MergeNotStarted {
		ce.mergeState = MergeDone
	}
}

// IsInCart reports membership by (kind, entity-id) identity across both
// lists; quantity and variant selections are ignored.
func (ce *CartEngine) IsInCart(ref types.EntityRef) bool {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	return ce.findByRefLocked(ref) != nil
}

// Add resolves, prices and persists a new cart line, then appends it to the
// in-memory active list. The append happens only after confirmed
// persistence, so adapter failure leaves memory untouched.
func (ce *CartEngine) Add(ctx context.Context, ref types.EntityRef, quantity int, selectedVariants []string) (*types.CartItem, error) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if existing := ce.findByRefLocked(ref); existing != nil {
		ce.notify(ctx, notify.LevelInfo, "This item is already in your cart")
		return existing, nil
	}

	var snap *types.EntitySnapshot
	err := ce.persist(ctx, func(opCtx context.Context) error {
		var resolveErr error
		snap, resolveErr = ce.resolver.Resolve(opCtx, ref)
		return resolveErr
	})
	if err != nil {
		if apierr.IsNotFound(err) {
			ce.notify(ctx, notify.LevelError, "This item is no longer available")
			return nil, err
		}
		ce.notify(ctx, notify.LevelError, "Could not add the item to your cart")
		return nil, transientWrap(err)
	}

	return ce.addSnapshotLocked(ctx, snap, quantity, selectedVariants)
}

// AddTrackVariant is the convenience path for raw track metadata that has
// not gone through the entity resolver.
func (ce *CartEngine) AddTrackVariant(ctx context.Context, input TrackVariantInput) (*types.CartItem, error) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if input.TrackID == uuid.Nil {
		return nil, apierr.Invalid(errors.New("track id required"))
	}

	ref := types.EntityRef{Kind: types.KindTrack, ID: input.TrackID}
	if existing := ce.findByRefLocked(ref); existing != nil {
		ce.notify(ctx, notify.LevelInfo, "This track is already in your cart")
		return existing, nil
	}

	snap := &types.EntitySnapshot{
		Ref:               ref,
		Title:             input.Title,
		Price:             input.Price,
		Genre:             input.Genre,
		ProducerName:      input.ProducerName,
		ProducerAvatarURL: input.ProducerAvatarURL,
		ParentProjectID:   input.ParentProjectID,
		Manifest:          input.Manifest,
	}
	return ce.addSnapshotLocked(ctx, snap, input.Quantity, input.SelectedVariants)
}

func (ce *CartEngine) addSnapshotLocked(ctx context.Context, snap *types.EntitySnapshot, quantity int, selectedVariants []string) (*types.CartItem, error) {
	ref := snap.Ref

	// A track whose parent bundle is already active would be paid for
	// twice; refuse it.
	if ref.Kind == types.KindTrack && snap.ParentProjectID != nil {
		parentRef := types.EntityRef{Kind: types.KindProject, ID: *snap.ParentProjectID}
		for _, item := range ce.active {
			if itemRef, ok := item.Ref(); ok && itemRef == parentRef {
				ce.notify(ctx, notify.LevelInfo, "This track is already included in a project in your cart")
				return nil, nil
			}
		}
	}

	if quantity <= 0 {
		quantity = 1
	}

	item := &types.CartItem{
		Quantity:          quantity,
		Title:             snap.Title,
		Price:             ce.pricer.ComputePrice(snap, selectedVariants),
		ProducerName:      snap.ProducerName,
		ProducerAvatarURL: snap.ProducerAvatarURL,
		Genre:             snap.Genre,
		TrackCount:        snap.TrackCount,
		ParentProjectID:   snap.ParentProjectID,
	}
	item.SetRef(ref)
	if ref.Kind == types.KindTrack && len(selectedVariants) > 0 {
		item.SelectedVariants = datatypes.NewJSONSlice(selectedVariants)
	}

	var inserted *types.CartItem
	err := ce.persist(ctx, func(opCtx context.Context) error {
		var insertErr error
		inserted, insertErr = ce.store.Insert(opCtx, item)
		return insertErr
	})
	if err != nil {
		if apierr.IsConflict(err) {
			// Memory was stale; the store already has this line. Reload so
			// the lists reflect reality.
			ce.notify(ctx, notify.LevelInfo, "This item is already in your cart")
			if reloadErr := ce.loadLocked(ctx); reloadErr != nil {
				ce.log.Warn("Reload after insert conflict failed", "error", reloadErr)
			}
			return ce.findByRefLocked(ref), nil
		}
		ce.notify(ctx, notify.LevelError, "Could not add the item to your cart")
		return nil, transientWrap(err)
	}

	ce.active = append(ce.active, inserted)

	if ref.Kind == types.KindProject {
		ce.consolidateProjectTracksLocked(ctx, ref.ID)
	}

	return inserted, nil
}

// consolidateProjectTracksLocked removes active track lines that the just
// added project bundle already covers.
func (ce *CartEngine) consolidateProjectTracksLocked(ctx context.Context, projectID uuid.UUID) {
	var redundant []*types.CartItem
	for _, item := range ce.active {
		if item.Kind == types.KindTrack && item.ParentProjectID != nil && *item.ParentProjectID == projectID {
			redundant = append(redundant, item)
		}
	}
	if len(redundant) == 0 {
		return
	}

	removed := 0
	for _, item := range redundant {
		itemID := item.ID
		err := ce.persist(ctx, func(opCtx context.Context) error {
			return ce.store.Delete(opCtx, itemID)
		})
		if err != nil {
			ce.log.Warn("Failed to remove redundant track after bundle add", "item_id", itemID, "error", err)
			continue
		}
		ce.removeFromListLocked(&ce.active, itemID)
		removed++
	}
	if removed > 0 {
		ce.notify(ctx, notify.LevelInfo, fmt.Sprintf("Removed %d track(s) now included in the project bundle", removed))
	}
}

// Remove deletes a line from whichever list holds it. On adapter failure
// the line reappears at its original position.
func (ce *CartEngine) Remove(ctx context.Context, itemID uuid.UUID) error {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	list, idx := ce.locateLocked(itemID)
	if list == nil {
		return apierr.NotFound(fmt.Errorf("cart item %s not found", itemID))
	}
	item := (*list)[idx]

	return ce.withOptimisticUpdate(ctx,
		func() {
			*list = append((*list)[:idx], (*list)[idx+1:]...)
		},
		func(opCtx context.Context) error {
			return ce.store.Delete(opCtx, itemID)
		},
		func() {
			rest := *list
			*list = append(rest[:idx], append([]*types.CartItem{item}, rest[idx:]...)...)
		},
		"Could not remove the item from your cart",
	)
}

// SaveForLater moves an active line onto the saved list.
func (ce *CartEngine) SaveForLater(ctx context.Context, itemID uuid.UUID) error {
	return ce.setSaved(ctx, itemID, true)
}

// MoveToCart restores a saved line onto the active list.
func (ce *CartEngine) MoveToCart(ctx context.Context, itemID uuid.UUID) error {
	return ce.setSaved(ctx, itemID, false)
}

func (ce *CartEngine) setSaved(ctx context.Context, itemID uuid.UUID, saved bool) error {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	from, to := &ce.active, &ce.saved
	failureMsg := "Could not save the item for later"
	if !saved {
		from, to = &ce.saved, &ce.active
		failureMsg = "Could not move the item back to your cart"
	}

	list, idx := ce.locateLocked(itemID)
	if list != to && list != from {
		return apierr.NotFound(fmt.Errorf("cart item %s not found", itemID))
	}
	if list == to {
		// Already where the caller wants it.
		return nil
	}
	item := (*list)[idx]

	prevActive := snapshotList(ce.active)
	prevSaved := snapshotList(ce.saved)
	prevFlag := item.SavedForLater

	return ce.withOptimisticUpdate(ctx,
		func() {
			*from = append((*from)[:idx], (*from)[idx+1:]...)
			item.SavedForLater = saved
			*to = append(*to, item)
		},
		func(opCtx context.Context) error {
			return ce.store.SetSaved(opCtx, itemID, saved)
		},
		func() {
			item.SavedForLater = prevFlag
			ce.active = prevActive
			ce.saved = prevSaved
		},
		failureMsg,
	)
}

// Clear removes every active line; saved-for-later lines stay. The remote
// case is a single bulk delete scoped to the active flag.
func (ce *CartEngine) Clear(ctx context.Context) error {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	prevActive := snapshotList(ce.active)

	return ce.withOptimisticUpdate(ctx,
		func() {
			ce.active = nil
		},
		func(opCtx context.Context) error {
			return ce.store.ClearActive(opCtx)
		},
		func() {
			ce.active = prevActive
		},
		"Could not clear your cart",
	)
}

func (ce *CartEngine) ActiveItems() []*types.CartItem {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	return snapshotList(ce.active)
}

func (ce *CartEngine) SavedItems() []*types.CartItem {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	return snapshotList(ce.saved)
}

// withOptimisticUpdate is the single rollback contract behind every
// mutating operation: apply in memory, persist with a timeout, revert and
// notify when the adapter fails.
func (ce *CartEngine) withOptimisticUpdate(ctx context.Context, apply func(), persistFn func(context.Context) error, revert func(), failureMsg string) error {
	apply()
	if err := ce.persist(ctx, persistFn); err != nil {
		revert()
		ce.notify(ctx, notify.LevelError, failureMsg)
		return transientWrap(err)
	}
	return nil
}

// persist bounds every adapter round-trip so a hung call lands on the same
// rollback path as any other failure.
func (ce *CartEngine) persist(ctx context.Context, fn func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, ce.opTimeout)
	defer cancel()
	return fn(opCtx)
}

func (ce *CartEngine) replaceListsLocked(items []*types.CartItem) {
	ce.active = nil
	ce.saved = nil
	for _, item := range items {
		if item.SavedForLater {
			ce.saved = append(ce.saved, item)
		} else {
			ce.active = append(ce.active, item)
		}
	}
}

func (ce *CartEngine) findByRefLocked(ref types.EntityRef) *types.CartItem {
	for _, list := range [][]*types.CartItem{ce.active, ce.saved} {
		for _, item := range list {
			if itemRef, ok := item.Ref(); ok && itemRef == ref {
				return item
			}
		}
	}
	return nil
}

func (ce *CartEngine) locateLocked(itemID uuid.UUID) (*[]*types.CartItem, int) {
	for i, item := range ce.active {
		if item.ID == itemID {
			return &ce.active, i
		}
	}
	for i, item := range ce.saved {
		if item.ID == itemID {
			return &ce.saved, i
		}
	}
	return nil, -1
}

func (ce *CartEngine) removeFromListLocked(list *[]*types.CartItem, itemID uuid.UUID) {
	for i, item := range *list {
		if item.ID == itemID {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func (ce *CartEngine) notify(ctx context.Context, level notify.Level, msg string) {
	ce.notifier.Notify(ctx, notify.Notice{
		Level:      level,
		Message:    msg,
		SessionKey: ce.sessionKey,
	})
}

func snapshotList(items []*types.CartItem) []*types.CartItem {
	out := make([]*types.CartItem, len(items))
	copy(out, items)
	return out
}

func transientWrap(err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apierr.Transient(err)
}

func isPartialMerge(err error) bool {
	var ae *apierr.Error
	return errors.As(err, &ae) && ae.Code == apierr.CodePartialMerge
}
