package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveroom/marketplace-backend/internal/notify"
	"github.com/waveroom/marketplace-backend/internal/platform/apierr"
	"github.com/waveroom/marketplace-backend/internal/types"
)

// fakeCartStore is an in-memory CartStore with injectable failures, standing
// in for both adapters in engine and merge tests.
type fakeCartStore struct {
	mu    sync.Mutex
	items []*types.CartItem

	failLoad    error
	failInsert  error
	failDelete  error
	failSet     error
	failClear   error
	insertCalls int
	deleteCalls int
	clearCalls  int
}

func (f *fakeCartStore) Load(ctx context.Context) ([]*types.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	out := make([]*types.CartItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeCartStore) Insert(ctx context.Context, item *types.CartItem) (*types.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.failInsert != nil {
		return nil, f.failInsert
	}
	ref, ok := item.Ref()
	if !ok {
		return nil, apierr.Invalid(fmt.Errorf("cart item has no entity reference"))
	}
	for _, existing := range f.items {
		if existingRef, ok := existing.Ref(); ok && existingRef == ref {
			return nil, apierr.Conflict(fmt.Errorf("cart item already exists for %s", ref))
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	item.EntityID = ref.ID
	f.items = append(f.items, item)
	return item, nil
}

func (f *fakeCartStore) Delete(ctx context.Context, itemID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete != nil {
		return f.failDelete
	}
	kept := f.items[:0]
	for _, item := range f.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeCartStore) SetSaved(ctx context.Context, itemID uuid.UUID, saved bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return f.failSet
	}
	for _, item := range f.items {
		if item.ID == itemID {
			item.SavedForLater = saved
		}
	}
	return nil
}

func (f *fakeCartStore) ClearActive(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	if f.failClear != nil {
		return f.failClear
	}
	kept := f.items[:0]
	for _, item := range f.items {
		if item.SavedForLater {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeCartStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// fakeAnonStore is an in-memory whole-list anonymous store keyed by
// session ID.
type fakeAnonStore struct {
	mu    sync.Mutex
	lists map[string][]*types.CartItem

	failLoad   error
	failSave   error
	clearCalls int
}

func newFakeAnonStore() *fakeAnonStore {
	return &fakeAnonStore{lists: make(map[string][]*types.CartItem)}
}

func (f *fakeAnonStore) Load(ctx context.Context, sessionID string) ([]*types.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	items := f.lists[sessionID]
	out := make([]*types.CartItem, len(items))
	copy(out, items)
	return out, nil
}

func (f *fakeAnonStore) Save(ctx context.Context, sessionID string, items []*types.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	if len(items) == 0 {
		delete(f.lists, sessionID)
		return nil
	}
	kept := make([]*types.CartItem, 0, len(items))
	kept = append(kept, items...)
	f.lists[sessionID] = kept
	return nil
}

func (f *fakeAnonStore) Clear(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	delete(f.lists, sessionID)
	return nil
}

func (f *fakeAnonStore) size(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists[sessionID])
}

// recordingSink captures notices for assertions.
type recordingSink struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (r *recordingSink) Notify(_ context.Context, n notify.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func (r *recordingSink) last() (notify.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return notify.Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// staticResolver serves snapshots out of a fixed map.
type staticResolver struct {
	snaps map[types.EntityRef]*types.EntitySnapshot
	err   error
}

func (s *staticResolver) Resolve(_ context.Context, ref types.EntityRef) (*types.EntitySnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	snap, ok := s.snaps[ref]
	if !ok {
		return nil, apierr.NotFound(fmt.Errorf("%s not found", ref))
	}
	return snap, nil
}

// Fake repos for resolver tests.

type fakeUserRepo struct {
	users map[uuid.UUID]*types.User
}

func (f *fakeUserRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.User, error) {
	return f.users[id], nil
}

type fakeTrackRepo struct {
	tracks    map[uuid.UUID]*types.Track
	createErr error
	created   int
}

func (f *fakeTrackRepo) Create(_ context.Context, _ *gorm.DB, tracks []*types.Track) ([]*types.Track, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, tr := range tracks {
		f.tracks[tr.ID] = tr
		f.created++
	}
	return tracks, nil
}

func (f *fakeTrackRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Track, error) {
	var out []*types.Track
	for _, id := range ids {
		if tr, ok := f.tracks[id]; ok {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (f *fakeTrackRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Track, error) {
	return f.tracks[id], nil
}

func (f *fakeTrackRepo) GetByProjectIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Track, error) {
	var out []*types.Track
	for _, tr := range f.tracks {
		for _, id := range ids {
			if tr.ProjectID != nil && *tr.ProjectID == id {
				out = append(out, tr)
			}
		}
	}
	return out, nil
}

type fakeProjectRepo struct {
	projects map[uuid.UUID]*types.Project
}

func (f *fakeProjectRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Project, error) {
	var out []*types.Project
	for _, id := range ids {
		if p, ok := f.projects[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjectRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Project, error) {
	return f.projects[id], nil
}

type fakeProjectFileRepo struct {
	files map[uuid.UUID]*types.ProjectFile
}

func (f *fakeProjectFileRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.ProjectFile, error) {
	var out []*types.ProjectFile
	for _, id := range ids {
		if pf, ok := f.files[id]; ok {
			out = append(out, pf)
		}
	}
	return out, nil
}

func (f *fakeProjectFileRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.ProjectFile, error) {
	return f.files[id], nil
}

func (f *fakeProjectFileRepo) GetByProjectIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.ProjectFile, error) {
	var out []*types.ProjectFile
	for _, pf := range f.files {
		for _, id := range ids {
			if pf.ProjectID == id {
				out = append(out, pf)
			}
		}
	}
	return out, nil
}

type fakeServiceListingRepo struct {
	listings map[uuid.UUID]*types.ServiceListing
}

func (f *fakeServiceListingRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.ServiceListing, error) {
	var out []*types.ServiceListing
	for _, id := range ids {
		if l, ok := f.listings[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeServiceListingRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.ServiceListing, error) {
	return f.listings[id], nil
}

type fakeSoundPackRepo struct {
	packs map[uuid.UUID]*types.SoundPack
}

func (f *fakeSoundPackRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.SoundPack, error) {
	var out []*types.SoundPack
	for _, id := range ids {
		if p, ok := f.packs[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSoundPackRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.SoundPack, error) {
	return f.packs[id], nil
}

// trackItem builds a cart line referencing a track.
func trackItem(trackID uuid.UUID, title string, price float64) *types.CartItem {
	item := &types.CartItem{Title: title, Price: price, Quantity: 1}
	item.SetRef(types.EntityRef{Kind: types.KindTrack, ID: trackID})
	return item
}

func projectItem(projectID uuid.UUID, title string, price float64) *types.CartItem {
	item := &types.CartItem{Title: title, Price: price, Quantity: 1}
	item.SetRef(types.EntityRef{Kind: types.KindProject, ID: projectID})
	return item
}
