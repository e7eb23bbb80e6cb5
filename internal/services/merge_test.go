package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/notify"
	"github.com/waveroom/marketplace-backend/internal/platform/apierr"
	"github.com/waveroom/marketplace-backend/internal/types"
)

const testSessionID = "anon-sess-1"

func newMergeCoordinator(anon *fakeAnonStore, remote CartStore, sink notify.Sink) *MergeCoordinator {
	if sink == nil {
		sink = notify.NopSink{}
	}
	return NewMergeCoordinator(logger.NewNop(), sink, testSessionID, "user:test", anon, remote)
}

func TestMergeMigratesLocalItems(t *testing.T) {
	anon := newFakeAnonStore()
	localA := trackItem(uuid.New(), "Sunset Drive", 9.99)
	localA.ID = uuid.New()
	localB := projectItem(uuid.New(), "Sunset EP", 25.00)
	localB.ID = uuid.New()
	if err := anon.Save(context.Background(), testSessionID, []*types.CartItem{localA, localB}); err != nil {
		t.Fatalf("seed anon store: %v", err)
	}

	remote := &fakeCartStore{}
	mc := newMergeCoordinator(anon, remote, nil)

	items, err := mc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("post-merge items: want=2 got=%d", len(items))
	}
	for _, item := range items {
		if item.ID == localA.ID || item.ID == localB.ID {
			t.Fatalf("migrated item kept its temporary local ID %s", item.ID)
		}
	}
	if anon.size(testSessionID) != 0 {
		t.Fatalf("anon store not cleared after merge")
	}
}

func TestMergeSkipsItemsAlreadyRemote(t *testing.T) {
	trackID := uuid.New()
	anon := newFakeAnonStore()
	local := trackItem(trackID, "Sunset Drive", 9.99)
	local.ID = uuid.New()
	if err := anon.Save(context.Background(), testSessionID, []*types.CartItem{local}); err != nil {
		t.Fatalf("seed anon store: %v", err)
	}

	remote := &fakeCartStore{}
	already := trackItem(trackID, "Sunset Drive", 9.99)
	if _, err := remote.Insert(context.Background(), already); err != nil {
		t.Fatalf("seed remote store: %v", err)
	}

	mc := newMergeCoordinator(anon, remote, nil)
	items, err := mc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("post-merge items: want=1 got=%d", len(items))
	}
	if remote.insertCalls != 1 {
		t.Fatalf("insert calls: want=1 (seed only) got=%d", remote.insertCalls)
	}
	if anon.size(testSessionID) != 0 {
		t.Fatalf("anon store not cleared")
	}
}

func TestMergeConflictOnInsertIsSuccess(t *testing.T) {
	// The local snapshot can be stale: the dedupe set misses an item that
	// lands remotely between Load and Insert. The resulting conflict must
	// read as already-present, not failure.
	anon := newFakeAnonStore()
	local := trackItem(uuid.New(), "Sunset Drive", 9.99)
	local.ID = uuid.New()
	if err := anon.Save(context.Background(), testSessionID, []*types.CartItem{local}); err != nil {
		t.Fatalf("seed anon store: %v", err)
	}

	remote := &fakeCartStore{failInsert: apierr.Conflict(errors.New("duplicate key"))}
	mc := newMergeCoordinator(anon, remote, nil)

	if _, err := mc.Run(context.Background()); err != nil {
		t.Fatalf("Run: conflict should be treated as success, got %v", err)
	}
	if anon.size(testSessionID) != 0 {
		t.Fatalf("anon store not cleared")
	}
}

func TestMergePartialFailure(t *testing.T) {
	anon := newFakeAnonStore()
	local := trackItem(uuid.New(), "Sunset Drive", 9.99)
	local.ID = uuid.New()
	if err := anon.Save(context.Background(), testSessionID, []*types.CartItem{local}); err != nil {
		t.Fatalf("seed anon store: %v", err)
	}

	remote := &fakeCartStore{failInsert: errors.New("connection reset")}
	sink := &recordingSink{}
	mc := newMergeCoordinator(anon, remote, sink)

	items, err := mc.Run(context.Background())
	if err == nil {
		t.Fatalf("Run: expected partial_merge error")
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Code != apierr.CodePartialMerge {
		t.Fatalf("error code: want=%s got=%v", apierr.CodePartialMerge, err)
	}
	if items == nil {
		t.Fatalf("Run: post-merge items must be returned alongside partial failure")
	}
	// The local store is discarded even when lines failed to migrate.
	if anon.size(testSessionID) != 0 {
		t.Fatalf("anon store not cleared after partial failure")
	}
	if n, ok := sink.last(); !ok || n.Level != notify.LevelWarning {
		t.Fatalf("expected warning notice, got %+v (ok=%v)", n, ok)
	}
}

func TestMergeEmptyLocalCartIsNoOp(t *testing.T) {
	anon := newFakeAnonStore()
	remote := &fakeCartStore{}
	already := trackItem(uuid.New(), "Sunset Drive", 9.99)
	if _, err := remote.Insert(context.Background(), already); err != nil {
		t.Fatalf("seed remote store: %v", err)
	}

	mc := newMergeCoordinator(anon, remote, nil)
	items, err := mc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("post-merge items: want=1 got=%d", len(items))
	}
	if remote.insertCalls != 1 {
		t.Fatalf("insert calls: want=1 (seed only) got=%d", remote.insertCalls)
	}
	if anon.clearCalls == 0 {
		t.Fatalf("empty anon cart key should still be cleared")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	trackID := uuid.New()
	anon := newFakeAnonStore()
	local := trackItem(trackID, "Sunset Drive", 9.99)
	local.ID = uuid.New()
	if err := anon.Save(context.Background(), testSessionID, []*types.CartItem{local}); err != nil {
		t.Fatalf("seed anon store: %v", err)
	}

	remote := &fakeCartStore{}
	mc := newMergeCoordinator(anon, remote, nil)

	if _, err := mc.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	items, err := mc.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items after repeated merge: want=1 got=%d", len(items))
	}
	if remote.count() != 1 {
		t.Fatalf("remote items after repeated merge: want=1 got=%d", remote.count())
	}
}

func TestEnsureMergedRunsOnce(t *testing.T) {
	anon := newFakeAnonStore()
	local := trackItem(uuid.New(), "Sunset Drive", 9.99)
	local.ID = uuid.New()
	if err := anon.Save(context.Background(), testSessionID, []*types.CartItem{local}); err != nil {
		t.Fatalf("seed anon store: %v", err)
	}

	remote := &fakeCartStore{}
	engine := NewCartEngine(logger.NewNop(), EngineConfig{
		SessionKey: "anon:" + testSessionID,
		Mode:       types.SessionAnonymous,
		Store:      NewLocalCartStore(logger.NewNop(), anon, testSessionID),
		Pricer:     NewPriceCalculator(nil),
	})
	mc := newMergeCoordinator(anon, remote, nil)

	if err := engine.EnsureMerged(context.Background(), mc, remote); err != nil {
		t.Fatalf("first EnsureMerged: %v", err)
	}
	if engine.Mode() != types.SessionAuthenticated {
		t.Fatalf("mode after merge: want=%s got=%s", types.SessionAuthenticated, engine.Mode())
	}
	if got := len(engine.ActiveItems()); got != 1 {
		t.Fatalf("active items after merge: want=1 got=%d", got)
	}

	// A second transition event must not run another migration.
	if err := engine.EnsureMerged(context.Background(), mc, remote); err != nil {
		t.Fatalf("second EnsureMerged: %v", err)
	}
	if remote.insertCalls != 1 {
		t.Fatalf("insert calls: want=1 got=%d", remote.insertCalls)
	}
}

func TestEnsureMergedRetriesAfterHardFailure(t *testing.T) {
	anon := newFakeAnonStore()
	local := trackItem(uuid.New(), "Sunset Drive", 9.99)
	local.ID = uuid.New()
	if err := anon.Save(context.Background(), testSessionID, []*types.CartItem{local}); err != nil {
		t.Fatalf("seed anon store: %v", err)
	}

	remote := &fakeCartStore{failLoad: errors.New("connection refused")}
	engine := NewCartEngine(logger.NewNop(), EngineConfig{
		SessionKey: "anon:" + testSessionID,
		Mode:       types.SessionAnonymous,
		Store:      NewLocalCartStore(logger.NewNop(), anon, testSessionID),
		Pricer:     NewPriceCalculator(nil),
	})
	mc := newMergeCoordinator(anon, remote, nil)

	if err := engine.EnsureMerged(context.Background(), mc, remote); err == nil {
		t.Fatalf("EnsureMerged: expected error when remote load fails")
	}
	if engine.Mode() != types.SessionAnonymous {
		t.Fatalf("mode must not flip on failed merge")
	}
	if anon.size(testSessionID) != 1 {
		t.Fatalf("local cart must survive a failed merge")
	}

	remote.failLoad = nil
	if err := engine.EnsureMerged(context.Background(), mc, remote); err != nil {
		t.Fatalf("retry EnsureMerged: %v", err)
	}
	if remote.count() != 1 {
		t.Fatalf("remote items after retry: want=1 got=%d", remote.count())
	}
	if anon.size(testSessionID) != 0 {
		t.Fatalf("local cart not discarded after successful retry")
	}
}

func TestEnsureMergedProceedsAfterPartialFailure(t *testing.T) {
	anon := newFakeAnonStore()
	localA := trackItem(uuid.New(), "Sunset Drive", 9.99)
	localA.ID = uuid.New()
	if err := anon.Save(context.Background(), testSessionID, []*types.CartItem{localA}); err != nil {
		t.Fatalf("seed anon store: %v", err)
	}

	remote := &fakeCartStore{failInsert: errors.New("connection reset")}
	engine := NewCartEngine(logger.NewNop(), EngineConfig{
		SessionKey: "anon:" + testSessionID,
		Mode:       types.SessionAnonymous,
		Store:      NewLocalCartStore(logger.NewNop(), anon, testSessionID),
		Pricer:     NewPriceCalculator(nil),
	})
	mc := newMergeCoordinator(anon, remote, nil)

	// Partial failure is non-fatal: the session switches to the remote
	// store with whatever migrated.
	if err := engine.EnsureMerged(context.Background(), mc, remote); err != nil {
		t.Fatalf("EnsureMerged after partial failure: %v", err)
	}
	if engine.Mode() != types.SessionAuthenticated {
		t.Fatalf("mode after partial merge: want=%s got=%s", types.SessionAuthenticated, engine.Mode())
	}
	if engine.State() != EngineReady {
		t.Fatalf("state after partial merge: want=%s got=%s", EngineReady, engine.State())
	}

	remote.failInsert = nil
	if err := engine.EnsureMerged(context.Background(), mc, remote); err != nil {
		t.Fatalf("second EnsureMerged: %v", err)
	}
	if remote.insertCalls != 1 {
		t.Fatalf("partial merge must not rerun: insert calls want=1 got=%d", remote.insertCalls)
	}
}
