package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	redisclients "github.com/waveroom/marketplace-backend/internal/clients/redis"
	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/notify"
	"github.com/waveroom/marketplace-backend/internal/platform/apierr"
	"github.com/waveroom/marketplace-backend/internal/types"
)

// MergeCoordinator migrates an anonymous session's cart into the user's
// durable cart, exactly once per anonymous->authenticated transition. Merge
// is best-effort: a line that fails to move is reported, never fatal, and a
// line already present remotely is idempotent success.
type MergeCoordinator struct {
	log        *logger.Logger
	notifier   notify.Sink
	sessionID  string
	sessionKey string
	local      redisclients.AnonCartStore
	remote     CartStore
}

func NewMergeCoordinator(
	log *logger.Logger,
	notifier notify.Sink,
	sessionID string,
	sessionKey string,
	local redisclients.AnonCartStore,
	remote CartStore,
) *MergeCoordinator {
	return &MergeCoordinator{
		log:        log.With("service", "MergeCoordinator"),
		notifier:   notifier,
		sessionID:  sessionID,
		sessionKey: sessionKey,
		local:      local,
		remote:     remote,
	}
}

// Run performs the migration and returns the post-merge remote item list.
// On partial failure the list is still returned together with a
// partial_merge error the caller may log; the session proceeds with
// whatever did migrate. The local store is discarded unconditionally - the
// remote store is the sole source of truth afterwards.
func (mc *MergeCoordinator) Run(ctx context.Context) ([]*types.CartItem, error) {
	tracer := otel.Tracer("cart")
	ctx, span := tracer.Start(ctx, "cart.merge", trace.WithAttributes(
		attribute.String("cart.session_id", mc.sessionID),
	))
	defer span.End()

	// Resolves or creates the remote cart and gives us the dedupe set in
	// one trip.
	remoteItems, err := mc.remote.Load(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	localItems, err := mc.local.Load(ctx, mc.sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(localItems) == 0 {
		if err := mc.local.Clear(ctx, mc.sessionID); err != nil {
			mc.log.Warn("Failed to clear empty anon cart", "session_id", mc.sessionID, "error", err)
		}
		return remoteItems, nil
	}

	present := make(map[types.EntityRef]struct{}, len(remoteItems))
	for _, item := range remoteItems {
		if ref, ok := item.Ref(); ok {
			present[ref] = struct{}{}
		}
	}

	var failures []error
	migrated := 0
	for _, item := range localItems {
		ref, ok := item.Ref()
		if !ok {
			continue
		}
		if _, dup := present[ref]; dup {
			continue
		}

		fresh := *item
		fresh.ID = uuid.Nil
		fresh.CartID = uuid.Nil
		if _, err := mc.remote.Insert(ctx, &fresh); err != nil {
			if apierr.IsConflict(err) {
				// Someone beat us to it; already present is success.
				present[ref] = struct{}{}
				continue
			}
			failures = append(failures, fmt.Errorf("migrate %s: %w", ref, err))
			continue
		}
		present[ref] = struct{}{}
		migrated++
	}

	// Discard the local store regardless of outcome.
	if err := mc.local.Clear(ctx, mc.sessionID); err != nil {
		mc.log.Warn("Failed to discard anon cart after merge", "session_id", mc.sessionID, "error", err)
	}

	items, err := mc.remote.Load(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("cart.merge.migrated", migrated),
		attribute.Int("cart.merge.failed", len(failures)),
	)

	if len(failures) > 0 {
		aggregate := errors.Join(failures...)
		span.RecordError(aggregate)
		mc.log.Warn("Cart merge completed with failures", "session_id", mc.sessionID, "migrated", migrated, "failed", len(failures), "error", aggregate)
		mc.notifier.Notify(ctx, notify.Notice{
			Level:      notify.LevelWarning,
			Message:    fmt.Sprintf("%d item(s) from your guest cart could not be moved to your account", len(failures)),
			SessionKey: mc.sessionKey,
		})
		return items, apierr.PartialMerge(aggregate)
	}

	mc.log.Info("Cart merge complete", "session_id", mc.sessionID, "migrated", migrated, "remote_items", len(items))
	return items, nil
}
