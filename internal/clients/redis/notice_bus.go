package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/notify"
)

// NoticeBus publishes cart notices to a Redis channel so the storefront's
// realtime layer can surface them. It implements notify.Sink.
type NoticeBus interface {
	notify.Sink
	StartForwarder(ctx context.Context, onNotice func(n notify.Notice)) error
	Close() error
}

type noticeBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewNoticeBus(log *logger.Logger, rdb *goredis.Client) (NoticeBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}

	ch := strings.TrimSpace(os.Getenv("REDIS_NOTICE_CHANNEL"))
	if ch == "" {
		ch = "cart:notices"
	}

	return &noticeBus{
		log:     log.With("service", "RedisNoticeBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *noticeBus) Notify(ctx context.Context, n notify.Notice) {
	raw, err := json.Marshal(n)
	if err != nil {
		b.log.Warn("Failed to marshal notice", "error", err)
		return
	}
	// Best-effort: a lost notice never fails the cart operation behind it.
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		b.log.Warn("Failed to publish notice", "error", err)
	}
}

func (b *noticeBus) StartForwarder(ctx context.Context, onNotice func(n notify.Notice)) error {
	if onNotice == nil {
		return fmt.Errorf("onNotice callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var n notify.Notice
				if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
					b.log.Warn("Dropping malformed notice payload", "error", err)
					continue
				}
				onNotice(n)
			}
		}
	}()

	return nil
}

func (b *noticeBus) Close() error {
	return b.rdb.Close()
}
