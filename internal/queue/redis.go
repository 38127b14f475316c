package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultClaimSlot = time.Second

// RedisBroker is a reliable queue built on Redis lists, one list per task kind.
//
//	Publish: LPUSH <prefix>:queue:<kind>
//	Claim:   BLMOVE queue -> <prefix>:processing:<kind>
//	Ack:     LREM from the processing list
//
// Each kind is claimed by its own goroutine, so an idle kind never delays
// another. Items left in a processing list by a crashed worker are moved back with
// RequeueInFlight.
type RedisBroker struct {
	rdb    *redis.Client
	prefix string
	slot   time.Duration
}

// NewRedisBroker creates a broker over rdb. claimSlot bounds how long one
// BLMOVE blocks before the claimer rechecks for shutdown.
func NewRedisBroker(rdb *redis.Client, prefix string, claimSlot time.Duration) *RedisBroker {
	if claimSlot <= 0 {
		claimSlot = defaultClaimSlot
	}
	return &RedisBroker{rdb: rdb, prefix: prefix, slot: claimSlot}
}

func (b *RedisBroker) queueKey(kind string) string {
	return fmt.Sprintf("%s:queue:%s", b.prefix, kind)
}

func (b *RedisBroker) processingKey(kind string) string {
	return fmt.Sprintf("%s:processing:%s", b.prefix, kind)
}

func (b *RedisBroker) Publish(ctx context.Context, t Task) error {
	body, err := Encode(t)
	if err != nil {
		return err
	}
	if err := b.rdb.LPush(ctx, b.queueKey(t.Kind), body).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	return nil
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	if err := b.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	return nil
}

func (b *RedisBroker) Consume(ctx context.Context, kinds []string) (<-chan Delivery, error) {
	if len(kinds) == 0 {
		return nil, errors.New("consume: at least one task kind is required")
	}

	out := make(chan Delivery)
	var wg sync.WaitGroup
	for _, kind := range kinds {
		wg.Add(1)
		go func(kind string) {
			defer wg.Done()
			b.claimLoop(ctx, kind, out)
		}(kind)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func (b *RedisBroker) claimLoop(ctx context.Context, kind string, out chan<- Delivery) {
	for ctx.Err() == nil {
		d, ok := b.claim(ctx, kind)
		if !ok {
			continue
		}
		select {
		case out <- d:
		case <-ctx.Done():
			// Stays in the processing list; requeued on next start.
			return
		}
	}
}

// claim moves one task of kind into its processing list.
func (b *RedisBroker) claim(ctx context.Context, kind string) (Delivery, bool) {
	qk, pk := b.queueKey(kind), b.processingKey(kind)

	raw, err := b.rdb.BLMove(ctx, qk, pk, "RIGHT", "LEFT", b.slot).Result()
	if errors.Is(err, redis.Nil) {
		return Delivery{}, false
	}
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("redis claim failed", "kind", kind, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(b.slot):
			}
		}
		return Delivery{}, false
	}

	task, err := Decode([]byte(raw))
	if err != nil {
		slog.Error("dropping malformed task", "kind", kind, "error", err)
		_ = b.rdb.LRem(ctx, pk, 1, raw).Err()
		return Delivery{}, false
	}

	return NewDelivery(task, func(ctx context.Context) error {
		return b.rdb.LRem(ctx, pk, 1, raw).Err()
	}), true
}

// RequeueInFlight moves every task left in the processing lists back to the
// head of their queues. Call it once at worker start.
func (b *RedisBroker) RequeueInFlight(ctx context.Context, kinds []string) (int64, error) {
	var moved int64
	for _, kind := range kinds {
		for {
			err := b.rdb.LMove(ctx, b.processingKey(kind), b.queueKey(kind), "RIGHT", "RIGHT").Err()
			if errors.Is(err, redis.Nil) {
				break
			}
			if err != nil {
				return moved, fmt.Errorf("requeue %s: %w", kind, err)
			}
			moved++
		}
	}
	return moved, nil
}

// Len reports how many tasks of kind are waiting.
func (b *RedisBroker) Len(ctx context.Context, kind string) (int64, error) {
	return b.rdb.LLen(ctx, b.queueKey(kind)).Result()
}

// Close is a no-op; the Redis client is owned by the cache.
func (b *RedisBroker) Close() error { return nil }

var _ Broker = (*RedisBroker)(nil)
