package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kiranshivaraju/elasticbot/internal/dispatch"
	"github.com/kiranshivaraju/elasticbot/internal/queue"
)

// Pool runs Concurrency goroutines that pull deliveries from a consumer and
// hand them to the registry. Every delivery is acked once handled, whatever
// the outcome; handlers record their own failures.
type Pool struct {
	consumer    queue.Consumer
	registry    *Registry
	concurrency int
	now         func() time.Time
}

func NewPool(c queue.Consumer, r *Registry, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{consumer: c, registry: r, concurrency: concurrency, now: time.Now}
}

// Run consumes until ctx is cancelled and all in-flight tasks have finished.
func (p *Pool) Run(ctx context.Context) error {
	kinds := p.registry.Kinds()
	deliveries, err := p.consumer.Consume(ctx, kinds)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	slog.Info("worker pool started", "concurrency", p.concurrency, "kinds", kinds)

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for d := range deliveries {
				p.process(ctx, id, d)
			}
		}(i)
	}
	wg.Wait()

	slog.Info("worker pool stopped")
	return nil
}

func (p *Pool) process(ctx context.Context, workerID int, d queue.Delivery) {
	t := d.Task
	log := slog.With("worker", workerID, "task_kind", t.Kind, "task_id", t.ID, "ref", t.Ref)

	defer func() {
		// Ack on a fresh context so a shutdown mid-task still releases it.
		ackCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Ack(ackCtx); err != nil {
			log.Error("ack failed", "error", err)
		}
	}()

	if t.Expired(p.now()) {
		log.Warn("dropping expired task", "expires_at", t.ExpiresAt)
		return
	}

	// Shutdown stops new claims only; a task already taken runs to completion
	// under its handler's own deadline.
	start := time.Now()
	err := p.safeHandle(dispatch.WithMode(context.WithoutCancel(ctx), dispatch.ModeAsync), t)
	duration := time.Since(start)
	if err != nil {
		log.Error("task failed", "error", err, "duration_ms", duration.Milliseconds())
		return
	}
	log.Info("task completed", "duration_ms", duration.Milliseconds())
}

func (p *Pool) safeHandle(ctx context.Context, t queue.Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in task handler",
				"task_kind", t.Kind,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return p.registry.Handle(ctx, t)
}
