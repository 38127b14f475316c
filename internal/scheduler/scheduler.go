// Package scheduler fires the periodic market data tasks. Each trigger is a
// five-field cron expression evaluated in UTC; fires missed while the
// process was down are not replayed.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/elasticbot/internal/dispatch"
	"github.com/kiranshivaraju/elasticbot/internal/queue"
	"github.com/robfig/cron/v3"
)

// Trigger is one schedule entry.
type Trigger struct {
	Name    string
	Spec    string
	Kind    string
	Expires time.Duration
}

// DefaultSchedule returns the beat schedule.
func DefaultSchedule() []Trigger {
	return []Trigger{
		{Name: "collect-p2p-market", Spec: "*/30 * * * *", Kind: queue.KindCollectP2P, Expires: 25 * time.Minute},
		{Name: "refresh-exchange-rate", Spec: "0 12 * * *", Kind: queue.KindRefreshExchangeRate},
		{Name: "cleanup-market-data", Spec: "0 3 * * 0", Kind: queue.KindCleanup},
	}
}

// Scheduler dispatches a task for every trigger fire.
type Scheduler struct {
	strategy dispatch.Strategy
	cron     *cron.Cron

	mu        sync.Mutex
	ctx       context.Context
	triggers  []Trigger
	schedules map[string]cron.Schedule
	now       func() time.Time
}

// New parses every trigger up front. An invalid expression or a duplicate
// name is an error and nothing is scheduled.
func New(strategy dispatch.Strategy, triggers []Trigger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	s := &Scheduler{
		strategy: strategy,
		cron:     c,
		ctx:      context.Background(),
		triggers:  triggers,
		schedules: make(map[string]cron.Schedule, len(triggers)),
		now:       time.Now,
	}
	for _, t := range triggers {
		if t.Name == "" || t.Kind == "" {
			return nil, fmt.Errorf("trigger %q: name and kind are required", t.Name)
		}
		if _, dup := s.schedules[t.Name]; dup {
			return nil, fmt.Errorf("trigger %q: duplicate name", t.Name)
		}
		sched, err := cron.ParseStandard(t.Spec)
		if err != nil {
			return nil, fmt.Errorf("trigger %q: parse %q: %w", t.Name, t.Spec, err)
		}
		t := t
		c.Schedule(sched, cron.FuncJob(func() { s.Fire(s.context(), t) }))
		s.schedules[t.Name] = sched
	}
	return s, nil
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Fire dispatches one task for t and logs the outcome. Dispatch errors are
// logged, never returned, so one failing trigger does not stop the others.
func (s *Scheduler) Fire(ctx context.Context, t Trigger) {
	task := queue.NewTask(t.Kind, "").WithExpiry(t.Expires)
	task.Trigger = t.Name

	start := time.Now()
	mode, err := s.strategy.Dispatch(ctx, task)
	if err != nil {
		slog.Error("scheduled task failed",
			"trigger", t.Name,
			"task_kind", t.Kind,
			"task_id", task.ID,
			"mode", mode,
			"error", err,
		)
		return
	}
	slog.Info("scheduled task dispatched",
		"trigger", t.Name,
		"task_kind", t.Kind,
		"task_id", task.ID,
		"mode", mode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Next reports the next fire time in UTC of every trigger after now, keyed
// by name.
func (s *Scheduler) Next(now time.Time) map[string]time.Time {
	now = now.In(time.UTC)
	out := make(map[string]time.Time, len(s.schedules))
	for name, sched := range s.schedules {
		out[name] = sched.Next(now)
	}
	return out
}

// Run starts the cron and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	next := s.Next(s.now())
	for _, t := range s.triggers {
		slog.Info("trigger registered",
			"trigger", t.Name,
			"spec", t.Spec,
			"task_kind", t.Kind,
			"expires", t.Expires,
			"next_run", next[t.Name],
		)
	}
	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
	return nil
}

// cronLogger routes cron's internal messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
