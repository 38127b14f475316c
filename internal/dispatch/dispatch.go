// Package dispatch decides how a task reaches its handler: inline on the
// caller goroutine, through the broker, or through the broker with an
// inline fallback when the broker cannot be reached.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/elasticbot/internal/queue"
)

// Mode is how a task was actually dispatched.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// Runner executes a task inline. worker.Registry implements it.
type Runner interface {
	Handle(ctx context.Context, t queue.Task) error
}

// Strategy dispatches one task and reports the mode it used.
type Strategy interface {
	Dispatch(ctx context.Context, t queue.Task) (Mode, error)
}

type modeKey struct{}

// WithMode records the dispatch mode on ctx for the handler.
func WithMode(ctx context.Context, m Mode) context.Context {
	return context.WithValue(ctx, modeKey{}, m)
}

// ModeFrom returns the mode recorded by WithMode, or ModeAsync when the
// task arrived from a worker that did not set one.
func ModeFrom(ctx context.Context) Mode {
	if m, ok := ctx.Value(modeKey{}).(Mode); ok {
		return m
	}
	return ModeAsync
}

// Sync runs tasks on the caller goroutine and blocks until they finish.
type Sync struct {
	runner Runner
}

func NewSync(r Runner) *Sync {
	return &Sync{runner: r}
}

func (s *Sync) Dispatch(ctx context.Context, t queue.Task) (Mode, error) {
	if err := s.runner.Handle(WithMode(ctx, ModeSync), t); err != nil {
		return ModeSync, fmt.Errorf("run %s inline: %w", t.Kind, err)
	}
	return ModeSync, nil
}

// Async publishes tasks to the broker and returns without waiting.
type Async struct {
	pub queue.Publisher
}

func NewAsync(p queue.Publisher) *Async {
	return &Async{pub: p}
}

func (a *Async) Dispatch(ctx context.Context, t queue.Task) (Mode, error) {
	if err := a.pub.Publish(ctx, t); err != nil {
		return ModeAsync, fmt.Errorf("publish %s: %w", t.Kind, err)
	}
	return ModeAsync, nil
}

// Fallback publishes like Async. When the broker is unavailable it logs a
// warning and runs that single task inline instead. Other publish errors are
// returned unchanged.
type Fallback struct {
	async *Async
	sync  *Sync
}

func NewFallback(p queue.Publisher, r Runner) *Fallback {
	return &Fallback{async: NewAsync(p), sync: NewSync(r)}
}

func (f *Fallback) Dispatch(ctx context.Context, t queue.Task) (Mode, error) {
	mode, err := f.async.Dispatch(ctx, t)
	if err == nil {
		return mode, nil
	}
	if !errors.Is(err, queue.ErrBrokerUnavailable) {
		return mode, err
	}

	slog.Warn("broker unavailable, running task synchronously",
		"task_kind", t.Kind,
		"task_id", t.ID,
		"ref", t.Ref,
		"error", err,
	)
	return f.sync.Dispatch(ctx, t)
}

// New returns the strategy for the configured mode: Fallback when async
// dispatch is enabled, Sync otherwise.
func New(asyncEnabled bool, p queue.Publisher, r Runner) Strategy {
	if asyncEnabled && p != nil {
		return NewFallback(p, r)
	}
	return NewSync(r)
}
