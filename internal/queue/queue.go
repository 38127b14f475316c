// Package queue carries background tasks between the API, the scheduler and
// the workers. Delivery is at-least-once; handlers must tolerate duplicates.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task kinds. Each kind gets its own queue.
const (
	KindCalculate           = "elasticity.calculate"
	KindCollectP2P          = "market.collect_p2p"
	KindRefreshExchangeRate = "market.refresh_exchange_rate"
	KindCleanup             = "market.cleanup"
)

// AllKinds lists every task kind a worker consumes by default.
var AllKinds = []string{KindCalculate, KindCollectP2P, KindRefreshExchangeRate, KindCleanup}

// ErrBrokerUnavailable is returned when a task cannot be handed to the broker.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Task is the message body placed on a queue.
type Task struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Ref        string     `json:"ref,omitempty"`
	Trigger    string     `json:"trigger,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// NewTask builds a task of kind referencing ref (a calculation id for
// elasticity tasks, empty for collectors).
func NewTask(kind, ref string) Task {
	return Task{
		ID:         uuid.NewString(),
		Kind:       kind,
		Ref:        ref,
		EnqueuedAt: time.Now().UTC(),
	}
}

// WithExpiry returns a copy of t that workers drop after ttl has passed.
func (t Task) WithExpiry(ttl time.Duration) Task {
	if ttl <= 0 {
		return t
	}
	exp := t.EnqueuedAt.Add(ttl)
	t.ExpiresAt = &exp
	return t
}

// Expired reports whether the task is past its expiry at now.
func (t Task) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// Encode serializes a task for the wire.
func Encode(t Task) ([]byte, error) {
	if t.Kind == "" {
		return nil, errors.New("encode task: kind is required")
	}
	return json.Marshal(t)
}

// Decode parses a task from the wire.
func Decode(body []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if t.Kind == "" {
		return Task{}, errors.New("decode task: missing kind")
	}
	return t, nil
}

// Publisher hands tasks to a broker.
type Publisher interface {
	Publish(ctx context.Context, t Task) error
	Ping(ctx context.Context) error
}

// Delivery is one task received from a broker. Ack must be called once the
// task has been handled, whatever the outcome.
type Delivery struct {
	Task Task
	ack  func(ctx context.Context) error
}

// NewDelivery wraps a task with its acknowledgement callback.
func NewDelivery(t Task, ack func(ctx context.Context) error) Delivery {
	return Delivery{Task: t, ack: ack}
}

func (d Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Consumer streams deliveries for the given kinds until ctx is cancelled,
// then closes the channel.
type Consumer interface {
	Consume(ctx context.Context, kinds []string) (<-chan Delivery, error)
}

// Broker is a Publisher and Consumer backed by one transport.
type Broker interface {
	Publisher
	Consumer
	Close() error
}
