package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitBroker publishes each task kind to its own durable queue on the
// default exchange. Messages are persistent and acknowledged manually.
type RabbitBroker struct {
	url      string
	prefix   string
	prefetch int

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitBroker creates a broker for url. The connection is opened lazily
// and reopened after it drops, so an unreachable server at start-up is not fatal.
func NewRabbitBroker(url, prefix string, prefetch int) *RabbitBroker {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &RabbitBroker{url: url, prefix: prefix, prefetch: prefetch}
}

func (b *RabbitBroker) queueName(kind string) string {
	return fmt.Sprintf("%s.%s", b.prefix, kind)
}

// publishChannel returns an open channel, dialing if needed. Caller holds b.mu.
func (b *RabbitBroker) publishChannel() (*amqp.Channel, error) {
	if b.channel != nil && !b.channel.IsClosed() {
		return b.channel, nil
	}
	if b.conn == nil || b.conn.IsClosed() {
		conn, err := amqp.Dial(b.url)
		if err != nil {
			return nil, err
		}
		b.conn = conn
	}
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, err
	}
	for _, kind := range AllKinds {
		if err := declare(ch, b.queueName(kind)); err != nil {
			ch.Close()
			return nil, err
		}
	}
	b.channel = ch
	return ch, nil
}

func declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

func (b *RabbitBroker) Publish(ctx context.Context, t Task) error {
	body, err := Encode(t)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ch, err := b.publishChannel()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	err = ch.PublishWithContext(ctx,
		"",                   // default exchange routes by queue name
		b.queueName(t.Kind), // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    t.ID,
			Type:         t.Kind,
			Timestamp:    t.EnqueuedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	return nil
}

func (b *RabbitBroker) Ping(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.publishChannel(); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	return nil
}

// Consume opens a dedicated channel with prefetch set to the broker's
// prefetch count and fans deliveries from every kind into one stream.
func (b *RabbitBroker) Consume(ctx context.Context, kinds []string) (<-chan Delivery, error) {
	if len(kinds) == 0 {
		return nil, errors.New("consume: at least one task kind is required")
	}

	b.mu.Lock()
	if _, err := b.publishChannel(); err != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	conn := b.conn
	b.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consume channel: %w", err)
	}
	if err := ch.Qos(b.prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	var streams []<-chan amqp.Delivery
	for _, kind := range kinds {
		name := b.queueName(kind)
		if err := declare(ch, name); err != nil {
			ch.Close()
			return nil, err
		}
		msgs, err := ch.Consume(
			name,
			"",    // consumer tag
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			ch.Close()
			return nil, fmt.Errorf("consume %s: %w", name, err)
		}
		streams = append(streams, msgs)
	}

	out := make(chan Delivery)
	var wg sync.WaitGroup
	for _, msgs := range streams {
		wg.Add(1)
		go func(msgs <-chan amqp.Delivery) {
			defer wg.Done()
			b.forward(ctx, msgs, out)
		}(msgs)
	}
	go func() {
		wg.Wait()
		ch.Close()
		close(out)
	}()
	return out, nil
}

func (b *RabbitBroker) forward(ctx context.Context, msgs <-chan amqp.Delivery, out chan<- Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Warn("rabbitmq delivery channel closed")
				return
			}
			task, err := Decode(msg.Body)
			if err != nil {
				slog.Error("dropping malformed task", "message_id", msg.MessageId, "error", err)
				_ = msg.Nack(false, false)
				continue
			}
			d := NewDelivery(task, func(context.Context) error {
				return msg.Ack(false)
			})
			select {
			case out <- d:
			case <-ctx.Done():
				// Unacked messages return to the queue when the channel closes.
				return
			}
		}
	}
}

// Close shuts the connection down. Safe to call more than once.
func (b *RabbitBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- b.conn.Close() }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return errors.New("rabbitmq close timed out")
	}
}

var _ Broker = (*RabbitBroker)(nil)
