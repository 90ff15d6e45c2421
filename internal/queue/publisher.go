package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/class-session-booking/internal/logger"
)

const (
	// DialTimeout bounds a single connection attempt.
	DialTimeout = 2 * time.Second
	// DialCooldown is how long publishes fail fast after a failed dial.
	DialCooldown = 10 * time.Second
)

// ErrBrokerUnavailable is returned while the publisher waits out the
// cooldown that follows a failed dial.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Publisher publishes NotificationCreatedEvent messages to a durable queue.
// The connection is opened lazily and re-dialled after a failure, so a
// broker outage only costs the events published while it lasts.  Dials are
// bounded by DialTimeout and a failed dial is not retried for DialCooldown.
type Publisher struct {
	url   string
	queue string
	log   *slog.Logger
	now   func() time.Time

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url, queue string, log *slog.Logger) *Publisher {
	return &Publisher{url: url, queue: queue, log: log, now: time.Now}
}

// PublishNotificationCreated publishes ev as a persistent JSON message on the
// default exchange, routed to the configured queue.
func (p *Publisher) PublishNotificationCreated(ctx context.Context, ev NotificationCreatedEvent) error {
	const op = "queue.Publisher.PublishNotificationCreated"

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.NotificationID,
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		p.reset()
		return fmt.Errorf("%s: publish: %w", op, err)
	}
	return nil
}

// channel returns an open channel, dialling and declaring the queue when
// needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	now := p.now()
	if now.Before(p.nextDial) {
		return nil, ErrBrokerUnavailable
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(DialTimeout)})
	if err != nil {
		p.nextDial = now.Add(DialCooldown)
		p.log.Warn("amqp dial failed", slog.String("queue", p.queue), logger.Err(err))
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.log.Debug("amqp publisher connected", slog.String("queue", p.queue))
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// NopPublisher drops every event.  Used when no broker is configured.
type NopPublisher struct {
	Log *slog.Logger
}

func (n NopPublisher) PublishNotificationCreated(_ context.Context, ev NotificationCreatedEvent) error {
	if n.Log != nil {
		n.Log.Debug("notification event dropped, no broker configured",
			slog.String("notification_id", ev.NotificationID))
	}
	return nil
}
