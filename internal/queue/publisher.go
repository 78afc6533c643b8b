package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/antonkondratyev/api-universal/internal/config"
)

// Publisher sends AuthEvents to a durable queue on the default exchange.
type Publisher interface {
	Publish(ctx context.Context, ev AuthEvent) error
}

// NewPublisher returns an AMQP publisher when the queue is enabled and a
// no-op one otherwise.
func NewPublisher(cfg config.QueueConfig, log zerolog.Logger) Publisher {
	if !cfg.Enabled {
		return Nop{}
	}
	return &AMQPPublisher{url: cfg.URL, queue: cfg.Name, log: log}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, AuthEvent) error { return nil }

// AMQPPublisher opens a connection per event.
type AMQPPublisher struct {
	url   string
	queue string
	log   zerolog.Logger
}

// Publish fills in the event id and timestamp when missing and sends the
// event as a persistent JSON message. Errors are logged and returned; the
// caller decides whether to ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch, p.queue); err != nil {
		p.log.Warn().Err(err).Str("queue", p.queue).Msg("rabbitmq: queue declare failed")
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

// declare makes sure the durable queue exists; it is idempotent.
func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(name, true, false, false, false, nil)
}
