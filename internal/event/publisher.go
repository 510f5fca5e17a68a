// Package event publishes booking domain events to RabbitMQ for external
// consumers (mailer service, analytics). Publishing is best-effort: the
// booking path never waits on the broker.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

const DefaultQueue = "booking.events"

type AMQPPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Durable so events survive a broker restart.
	_, err = ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{
		conn:  conn,
		ch:    ch,
		queue: queue,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event domain.BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	return errors.Join(p.ch.Close(), p.conn.Close())
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct {
	Logger *slog.Logger
}

func (p *NoopPublisher) Publish(_ context.Context, event domain.BookingEvent) error {
	if p.Logger != nil {
		p.Logger.Debug("dropping booking event, no broker configured",
			"type", event.Type, "reference", event.Reference)
	}
	return nil
}
