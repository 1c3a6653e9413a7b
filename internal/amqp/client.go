package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp091.Channel used by the publisher
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher forwards ledger events to a RabbitMQ topic exchange. The routing
// key is the event type (e.g. "transaction.created") so consumers can bind
// to "transaction.*" or "#".
type Publisher struct {
	conn     *amqp091.Connection
	channel  Channel
	exchange string
}

// Ensure Publisher implements websocket.EventPublisher
var _ websocket.EventPublisher = (*Publisher)(nil)

// NewPublisher dials the broker and declares the exchange
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(channel, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(channel Channel, exchange string) (*Publisher, error) {
	err := channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{channel: channel, exchange: exchange}, nil
}

// Publish sends the event to the exchange. Broker failures are logged and
// never surface to the ledger operation that produced the event.
func (p *Publisher) Publish(ownerID uuid.UUID, event websocket.Event) {
	body, err := event.ToJSON()
	if err != nil {
		log.Error().Err(err).Str("event_type", event.Type).Msg("Failed to serialize event for AMQP")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		event.Type,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.Timestamp,
			MessageId:    uuid.NewString(),
			Headers:      amqp091.Table{"owner_id": ownerID.String()},
			Body:         body,
		},
	)
	if err != nil {
		log.Warn().
			Err(err).
			Stringer("owner_id", ownerID).
			Str("event_type", event.Type).
			Str("exchange", p.exchange).
			Msg("Failed to publish ledger event")
		return
	}

	log.Debug().
		Stringer("owner_id", ownerID).
		Str("event_type", event.Type).
		Str("exchange", p.exchange).
		Msg("Published ledger event")
}

// Close closes the channel and the connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
