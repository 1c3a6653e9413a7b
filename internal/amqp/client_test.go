package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error
	published  []publishedMessage
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	_, err := newPublisher(ch, "ledger.events")
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger.events:topic"}, ch.declared)
}

func TestPublisher_DeclareFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	_, err := newPublisher(ch, "ledger.events")
	assert.Error(t, err)
	assert.True(t, ch.closed)
}

func TestPublisher_PublishRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "ledger.events")
	require.NoError(t, err)

	owner := uuid.New()
	p.Publish(owner, websocket.TransactionCreated(map[string]any{"amount": "12.50"}))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "ledger.events", got.exchange)
	assert.Equal(t, "transaction.created", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, owner.String(), got.msg.Headers["owner_id"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, "transaction.created", body["type"])
}

func TestPublisher_PublishFailureDoesNotPanic(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "ledger.events")
	require.NoError(t, err)
	ch.publishErr = errors.New("channel closed")

	assert.NotPanics(t, func() {
		p.Publish(uuid.New(), websocket.WalletUpdated(nil))
	})
}
