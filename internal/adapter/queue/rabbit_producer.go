package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Markko1982/order-manager/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names the exchange, routing keys and queues the service owns.
type Topology struct {
	Exchange         string
	CreatedKey       string
	StatusChangedKey string
	CreatedQueue     string
}

func DefaultTopology() Topology {
	return Topology{
		Exchange:         "order.events",
		CreatedKey:       "order.created",
		StatusChangedKey: "order.status_changed",
		CreatedQueue:     "order.created.q",
	}
}

// ErrNacked is returned when the broker refuses a published event.
var ErrNacked = errors.New("rmq: publish nacked by broker")

type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type publisher interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
}

// confirmingChannel publishes on a channel in confirm mode.
type confirmingChannel struct{ ch *amqp.Channel }

func (c confirmingChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("rmq: channel not in confirm mode")
	}
	return dc, nil
}

// RabbitProducer implements usecase.EventPublisher. Every publish waits for
// the broker's confirm, bounded by the confirm timeout.
type RabbitProducer struct {
	pub            publisher
	topo           Topology
	confirmTimeout time.Duration
}

// NewRabbitProducer sets up the exchange, queue, and binding once at startup
// and puts ch into confirm mode.
func NewRabbitProducer(ch *amqp.Channel, topo Topology, confirmTimeout time.Duration) (*RabbitProducer, error) {
	// 1. declare exchange (topic type, durable)
	if err := ch.ExchangeDeclare(
		topo.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	// 2. declare the queue the low-stock monitor reads
	q, err := ch.QueueDeclare(
		topo.CreatedQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	// 3. bind queue → exchange
	if err := ch.QueueBind(q.Name, topo.CreatedKey, topo.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitProducer{pub: confirmingChannel{ch: ch}, topo: topo, confirmTimeout: confirmTimeout}, nil
}

// PublishCreated sends an "order.created" event to the exchange.
func (p *RabbitProducer) PublishCreated(ctx context.Context, msg usecase.CreatedMsg) error {
	return p.publish(ctx, p.topo.CreatedKey, msg)
}

// PublishStatusChanged sends an "order.status_changed" event. Nothing in
// this service consumes it.
func (p *RabbitProducer) PublishStatusChanged(ctx context.Context, msg usecase.StatusChangedMsg) error {
	return p.publish(ctx, p.topo.StatusChangedKey, msg)
}

func (p *RabbitProducer) publish(ctx context.Context, key string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         body,
	}
	conf, err := p.pub.publish(ctx, p.topo.Exchange, key, pub)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	wctx := ctx
	if p.confirmTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, p.confirmTimeout)
		defer cancel()
	}
	acked, err := conf.WaitContext(wctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", key, err)
	}
	if !acked {
		return fmt.Errorf("%s: %w", key, ErrNacked)
	}
	return nil
}

var _ usecase.EventPublisher = (*RabbitProducer)(nil)
