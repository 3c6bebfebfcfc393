package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler consumes one delivery. A nil error acks it; ErrPoison nacks it
// without requeue; any other error nacks it with the router's requeue policy.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}

// HandlerFunc lets a plain function serve as a Handler.
type HandlerFunc func(ctx context.Context, d amqp.Delivery) error

func (f HandlerFunc) Handle(ctx context.Context, d amqp.Delivery) error { return f(ctx, d) }
