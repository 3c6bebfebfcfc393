package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Markko1982/order-manager/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            *amqp.Channel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	registrations []registration
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s, requeueOnErr=true.
func NewRouter(ch *amqp.Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Run consumes every registered queue until ctx is done or the channel closes.
func (r *Router) Run(ctx context.Context) error {
	log := logging.New("rmq-router")
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(reg registration, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				r.dispatch(ctx, reg, d)
			}
			log.Info("consumer stopped", "queue", reg.queueName, "tag", reg.consumerTag)
		}(reg, deliveries)
	}

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		for _, reg := range r.registrations {
			_ = r.ch.Cancel(reg.consumerTag, false)
		}
		<-stopped
		return nil
	case <-stopped:
		return errors.New("rmq: all consumers stopped")
	}
}

func (r *Router) dispatch(ctx context.Context, reg registration, d amqp.Delivery) {
	hctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	err := reg.handler.Handle(hctx, d)
	cancel()

	if err == nil {
		_ = d.Ack(false)
		return
	}
	requeue := r.requeueOnErr && !errors.Is(err, ErrPoison)
	logging.New("rmq-router").Error("handler error",
		"queue", reg.queueName, "tag", reg.consumerTag, "rk", d.RoutingKey,
		"error", err, "requeue", requeue)
	_ = d.Nack(false, requeue)
}
