package usecase

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the collaborators shared by the order use cases.
// Cache, Idem and Events are optional. Traces defaults to the global
// tracer provider.
type Deps struct {
	Tx         TxManager
	Products   ProductRepo
	Orders     OrderRepo
	Categories CategoryRepo
	Cache      OrderCache
	Idem       IdempotencyStore
	Events     EventPublisher
	Traces     trace.TracerProvider
	Clock      func() time.Time
}

const tracerName = "github.com/Markko1982/order-manager/internal/usecase"

func (d Deps) tracer() trace.Tracer {
	if d.Traces != nil {
		return d.Traces.Tracer(tracerName)
	}
	return otel.Tracer(tracerName)
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

// Limits are the business ceilings applied to new orders.
type Limits struct {
	MaxOrderValue decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{MaxOrderValue: decimal.RequireFromString("1000.00")}
}

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders committed by the creation use case",
	})

	ordersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Order creations that failed, by reason",
		},
		[]string{"reason"},
	)

	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Applied order status changes",
		},
		[]string{"from", "to"},
	)
)
