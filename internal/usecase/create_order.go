package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type CreateOrderInput struct {
	ClientID       string // idempotency scope
	IdempotencyKey string
	Items          []ItemRequest
}

type ItemRequest struct {
	ProductID int64
	Quantity  int
}

type CreateOrder struct {
	d      Deps
	limits Limits
}

func NewCreateOrder(d Deps, limits Limits) *CreateOrder {
	return &CreateOrder{d: d, limits: limits}
}

// Execute prices the requested lines, reserves their stock and stores a
// PENDING order. Everything runs in one transaction: any failure leaves
// stock and orders untouched.
func (uc *CreateOrder) Execute(ctx context.Context, in CreateOrderInput) (OrderSummary, error) {
	ctx, span := uc.d.tracer().Start(ctx, "CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("order.lines", len(in.Items)))

	out, err := uc.execute(ctx, in)
	if err != nil {
		ordersRejected.WithLabelValues(rejectReason(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return OrderSummary{}, err
	}
	span.SetAttributes(attribute.Int64("order.id", out.ID), attribute.String("order.total", out.Total))
	return out, nil
}

func (uc *CreateOrder) execute(ctx context.Context, in CreateOrderInput) (OrderSummary, error) {
	if err := validateItems(in.Items); err != nil {
		return OrderSummary{}, err
	}

	useIdem := uc.d.Idem != nil && in.IdempotencyKey != ""
	if useIdem {
		// Fast path: idempotency recall
		if id, ok, _ := uc.d.Idem.Recall(ctx, in.ClientID, in.IdempotencyKey); ok {
			return uc.replay(ctx, id)
		}
		ok, err := uc.d.Idem.TryLock(ctx, in.ClientID, in.IdempotencyKey)
		if err != nil {
			return OrderSummary{}, fmt.Errorf("idempotency lock: %w", err)
		}
		if !ok {
			return OrderSummary{}, domain.ErrDuplicate
		}
	}

	order, err := uc.reserveAndStore(ctx, in.Items)
	if err != nil {
		if useIdem {
			// let the client retry with the same key
			_ = uc.d.Idem.Release(ctx, in.ClientID, in.IdempotencyKey)
		}
		return OrderSummary{}, err
	}
	ordersCreated.Inc()

	log := logging.FromCtx(ctx)
	log.InfoContext(ctx, "order created", "order_id", order.ID, "order_number", order.OrderNumber,
		"total", order.Total.StringFixed(2), "lines", len(order.Items))

	if useIdem {
		_ = uc.d.Idem.Remember(ctx, in.ClientID, in.IdempotencyKey, strconv.FormatInt(order.ID, 10))
	}
	if uc.d.Cache != nil {
		if err := uc.d.Cache.Set(ctx, order); err != nil {
			log.WarnContext(ctx, "order cache set failed", "order_id", order.ID, "error", err)
		}
	}
	if uc.d.Events != nil {
		if err := uc.d.Events.PublishCreated(ctx, toCreatedMsg(order)); err != nil {
			log.WarnContext(ctx, "publish order.created failed", "order_id", order.ID, "error", err)
		}
	}
	return ToSummary(order), nil
}

func (uc *CreateOrder) reserveAndStore(ctx context.Context, items []ItemRequest) (*domain.Order, error) {
	var order *domain.Order
	err := uc.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		now := uc.d.now()
		o := domain.NewOrder(newOrderNumber(), now)

		for _, it := range items {
			p, err := uc.d.Products.GetForUpdate(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if err := p.Reserve(it.Quantity); err != nil {
				return err
			}
			p.UpdatedAt = now
			if err := uc.d.Products.Save(ctx, p); err != nil {
				return fmt.Errorf("save stock of product %d: %w", p.ID, err)
			}
			o.AddItem(p, it.Quantity)
		}

		if o.Total.GreaterThan(uc.limits.MaxOrderValue) {
			return &domain.OrderValueExceededError{Total: o.Total, Limit: uc.limits.MaxOrderValue}
		}

		if err := uc.d.Orders.Save(ctx, o); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (uc *CreateOrder) replay(ctx context.Context, rawID string) (OrderSummary, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("idempotency recall: bad order id %q", rawID)
	}
	o, err := uc.d.Orders.GetByID(ctx, id)
	if err != nil {
		return OrderSummary{}, err
	}
	logging.FromCtx(ctx).InfoContext(ctx, "idempotent replay", "order_id", id)
	return ToSummary(o), nil
}

func validateItems(items []ItemRequest) error {
	if len(items) == 0 {
		return &domain.ValidationError{Field: "items", Reason: "must not be empty"}
	}
	for i, it := range items {
		if it.ProductID <= 0 {
			return &domain.ValidationError{Field: fmt.Sprintf("items[%d].productId", i), Reason: "is required"}
		}
		if it.Quantity < 1 {
			return &domain.ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be at least 1"}
		}
	}
	return nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrOrderValueExceeded):
		return "value_exceeded"
	case errors.Is(err, domain.ErrDuplicate):
		return "duplicate"
	default:
		return "error"
	}
}
