package usecase

import (
	"context"
	"fmt"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type UpdateOrderStatus struct {
	d Deps
}

func NewUpdateOrderStatus(d Deps) *UpdateOrderStatus {
	return &UpdateOrderStatus{d: d}
}

// Execute applies next to the order if the transition table allows it.
// Re-applying CONFIRMED or CANCELLED is accepted and only bumps the
// updated timestamp. Stock is never returned.
func (uc *UpdateOrderStatus) Execute(ctx context.Context, id int64, next domain.Status) error {
	ctx, span := uc.d.tracer().Start(ctx, "UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", id), attribute.String("order.status.to", string(next)))

	var (
		from    domain.Status
		updated *domain.Order
	)
	err := uc.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := uc.d.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = o.Status
		if err := o.TransitionTo(next, uc.d.now()); err != nil {
			return err
		}
		if err := uc.d.Orders.Save(ctx, o); err != nil {
			return fmt.Errorf("save order %d: %w", id, err)
		}
		updated = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	statusTransitions.WithLabelValues(string(from), string(next)).Inc()
	log := logging.FromCtx(ctx)
	log.InfoContext(ctx, "order status updated", "order_id", id, "from", from, "to", next)

	if uc.d.Cache != nil {
		if err := uc.d.Cache.Set(ctx, updated); err != nil {
			log.WarnContext(ctx, "order cache set failed", "order_id", id, "error", err)
		}
	}
	if uc.d.Events != nil && from != next {
		msg := StatusChangedMsg{OrderID: id, From: string(from), To: string(next)}
		if err := uc.d.Events.PublishStatusChanged(ctx, msg); err != nil {
			log.WarnContext(ctx, "publish order.status_changed failed", "order_id", id, "error", err)
		}
	}
	return nil
}
