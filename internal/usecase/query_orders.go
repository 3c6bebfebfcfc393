package usecase

import (
	"context"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/logging"
)

type QueryOrders struct {
	d Deps
}

func NewQueryOrders(d Deps) *QueryOrders {
	return &QueryOrders{d: d}
}

// GetByID reads through the cache when one is configured.
func (q *QueryOrders) GetByID(ctx context.Context, id int64) (OrderSummary, error) {
	log := logging.FromCtx(ctx)
	if q.d.Cache != nil {
		o, ok, err := q.d.Cache.Get(ctx, id)
		if err != nil {
			log.WarnContext(ctx, "order cache get failed", "order_id", id, "error", err)
		}
		if ok {
			return ToSummary(o), nil
		}
	}

	o, err := q.d.Orders.GetByID(ctx, id)
	if err != nil {
		return OrderSummary{}, err
	}
	if q.d.Cache != nil {
		if err := q.d.Cache.Fill(ctx, o); err != nil {
			log.WarnContext(ctx, "order cache fill failed", "order_id", id, "error", err)
		}
	}
	return ToSummary(o), nil
}

// List returns one page of orders in creation order.
func (q *QueryOrders) List(ctx context.Context, filter StatusFilter, page PageRequest) (Page[OrderSummary], error) {
	res, err := q.d.Orders.Find(ctx, filter, page)
	if err != nil {
		return Page[OrderSummary]{}, err
	}
	return MapPage(res, func(o domain.Order) OrderSummary { return ToSummary(&o) }), nil
}
