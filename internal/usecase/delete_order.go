package usecase

import (
	"context"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/logging"
)

type DeleteOrder struct {
	d Deps
}

func NewDeleteOrder(d Deps) *DeleteOrder {
	return &DeleteOrder{d: d}
}

// Execute hard-deletes the order and its items. Reserved stock is not
// returned to the catalog.
func (uc *DeleteOrder) Execute(ctx context.Context, id int64) error {
	err := uc.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := uc.d.Orders.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.NotFoundError{Entity: "order", ID: id}
		}
		return uc.d.Orders.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	log := logging.FromCtx(ctx)
	log.InfoContext(ctx, "order deleted", "order_id", id)
	if uc.d.Cache != nil {
		if err := uc.d.Cache.Evict(ctx, id); err != nil {
			log.WarnContext(ctx, "order cache evict failed", "order_id", id, "error", err)
		}
	}
	return nil
}
