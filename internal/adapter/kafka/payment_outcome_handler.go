package kafka

import (
	"context"
	"errors"
	"strings"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/logging"
	"github.com/Markko1982/order-manager/internal/usecase"
)

// StatusUpdater is satisfied by usecase.UpdateOrderStatus.
type StatusUpdater interface {
	Execute(ctx context.Context, id int64, next domain.Status) error
}

// PaymentOutcomeHandler moves orders through the status table when the
// payment gateway reports on them.
type PaymentOutcomeHandler struct {
	Updater StatusUpdater
}

func NewPaymentOutcomeHandler(u StatusUpdater) *PaymentOutcomeHandler {
	return &PaymentOutcomeHandler{Updater: u}
}

// Handle returns an error only for failures worth retrying. Unknown orders,
// rejected transitions and unknown outcomes are logged and dropped.
func (h *PaymentOutcomeHandler) Handle(ctx context.Context, ev usecase.PaymentOutcomeMsg) error {
	log := logging.FromCtx(ctx).With("order_id", ev.OrderID, "payment_status", ev.Status)

	// Map external status -> internal
	var next domain.Status
	switch strings.ToUpper(ev.Status) {
	case "SUCCESS":
		next = domain.StatusConfirmed
	case "FAILED", "REFUNDED":
		next = domain.StatusCancelled
	default:
		log.WarnContext(ctx, "unknown payment outcome dropped")
		return nil
	}

	err := h.Updater.Execute(ctx, ev.OrderID, next)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidTransition):
		log.WarnContext(ctx, "payment outcome dropped", "error", err)
		return nil
	default:
		return err
	}
}
