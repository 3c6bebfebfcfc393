package queue

import (
	"context"
	"errors"
	"strconv"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/logging"
	"github.com/Markko1982/order-manager/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lowStock = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "catalog_low_stock_product",
		Help: "Remaining stock of products at or below the low-stock threshold",
	},
	[]string{"product_id"},
)

type ProductReader interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
}

// LowStockMonitor watches order.created events and flags products whose
// remaining stock dropped to the threshold or below.
type LowStockMonitor struct {
	products  ProductReader
	threshold int
}

func NewLowStockMonitor(products ProductReader, threshold int) *LowStockMonitor {
	return &LowStockMonitor{products: products, threshold: threshold}
}

// HandleCreated is intended to be used with the JSON adapter (queue.JSONHandler[usecase.CreatedMsg]).
func (m *LowStockMonitor) HandleCreated(ctx context.Context, msg usecase.CreatedMsg) error {
	log := logging.New("low-stock")
	for _, it := range msg.Items {
		p, err := m.products.Get(ctx, it.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		label := strconv.FormatInt(p.ID, 10)
		if p.Stock > m.threshold {
			lowStock.DeleteLabelValues(label)
			continue
		}
		lowStock.WithLabelValues(label).Set(float64(p.Stock))
		log.WarnContext(ctx, "product stock low",
			"product_id", p.ID, "product", p.Name, "stock", p.Stock,
			"threshold", m.threshold, "order_id", msg.OrderID)
	}
	return nil
}

func (m *LowStockMonitor) Handler() Handler {
	return JSONHandler[usecase.CreatedMsg]{HandleFunc: m.HandleCreated}
}
