package usecase

import (
	"time"

	domain "github.com/Markko1982/order-manager/internal/entity"
)

// OrderSummary is the outward shape of an order.
type OrderSummary struct {
	ID          int64              `json:"id"`
	OrderNumber string             `json:"orderNumber,omitempty"`
	Status      string             `json:"status"`
	Total       string             `json:"total"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Items       []OrderItemSummary `json:"items"`
}

type OrderItemSummary struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Subtotal    string `json:"subtotal"`
}

func ToSummary(o *domain.Order) OrderSummary {
	items := make([]OrderItemSummary, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemSummary{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Subtotal:    it.Subtotal().StringFixed(2),
		})
	}
	return OrderSummary{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		Total:       o.Total.StringFixed(2),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Items:       items,
	}
}

func toCreatedMsg(o *domain.Order) CreatedMsg {
	items := make([]CreatedItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, CreatedItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return CreatedMsg{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Total:       o.Total.StringFixed(2),
		Items:       items,
	}
}
