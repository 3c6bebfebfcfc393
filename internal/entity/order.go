package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"

	// StatusShipped and StatusDelivered are declared for fulfilment but no
	// transition reaches or leaves them yet. Pending a product decision.
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
)

// transitions lists, per current status, the statuses an order may move to.
// Statuses without a row accept nothing.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusConfirmed, StatusCancelled},
	StatusCancelled: {StatusCancelled},
}

// ParseStatus accepts any casing of a declared status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusShipped, StatusDelivered:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Reason: "unknown status " + s}
}

// CanTransitionTo reports whether the table allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Product is the catalog record an order line is priced from.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reserve takes qty units out of stock. Stock is left untouched on failure.
func (p *Product) Reserve(qty int) error {
	if qty < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if p.Stock < qty {
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   qty,
			Available:   p.Stock,
		}
	}
	p.Stock -= qty
	return nil
}

// OrderItem is a line of an order. Name and price are copied from the
// catalog when the order is created.
type OrderItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"orderNumber,omitempty"` // empty when absent
	Status      Status          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Items       []OrderItem     `json:"items"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewOrder starts an empty PENDING order.
func NewOrder(number string, now time.Time) *Order {
	return &Order{
		OrderNumber: number,
		Status:      StatusPending,
		Total:       decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddItem appends a line priced from p and adds its subtotal to the total.
func (o *Order) AddItem(p *Product, qty int) OrderItem {
	item := OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   p.Price,
	}
	o.Items = append(o.Items, item)
	o.Total = o.Total.Add(item.Subtotal())
	return item
}

// RecomputeTotal sums the item subtotals.
func (o *Order) RecomputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// TransitionTo moves the order to next if the table allows it.
func (o *Order) TransitionTo(next Status, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return &TransitionError{From: o.Status, To: next}
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}
