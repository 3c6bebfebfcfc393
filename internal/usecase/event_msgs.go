package usecase

// Published on order.events with routing key order.created
type CreatedMsg struct {
	OrderID     int64         `json:"orderId"`
	OrderNumber string        `json:"orderNumber,omitempty"`
	Total       string        `json:"total"`
	Items       []CreatedItem `json:"items"`
}

type CreatedItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Published on order.events with routing key order.status_changed
type StatusChangedMsg struct {
	OrderID int64  `json:"orderId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// Sent by the payment gateway on Kafka
type PaymentOutcomeMsg struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"` // SUCCESS | FAILED | REFUNDED
}
