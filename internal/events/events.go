package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventStockAdjusted      = "StockAdjusted"
)

// Reasons carried by StockAdjusted so consumers can tell the paths apart.
const (
	ReasonPurchase = "PURCHASE"
	ReasonOrder    = "ORDER"
	ReasonRestock  = "RESTOCK"
	ReasonAdminSet = "ADMIN_SET"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID  string `json:"order_id"`
	UserID   string `json:"user_id"`
	SweetID  string `json:"sweet_id"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"` // decimal string, immutable snapshot
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type StockAdjustedPayload struct {
	SweetID   string `json:"sweet_id"`
	Delta     int    `json:"delta"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason"`
}
