// Package events publishes order lifecycle events.
package events

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
)

const (
	OrderPaid      = "order.paid"
	OrderCancelled = "order.cancelled"
)

type OrderEvent struct {
	Type      string            `json:"type"`
	OrderID   int64             `json:"order_id"`
	UserID    string            `json:"user_id"`
	Total     decimal.Decimal   `json:"total_amount"`
	Items     domain.OrderItems `json:"items"`
	Timestamp string            `json:"timestamp"`
}

// Publisher delivers events after the state change is committed.
type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
