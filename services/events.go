package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event types published after a transaction commits
const (
	EventOrderPlaced          = "order.placed"
	EventOrderStatusChanged   = "order.status_changed"
	EventOrderCancelled       = "order.cancelled"
	EventOrderDeleted         = "order.deleted"
	EventPaymentCreated       = "payment.created"
	EventPaymentStatusChanged = "payment.status_changed"
)

// OrderEvent describes a committed change to an order or its payment
type OrderEvent struct {
	Type            string           `json:"type"`
	OrderCode       string           `json:"order_code"`
	UserID          uint             `json:"user_id"`
	OrderStatus     string           `json:"order_status,omitempty"`
	PreviousStatus  string           `json:"previous_status,omitempty"`
	TransactionCode string           `json:"transaction_id,omitempty"`
	PaymentStatus   string           `json:"payment_status,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// EventPublisher delivers order events to interested parties.
// Publishing happens after commit, so a failure never undoes the change.
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
