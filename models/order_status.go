package models

import (
	"time"

	"github.com/kendall-kelly/bakery-orders-api/apperrors"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every declared order status in lifecycle order
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// CurrentOrderStatuses are the statuses of orders still being worked on
var CurrentOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
}

// HistoryOrderStatuses are the terminal statuses
var HistoryOrderStatuses = []OrderStatus{
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus converts a raw string into an OrderStatus.
// Unknown values fail with an InvalidStatus error.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, status := range OrderStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", apperrors.InvalidStatus("order", s)
}

// IsTerminal reports whether no further transitions leave this status
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Label returns the display name of the status
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPending:
		return "Pending"
	case OrderStatusConfirmed:
		return "Confirmed"
	case OrderStatusPreparing:
		return "Preparing"
	case OrderStatusReady:
		return "Ready for Delivery"
	case OrderStatusDelivered:
		return "Delivered"
	case OrderStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// orderEffect runs after the status field has been updated
type orderEffect func(o *Order, now time.Time)

// orderTransitions is the complete order state machine.
// A nil effect means the transition has no side effect.
var orderTransitions = map[OrderStatus]map[OrderStatus]orderEffect{
	OrderStatusPending: {
		OrderStatusConfirmed: stampConfirmed,
		OrderStatusCancelled: refundOnCancel,
	},
	OrderStatusConfirmed: {
		OrderStatusPreparing: nil,
		OrderStatusCancelled: refundOnCancel,
	},
	OrderStatusPreparing: {
		OrderStatusReady: nil,
	},
	OrderStatusReady: {
		OrderStatusDelivered: stampDelivered,
	},
}

// CanTransition reports whether from -> to is allowed.
// Staying in the same status is always allowed and has no effect.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	_, ok := orderTransitions[from][to]
	return ok
}

func stampConfirmed(o *Order, now time.Time) {
	if o.ConfirmedAt == nil {
		o.ConfirmedAt = &now
	}
}

func stampDelivered(o *Order, now time.Time) {
	if o.DeliveredAt == nil {
		o.DeliveredAt = &now
	}
}

func refundOnCancel(o *Order, now time.Time) {
	if o.Payment != nil {
		o.Payment.refundForCancellation(now)
	}
}
