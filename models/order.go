package models

import (
	"time"

	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order represents a customer's bakery order
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Code            string          `gorm:"size:20;not null;uniqueIndex:idx_orders_code" json:"order_code"`
	UserID          uint            `gorm:"not null;index" json:"user_id"` // foreign key to users table
	User            *User           `gorm:"foreignKey:UserID" json:"-"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	DeliveryFee     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delivery_fee"`
	GrandTotal      decimal.Decimal `gorm:"-" json:"grand_total"` // computed, total_amount + delivery_fee
	DeliveryAddress string          `gorm:"type:text" json:"delivery_address"`
	DeliveryPhone   string          `gorm:"size:20" json:"delivery_phone"`
	DeliveryNotes   string          `gorm:"type:text" json:"delivery_notes"`
	Items           []LineItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Payment         *Payment        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payment"` // nil when no payment was taken
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ConfirmedAt     *time.Time      `json:"confirmed_at"`
	DeliveredAt     *time.Time      `json:"delivered_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// DeliveryInfo holds the free-text delivery details of an order
type DeliveryInfo struct {
	Address string
	Phone   string
	Notes   string
}

// NewOrder builds a pending order from resolved line items.
// total must be the exact sum of the items' subtotals.
func NewOrder(userID uint, code string, items []LineItem, total, deliveryFee decimal.Decimal, delivery DeliveryInfo) (*Order, error) {
	if len(items) == 0 {
		return nil, apperrors.ErrEmptyCart
	}
	sum := decimal.Zero
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, apperrors.Validation(apperrors.CodeInvalidQuantity, "quantity", "quantity must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			return nil, apperrors.Validation(apperrors.CodeInvalidPrice, "price", "price must not be negative")
		}
		sum = sum.Add(item.Subtotal())
	}
	if !sum.Equal(total) {
		return nil, apperrors.Validation(apperrors.CodeInvalidPrice, "total_amount", "total does not match line items")
	}
	if deliveryFee.IsNegative() {
		return nil, apperrors.Validation(apperrors.CodeInvalidField, "delivery_fee", "delivery fee must not be negative")
	}

	order := &Order{
		Code:            code,
		UserID:          userID,
		Status:          OrderStatusPending,
		TotalAmount:     total,
		DeliveryFee:     deliveryFee,
		DeliveryAddress: delivery.Address,
		DeliveryPhone:   delivery.Phone,
		DeliveryNotes:   delivery.Notes,
		Items:           items,
	}
	order.GrandTotal = order.CalculateGrandTotal()
	return order, nil
}

// CalculateGrandTotal returns total_amount plus delivery_fee
func (o *Order) CalculateGrandTotal() decimal.Decimal {
	return o.TotalAmount.Add(o.DeliveryFee)
}

// TransitionTo moves the order to status `to`, applying the transition's side effects.
// Moving to the current status is a no-op, so repeated confirmations keep the original confirmed_at.
func (o *Order) TransitionTo(to OrderStatus, now time.Time) error {
	if o.Status == to {
		return nil
	}
	effect, ok := orderTransitions[o.Status][to]
	if !ok {
		return apperrors.InvalidTransition("order "+o.Code, string(o.Status), string(to))
	}
	o.Status = to
	if effect != nil {
		effect(o, now)
	}
	return nil
}

// Cancel cancels a pending or confirmed order and refunds its payment, if any
func (o *Order) Cancel(now time.Time) error {
	return o.TransitionTo(OrderStatusCancelled, now)
}

// IsCancellable reports whether the order may still be cancelled
func (o *Order) IsCancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// AfterFind fills the computed fields after loading from the database
func (o *Order) AfterFind(tx *gorm.DB) error {
	o.GrandTotal = o.CalculateGrandTotal()
	return nil
}
