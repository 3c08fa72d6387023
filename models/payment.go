package models

import (
	"time"

	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/shopspring/decimal"
)

// Payment is the single payment record of an order
type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OrderID           uint            `gorm:"not null;uniqueIndex:idx_payments_order_id" json:"-"` // one payment per order
	TransactionCode   string          `gorm:"size:20;not null;uniqueIndex:idx_payments_transaction_code" json:"transaction_id"`
	Method            PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status            PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	ExternalRef       string          `gorm:"size:100" json:"external_ref"` // UPI transaction id or gateway reference
	CardLast4         string          `gorm:"size:4" json:"card_last4"`
	EvidenceKey       *string         `gorm:"size:255" json:"evidence_key,omitempty"`        // blob reference of the screenshot
	EvidenceURL       *string         `gorm:"-" json:"evidence_url,omitempty"`               // computed, presigned URL
	VerificationNotes string          `gorm:"type:text" json:"verification_notes,omitempty"` // staff only
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	PaidAt            *time.Time      `json:"paid_at"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// PaymentDetails are the method-specific details a customer claims
type PaymentDetails struct {
	ExternalRef string
	CardLast4   string
	EvidenceKey string
}

// NewPayment creates a pending payment for the order.
// The amount is fixed to the order's grand total at this instant.
func NewPayment(order *Order, code string, method PaymentMethod, details PaymentDetails) (*Payment, error) {
	if order.Payment != nil {
		return nil, apperrors.DuplicatePayment(order.Code)
	}
	if details.CardLast4 != "" && !isLast4(details.CardLast4) {
		return nil, apperrors.Validation(apperrors.CodeInvalidField, "card_last4", "card_last4 must be exactly 4 digits")
	}

	payment := &Payment{
		OrderID:         order.ID,
		TransactionCode: code,
		Method:          method,
		Status:          PaymentStatusPending,
		Amount:          order.CalculateGrandTotal(),
		ExternalRef:     details.ExternalRef,
		CardLast4:       details.CardLast4,
	}
	if details.EvidenceKey != "" {
		key := details.EvidenceKey
		payment.EvidenceKey = &key
	}
	return payment, nil
}

// TransitionTo moves the payment to status `to`. paid_at is set on completion and cleared on refund.
func (p *Payment) TransitionTo(to PaymentStatus, now time.Time) error {
	if p.Status == to {
		return nil
	}
	effect, ok := paymentTransitions[p.Status][to]
	if !ok {
		return apperrors.InvalidTransition("payment "+p.TransactionCode, string(p.Status), string(to))
	}
	p.Status = to
	if effect != nil {
		effect(p, now)
	}
	return nil
}

// MarkCompleted marks the payment as received
func (p *Payment) MarkCompleted(now time.Time) error {
	return p.TransitionTo(PaymentStatusCompleted, now)
}

// AddVerificationNote appends a staff note
func (p *Payment) AddVerificationNote(note string) {
	if note == "" {
		return
	}
	if p.VerificationNotes != "" {
		p.VerificationNotes += "\n"
	}
	p.VerificationNotes += note
}

// AcceptsEvidence reports whether evidence can still be attached
func (p *Payment) AcceptsEvidence() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusProcessing
}

// refundForCancellation refunds the payment when its order is cancelled.
// Failed and already refunded payments have nothing to refund.
func (p *Payment) refundForCancellation(now time.Time) {
	if CanTransitionPayment(p.Status, PaymentStatusRefunded) {
		_ = p.TransitionTo(PaymentStatusRefunded, now)
	}
}

func isLast4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
