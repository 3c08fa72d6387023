package models

import (
	"time"

	"github.com/kendall-kelly/bakery-orders-api/apperrors"
)

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
	PaymentMethodCOD        PaymentMethod = "cod"
)

var paymentMethods = []PaymentMethod{
	PaymentMethodUPI,
	PaymentMethodCard,
	PaymentMethodNetBanking,
	PaymentMethodCOD,
}

// ParsePaymentMethod converts a raw string into a PaymentMethod.
// An empty string selects cash on delivery.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	if s == "" {
		return PaymentMethodCOD, nil
	}
	for _, m := range paymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", apperrors.Validation(apperrors.CodeInvalidPaymentMethod, "payment_method",
		"payment method must be one of upi, card, netbanking, cod")
}

var paymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// ParsePaymentStatus converts a raw string into a PaymentStatus
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	for _, status := range paymentStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", apperrors.InvalidStatus("payment", s)
}

type paymentEffect func(p *Payment, now time.Time)

// paymentTransitions is the complete payment state machine.
// completed -> refunded exists so a captured payment can be returned when its order is cancelled.
var paymentTransitions = map[PaymentStatus]map[PaymentStatus]paymentEffect{
	PaymentStatusPending: {
		PaymentStatusProcessing: nil,
		PaymentStatusCompleted:  stampPaid,
		PaymentStatusFailed:     nil,
		PaymentStatusRefunded:   nil,
	},
	PaymentStatusProcessing: {
		PaymentStatusCompleted: stampPaid,
		PaymentStatusFailed:    nil,
		PaymentStatusRefunded:  nil,
	},
	PaymentStatusCompleted: {
		PaymentStatusRefunded: clearPaid,
	},
}

// CanTransitionPayment reports whether from -> to is allowed
func CanTransitionPayment(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	_, ok := paymentTransitions[from][to]
	return ok
}

func stampPaid(p *Payment, now time.Time) {
	if p.PaidAt == nil {
		p.PaidAt = &now
	}
}

// clearPaid keeps paid_at set only while the payment is completed
func clearPaid(p *Payment, _ time.Time) {
	p.PaidAt = nil
}
