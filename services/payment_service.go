package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/kendall-kelly/bakery-orders-api/utils"
	"gorm.io/gorm"
)

// ProcessPayment records the payment of an order that has none yet.
// A second payment for the same order fails with DuplicatePayment whatever the first one's status.
func (s *OrderService) ProcessPayment(ctx context.Context, actor *Actor, orderCode string, input PaymentInput) (*models.Payment, error) {
	if err := authorize(actor, ActionPayOrder, nil); err != nil {
		return nil, err
	}

	method, err := models.ParsePaymentMethod(input.Method)
	if err != nil {
		return nil, err
	}

	details := input.Details
	var uploaded string
	if input.Evidence != nil {
		if uploaded, err = s.uploadEvidence(ctx, input.Evidence); err != nil {
			return nil, err
		}
		details.EvidenceKey = uploaded
	}

	var order *models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, "code", orderCode)
		if err != nil {
			return err
		}
		if err := authorize(actor, ActionPayOrder, order); err != nil {
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return apperrors.InvalidTransition("order "+order.Code, string(order.Status), "paid")
		}

		payment, err := s.createPayment(tx, order, method, details)
		if err != nil {
			return err
		}
		order.Payment = payment
		return nil
	})
	if err != nil {
		s.discardEvidence(ctx, uploaded)
		return nil, err
	}

	s.log.Info().
		Str("order_code", order.Code).
		Str("transaction_code", order.Payment.TransactionCode).
		Str("payment_method", string(method)).
		Str("amount", order.Payment.Amount.StringFixed(2)).
		Msg("payment recorded")
	s.publish(ctx, s.paymentEvent(EventPaymentCreated, order, order.Payment))

	s.presentPayment(ctx, actor, order.Payment)
	return order.Payment, nil
}

// createPayment inserts a pending payment for order with a fresh transaction code
func (s *OrderService) createPayment(tx *gorm.DB, order *models.Order, method models.PaymentMethod, details models.PaymentDetails) (*models.Payment, error) {
	payment, err := models.NewPayment(order, "", method, details)
	if err != nil {
		return nil, err
	}

	err = s.insertWithCode(tx, s.codes.TransactionCode, func(tx *gorm.DB, code string) error {
		payment.ID = 0
		payment.TransactionCode = code
		return tx.Create(payment).Error
	})
	if err != nil {
		if isPaymentOrderViolation(err) {
			return nil, apperrors.DuplicatePayment(order.Code)
		}
		return nil, err
	}
	return payment, nil
}

// MarkPaymentCompleted records that the money was received. Staff only.
func (s *OrderService) MarkPaymentCompleted(ctx context.Context, actor *Actor, transactionCode string) (*models.Payment, error) {
	return s.reviewPayment(ctx, actor, transactionCode, models.PaymentStatusCompleted, "")
}

// MarkPaymentProcessing flags a payment as under verification. Staff only.
func (s *OrderService) MarkPaymentProcessing(ctx context.Context, actor *Actor, transactionCode, notes string) (*models.Payment, error) {
	return s.reviewPayment(ctx, actor, transactionCode, models.PaymentStatusProcessing, notes)
}

// MarkPaymentFailed rejects a payment, e.g. when the screenshot does not match. Staff only.
func (s *OrderService) MarkPaymentFailed(ctx context.Context, actor *Actor, transactionCode, notes string) (*models.Payment, error) {
	return s.reviewPayment(ctx, actor, transactionCode, models.PaymentStatusFailed, notes)
}

func (s *OrderService) reviewPayment(ctx context.Context, actor *Actor, transactionCode string, to models.PaymentStatus, notes string) (*models.Payment, error) {
	if err := authorize(actor, ActionReviewPayment, nil); err != nil {
		return nil, err
	}

	var (
		order *models.Order
		from  models.PaymentStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.lockPaymentOrder(tx, transactionCode)
		if err != nil {
			return err
		}
		if err := authorize(actor, ActionReviewPayment, order); err != nil {
			return err
		}

		payment := order.Payment
		from = payment.Status
		if err := payment.TransitionTo(to, s.now()); err != nil {
			return err
		}
		payment.AddVerificationNote(notes)
		if payment.Status == from && notes == "" {
			return nil
		}
		if err := tx.Save(payment).Error; err != nil {
			return fmt.Errorf("failed to update payment %s: %w", payment.TransactionCode, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payment := order.Payment
	if payment.Status != from {
		s.log.Info().
			Str("transaction_code", payment.TransactionCode).
			Str("from", string(from)).
			Str("to", string(payment.Status)).
			Uint("actor_id", actor.UserID).
			Msg("payment status changed")
		s.publish(ctx, s.paymentEvent(EventPaymentStatusChanged, order, payment))
	}

	s.presentPayment(ctx, actor, payment)
	return payment, nil
}

// AttachPaymentEvidence stores a payment screenshot for a pending or processing payment,
// replacing any earlier one.
func (s *OrderService) AttachPaymentEvidence(ctx context.Context, actor *Actor, transactionCode string, file *multipart.FileHeader) (*models.Payment, error) {
	if err := authorize(actor, ActionAttachEvidence, nil); err != nil {
		return nil, err
	}
	if file == nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidField, "evidence", "evidence image is required")
	}

	key, err := s.uploadEvidence(ctx, file)
	if err != nil {
		return nil, err
	}

	var (
		order    *models.Order
		previous string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.lockPaymentOrder(tx, transactionCode)
		if err != nil {
			return err
		}
		if err := authorize(actor, ActionAttachEvidence, order); err != nil {
			return err
		}

		payment := order.Payment
		if !payment.AcceptsEvidence() {
			return apperrors.InvalidTransition("payment "+payment.TransactionCode, string(payment.Status), "evidence attached")
		}
		if payment.EvidenceKey != nil {
			previous = *payment.EvidenceKey
		}
		payment.EvidenceKey = &key
		if err := tx.Model(payment).Update("evidence_key", key).Error; err != nil {
			return fmt.Errorf("failed to update payment %s: %w", payment.TransactionCode, err)
		}
		return nil
	})
	if err != nil {
		s.discardEvidence(ctx, key)
		return nil, err
	}

	s.discardEvidence(ctx, previous)
	s.log.Info().Str("transaction_code", order.Payment.TransactionCode).Str("evidence_key", key).Msg("payment evidence attached")

	s.presentPayment(ctx, actor, order.Payment)
	return order.Payment, nil
}

// GetPaymentForOrder returns the payment of an order, NotFound when it has none
func (s *OrderService) GetPaymentForOrder(ctx context.Context, actor *Actor, orderCode string) (*models.Payment, error) {
	order, err := s.GetOrder(ctx, actor, orderCode)
	if err != nil {
		return nil, err
	}
	if order.Payment == nil {
		return nil, apperrors.NotFound("payment for order", orderCode)
	}
	return order.Payment, nil
}

// lockPaymentOrder finds the order owning a payment and locks it, order row first
func (s *OrderService) lockPaymentOrder(tx *gorm.DB, transactionCode string) (*models.Order, error) {
	var ref models.Payment
	err := tx.Select("id", "order_id").Where("transaction_code = ?", transactionCode).First(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment", transactionCode)
		}
		return nil, fmt.Errorf("failed to load payment %s: %w", transactionCode, err)
	}

	order, err := lockOrder(tx, "id", ref.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Payment == nil || order.Payment.TransactionCode != transactionCode {
		// deleted between the lookup and the lock
		return nil, apperrors.NotFound("payment", transactionCode)
	}
	return order, nil
}

func (s *OrderService) uploadEvidence(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if s.images == nil {
		return "", errors.New("payment evidence storage is not configured")
	}
	key, err := s.images.UploadImage(ctx, file)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			return "", apperrors.Validation(uploadErr.Code, "evidence", uploadErr.Message)
		}
		return "", err
	}
	return key, nil
}

// discardEvidence removes an image that no payment references; failures are only logged
func (s *OrderService) discardEvidence(ctx context.Context, key string) {
	if key == "" || s.images == nil {
		return
	}
	if err := s.images.DeleteImage(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn().Err(err).Str("evidence_key", key).Msg("failed to delete payment evidence")
	}
}
