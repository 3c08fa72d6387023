package services

import (
	"strings"

	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"gorm.io/gorm"
)

// insertWithCode runs create with a freshly generated code inside a savepoint.
// When the insert collides on a code column the savepoint is rolled back and a new
// code is tried, up to the configured number of attempts. Other errors are returned unchanged.
func (s *OrderService) insertWithCode(tx *gorm.DB, next func() string, create func(tx *gorm.DB, code string) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code := next()
		err := tx.Transaction(func(sp *gorm.DB) error {
			return create(sp, code)
		})
		if err == nil {
			return nil
		}
		if !isCodeCollision(err) {
			return err
		}
		lastErr = err
		s.log.Warn().Int("attempt", attempt).Str("code", code).Msg("generated code already taken, retrying")
	}
	return apperrors.Conflict("could not generate a unique code, please retry", lastErr)
}

// isUniqueViolation matches unique constraint errors from both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

// isPaymentOrderViolation matches a second payment row for the same order
func isPaymentOrderViolation(err error) bool {
	return isUniqueViolation(err) && strings.Contains(strings.ToLower(err.Error()), "order_id")
}

// isCodeCollision matches a clash on orders.code or payments.transaction_code
func isCodeCollision(err error) bool {
	if !isUniqueViolation(err) || isPaymentOrderViolation(err) {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "code")
}
