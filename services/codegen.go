package services

import (
	"strings"

	"github.com/google/uuid"
)

const (
	orderCodePrefix       = "ORD-"
	orderCodeLength       = 8
	transactionCodePrefix = "TXN-"
	transactionCodeLength = 12
)

// CodeGenerator produces human-readable external identifiers.
// Uniqueness is enforced by the database; callers retry on collision.
type CodeGenerator interface {
	OrderCode() string
	TransactionCode() string
}

// RandomCodeGenerator derives codes from random (version 4) UUIDs
type RandomCodeGenerator struct{}

// OrderCode returns "ORD-" followed by 8 uppercase hex characters
func (RandomCodeGenerator) OrderCode() string {
	return orderCodePrefix + randomHex(orderCodeLength)
}

// TransactionCode returns "TXN-" followed by 12 uppercase hex characters
func (RandomCodeGenerator) TransactionCode() string {
	return transactionCodePrefix + randomHex(transactionCodeLength)
}

// randomHex returns n uppercase hex characters, n <= 12.
// The first 12 hex digits of a v4 UUID are fully random.
func randomHex(n int) string {
	id := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:n]
}
