package apperrors

import (
	"errors"
	"fmt"
)

// Kind is the stable category of an application error
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindForbidden         Kind = "FORBIDDEN"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindInvalidStatus     Kind = "INVALID_STATUS"
	KindDuplicatePayment  Kind = "DUPLICATE_PAYMENT"
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindConflict          Kind = "CONFLICT"
)

// Validation codes carried by KindValidation errors
const (
	CodeEmptyCart            = "EMPTY_CART"
	CodeInvalidQuantity      = "INVALID_QUANTITY"
	CodeInvalidPrice         = "INVALID_PRICE"
	CodeNoValidItems         = "NO_VALID_ITEMS"
	CodeUnknownItem          = "UNKNOWN_ITEM"
	CodeItemUnavailable      = "ITEM_UNAVAILABLE"
	CodePriceMismatch        = "PRICE_MISMATCH"
	CodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	CodeInvalidField         = "INVALID_FIELD"
)

// Error is the error type returned by the order and payment core.
// Every error carries a stable Kind and a human-readable Message.
type Error struct {
	Kind    Kind
	Code    string // optional detail code, e.g. EMPTY_CART
	Field   string // optional offending field for validation errors
	Message string
	Err     error // optional underlying cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, and by Code when the target sets one.
// This lets callers use errors.Is(err, ErrNotFound) or errors.Is(err, ErrEmptyCart).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks
var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrInvalidStatus     = &Error{Kind: KindInvalidStatus, Message: "invalid status"}
	ErrDuplicatePayment  = &Error{Kind: KindDuplicatePayment, Message: "duplicate payment"}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Message: "unauthenticated"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}

	ErrEmptyCart       = &Error{Kind: KindValidation, Code: CodeEmptyCart, Message: "cart is empty"}
	ErrInvalidQuantity = &Error{Kind: KindValidation, Code: CodeInvalidQuantity, Message: "invalid quantity"}
	ErrInvalidPrice    = &Error{Kind: KindValidation, Code: CodeInvalidPrice, Message: "invalid price"}
	ErrNoValidItems    = &Error{Kind: KindValidation, Code: CodeNoValidItems, Message: "no valid items in cart"}
	ErrPriceMismatch   = &Error{Kind: KindValidation, Code: CodePriceMismatch, Message: "price mismatch"}
)

// Validation creates a client-correctable error for a single field
func Validation(code, field, message string) error {
	return &Error{Kind: KindValidation, Code: code, Field: field, Message: message}
}

// NotFound creates a "not found" error for the named entity
func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// Forbidden creates an authorization failure
func Forbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Unauthenticated is returned when no identity accompanies a request
func Unauthenticated() error {
	return &Error{Kind: KindUnauthenticated, Message: "authentication required"}
}

// InvalidTransition reports a state machine violation
func InvalidTransition(entity, from, to string) error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot move %s from %s to %s", entity, from, to),
	}
}

// InvalidStatus reports an unrecognized status value
func InvalidStatus(entity, value string) error {
	return &Error{
		Kind:    KindInvalidStatus,
		Field:   "status",
		Message: fmt.Sprintf("%q is not a valid %s status", value, entity),
	}
}

// DuplicatePayment reports a second payment for the same order
func DuplicatePayment(orderCode string) error {
	return &Error{
		Kind:    KindDuplicatePayment,
		Message: fmt.Sprintf("payment already exists for order %s", orderCode),
	}
}

// Conflict reports a storage conflict that survived local retries
func Conflict(message string, err error) error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

// KindOf returns the Kind of err, or "" when err is not an *Error
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
