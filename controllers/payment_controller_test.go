package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPayment_JSON(t *testing.T) {
	f := newAPIFixture(t)
	order := f.placeOrder(t, customerID, "")
	path := "/api/v1/orders/" + order.OrderCode + "/payment"

	w := f.do(t, customerID, http.MethodGet, path, nil)
	requireError(t, w, http.StatusNotFound, "NOT_FOUND", "")

	var payment paymentJSON
	w = f.do(t, customerID, http.MethodPost, path, gin.H{
		"payment_method": "card",
		"card_last4":     "4242",
		"external_ref":   "gw_123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decodeData(t, w, &payment)
	assert.Regexp(t, `^TXN-[0-9A-F]{12}$`, payment.TransactionID)
	assert.Equal(t, "card", payment.PaymentMethod)
	assert.Equal(t, "pending", payment.PaymentStatus)
	assert.Equal(t, "82.99", payment.Amount.StringFixed(2))

	w = f.do(t, customerID, http.MethodPost, path, gin.H{"payment_method": "upi"})
	requireError(t, w, http.StatusConflict, "DUPLICATE_PAYMENT", "")

	var fetched paymentJSON
	w = f.do(t, customerID, http.MethodGet, path, nil)
	decodeData(t, w, &fetched)
	assert.Equal(t, payment.TransactionID, fetched.TransactionID)
}

func TestProcessPayment_MultipartWithEvidence(t *testing.T) {
	f := newAPIFixture(t)
	order := f.placeOrder(t, customerID, "")
	path := "/api/v1/orders/" + order.OrderCode + "/payment"

	w := f.doMultipart(t, customerID, path, map[string]string{
		"payment_method": "upi",
		"external_ref":   "upi-ref-991",
	}, "receipt.png", []byte("png bytes"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var payment paymentJSON
	decodeData(t, w, &payment)
	require.NotNil(t, payment.EvidenceKey)
	require.NotNil(t, payment.EvidenceURL)
	assert.True(t, f.images.ImageExists(*payment.EvidenceKey))
}

func TestProcessPayment_Rejections(t *testing.T) {
	f := newAPIFixture(t)
	order := f.placeOrder(t, customerID, "")
	path := "/api/v1/orders/" + order.OrderCode + "/payment"

	w := f.do(t, otherID, http.MethodPost, path, gin.H{"payment_method": "upi"})
	requireError(t, w, http.StatusForbidden, "FORBIDDEN", "")

	w = f.do(t, customerID, http.MethodPost, path, gin.H{"payment_method": "card", "card_last4": "42"})
	env := requireError(t, w, http.StatusBadRequest, "VALIDATION_ERROR", "INVALID_FIELD")
	assert.Equal(t, "card_last4", env.Error.Field)

	w = f.doMultipart(t, customerID, path, map[string]string{"payment_method": "upi"}, "receipt.gif", []byte("gif"))
	env = requireError(t, w, http.StatusBadRequest, "VALIDATION_ERROR", "INVALID_FILE_FORMAT")
	assert.Equal(t, "evidence", env.Error.Field)

	w = f.do(t, customerID, http.MethodPost, "/api/v1/orders/ORD-00000000/payment", gin.H{"payment_method": "upi"})
	requireError(t, w, http.StatusNotFound, "NOT_FOUND", "")

	w = f.do(t, customerID, http.MethodPost, "/api/v1/orders/"+order.OrderCode+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, customerID, http.MethodPost, path, gin.H{"payment_method": "upi"})
	requireError(t, w, http.StatusConflict, "INVALID_TRANSITION", "")

	assert.Empty(t, f.images.GetUploadedImages())
}

func TestPaymentReview(t *testing.T) {
	f := newAPIFixture(t)
	order := f.placeOrder(t, customerID, "upi")
	base := "/api/v1/payments/" + order.Payment.TransactionID

	w := f.doMultipart(t, customerID, base+"/evidence", nil, "screenshot.jpg", []byte("jpeg"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, customerID, http.MethodPost, base+"/complete", nil)
	requireError(t, w, http.StatusForbidden, "FORBIDDEN", "")

	var payment paymentJSON
	w = f.do(t, staffID, http.MethodPost, base+"/processing", gin.H{"notes": "checking bank statement"})
	decodeData(t, w, &payment)
	assert.Equal(t, "processing", payment.PaymentStatus)
	assert.Equal(t, "checking bank statement", payment.VerificationNotes)

	var asCustomer paymentJSON
	w = f.do(t, customerID, http.MethodGet, "/api/v1/orders/"+order.OrderCode+"/payment", nil)
	decodeData(t, w, &asCustomer)
	assert.Equal(t, "processing", asCustomer.PaymentStatus)
	assert.Empty(t, asCustomer.VerificationNotes, "customers do not see staff notes")
	assert.NotContains(t, w.Body.String(), "verification_notes")

	var completed paymentJSON
	w = f.do(t, staffID, http.MethodPost, base+"/complete", nil)
	decodeData(t, w, &completed)
	assert.Equal(t, "completed", completed.PaymentStatus)
	assert.NotNil(t, completed.PaidAt)
	assert.Equal(t, "checking bank statement", completed.VerificationNotes)

	w = f.do(t, staffID, http.MethodPost, base+"/fail", gin.H{"notes": "too late"})
	requireError(t, w, http.StatusConflict, "INVALID_TRANSITION", "")

	w = f.doMultipart(t, customerID, base+"/evidence", nil, "again.png", []byte("png"))
	requireError(t, w, http.StatusConflict, "INVALID_TRANSITION", "")

	w = f.do(t, staffID, http.MethodPost, "/api/v1/payments/TXN-000000000000/complete", nil)
	requireError(t, w, http.StatusNotFound, "NOT_FOUND", "")
}

func TestPaymentReview_FailedPaymentSurvivesCancellation(t *testing.T) {
	f := newAPIFixture(t)
	order := f.placeOrder(t, customerID, "upi")
	base := "/api/v1/payments/" + order.Payment.TransactionID

	w := f.do(t, staffID, http.MethodPost, base+"/fail", gin.H{"notes": "no matching transfer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cancelled orderJSON
	w = f.do(t, customerID, http.MethodPost, "/api/v1/orders/"+order.OrderCode+"/cancel", nil)
	decodeData(t, w, &cancelled)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "failed", cancelled.Payment.PaymentStatus)

	var stored models.Payment
	require.NoError(t, f.db.Where("transaction_code = ?", order.Payment.TransactionID).First(&stored).Error)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
}

func TestAttachPaymentEvidence_RequiresFile(t *testing.T) {
	f := newAPIFixture(t)
	order := f.placeOrder(t, customerID, "upi")

	w := f.doMultipart(t, customerID, "/api/v1/payments/"+order.Payment.TransactionID+"/evidence", nil, "", nil)
	env := requireError(t, w, http.StatusBadRequest, "VALIDATION_ERROR", "INVALID_FIELD")
	assert.Equal(t, "evidence", env.Error.Field)
}
