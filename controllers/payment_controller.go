package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/kendall-kelly/bakery-orders-api/services"
)

// ReviewPaymentRequest is the optional body of the staff review endpoints
type ReviewPaymentRequest struct {
	Notes string `json:"notes"`
}

// GetOrderPayment handles GET /api/v1/orders/:code/payment
func GetOrderPayment(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	payment, err := services.GetOrderService().GetPaymentForOrder(c.Request.Context(), actor, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payment,
	})
}

// ProcessPayment handles POST /api/v1/orders/:code/payment. It accepts JSON,
// or multipart form data with an optional "evidence" screenshot.
func ProcessPayment(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBind(&req); err != nil {
		respondValidation(c, err)
		return
	}

	evidence, err := optionalFile(c, "evidence")
	if err != nil {
		respondError(c, err)
		return
	}

	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	payment, err := services.GetOrderService().ProcessPayment(c.Request.Context(), actor, c.Param("code"), req.toPayment(evidence))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    payment,
	})
}

// AttachPaymentEvidence handles POST /api/v1/payments/:txn/evidence (multipart "evidence")
func AttachPaymentEvidence(c *gin.Context) {
	evidence, err := optionalFile(c, "evidence")
	if err != nil {
		respondError(c, err)
		return
	}

	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	payment, err := services.GetOrderService().AttachPaymentEvidence(c.Request.Context(), actor, c.Param("txn"), evidence)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payment,
	})
}

// MarkPaymentProcessing handles POST /api/v1/payments/:txn/processing - staff only
func MarkPaymentProcessing(c *gin.Context) {
	reviewPayment(c, models.PaymentStatusProcessing)
}

// MarkPaymentCompleted handles POST /api/v1/payments/:txn/complete - staff only
func MarkPaymentCompleted(c *gin.Context) {
	reviewPayment(c, models.PaymentStatusCompleted)
}

// MarkPaymentFailed handles POST /api/v1/payments/:txn/fail - staff only
func MarkPaymentFailed(c *gin.Context) {
	reviewPayment(c, models.PaymentStatusFailed)
}

func reviewPayment(c *gin.Context, to models.PaymentStatus) {
	var req ReviewPaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, err)
			return
		}
	}

	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	svc := services.GetOrderService()
	txn := c.Param("txn")
	notes := strings.TrimSpace(req.Notes)

	var payment *models.Payment
	switch to {
	case models.PaymentStatusProcessing:
		payment, err = svc.MarkPaymentProcessing(ctx, actor, txn, notes)
	case models.PaymentStatusFailed:
		payment, err = svc.MarkPaymentFailed(ctx, actor, txn, notes)
	default:
		payment, err = svc.MarkPaymentCompleted(ctx, actor, txn)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payment,
	})
}

// optionalFile returns the uploaded file under field, nil when the request has none
func optionalFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	file, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidField, field, "could not read uploaded file")
	}
	return file, nil
}
