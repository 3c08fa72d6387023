package controllers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/kendall-kelly/bakery-orders-api/services"
	"github.com/shopspring/decimal"
)

// OrderItemRequest is one cart line of a priced order request
type OrderItemRequest struct {
	MenuItemID uint            `json:"menu_item_id" binding:"required"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// CheckoutItemRequest is one cart line of a quantity-only checkout
type CheckoutItemRequest struct {
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Quantity   int  `json:"quantity"`
}

// DeliveryRequest carries delivery details; blank fields fall back to the profile
type DeliveryRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	DeliveryPhone   string `json:"delivery_phone"`
	DeliveryNotes   string `json:"delivery_notes"`
}

// PaymentRequest carries the payment choice of an order
type PaymentRequest struct {
	PaymentMethod string `json:"payment_method" form:"payment_method"`
	ExternalRef   string `json:"external_ref" form:"external_ref"`
	CardLast4     string `json:"card_last4" form:"card_last4"`
}

// CreateOrderRequest represents the request body for POST /orders
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,dive"`
	DeliveryRequest
	PaymentRequest
}

// CheckoutRequest represents the request body for POST /orders/checkout
type CheckoutRequest struct {
	Items []CheckoutItemRequest `json:"items" binding:"required,dive"`
	DeliveryRequest
	PaymentRequest
}

// UpdateOrderStatusRequest represents the request body for PATCH /orders/:code/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (d DeliveryRequest) toDelivery() models.DeliveryInfo {
	return models.DeliveryInfo{
		Address: d.DeliveryAddress,
		Phone:   d.DeliveryPhone,
		Notes:   d.DeliveryNotes,
	}
}

func (p PaymentRequest) toPayment(evidence *multipart.FileHeader) services.PaymentInput {
	return services.PaymentInput{
		Method: p.PaymentMethod,
		Details: models.PaymentDetails{
			ExternalRef: p.ExternalRef,
			CardLast4:   p.CardLast4,
		},
		Evidence: evidence,
	}
}

// CreateOrder handles POST /api/v1/orders - places an order with client-claimed prices
func CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	cart := make(services.ClaimedCart, len(req.Items))
	for _, item := range req.Items {
		if _, dup := cart[item.MenuItemID]; dup {
			respondError(c, apperrors.Validation(apperrors.CodeInvalidField, "items",
				fmt.Sprintf("menu item %d appears more than once", item.MenuItemID)))
			return
		}
		cart[item.MenuItemID] = services.CartLine{Quantity: item.Quantity, Price: item.Price}
	}

	placeOrder(c, cart, req.DeliveryRequest, req.PaymentRequest)
}

// Checkout handles POST /api/v1/orders/checkout - places an order priced from the menu
func Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	cart := make(services.QuantityCart, len(req.Items))
	for _, item := range req.Items {
		cart[item.MenuItemID] += item.Quantity
	}

	placeOrder(c, cart, req.DeliveryRequest, req.PaymentRequest)
}

func placeOrder(c *gin.Context, cart services.Cart, delivery DeliveryRequest, payment PaymentRequest) {
	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := services.GetOrderService().PlaceOrder(c.Request.Context(), actor, services.PlaceOrderInput{
		Cart:     cart,
		Delivery: delivery.toDelivery(),
		Payment:  payment.toPayment(nil),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists orders, optionally filtered by
// status, phase (current or history) and, for staff, user_id
func ListOrders(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	filter := services.OrderFilter{
		Status: c.Query("status"),
		Phase:  c.Query("phase"),
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, apperrors.Validation(apperrors.CodeInvalidField, "user_id", "user_id must be a positive integer"))
			return
		}
		filter.UserID = uint(userID)
	}

	orders, err := services.GetOrderService().ListOrders(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
		"count":   len(orders),
	})
}

// GetOrderStats handles GET /api/v1/orders/stats - dashboard counts and total spent
func GetOrderStats(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := services.GetOrderService().OrderStats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetOrder handles GET /api/v1/orders/:code
func GetOrder(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := services.GetOrderService().GetOrder(c.Request.Context(), actor, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// CancelOrder handles POST /api/v1/orders/:code/cancel - owner or staff
func CancelOrder(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := services.GetOrderService().CancelOrder(c.Request.Context(), actor, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:code/status - staff only
func UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := services.GetOrderService().UpdateStatus(c.Request.Context(), actor, c.Param("code"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:code - staff only
func DeleteOrder(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := services.GetOrderService().DeleteOrder(c.Request.Context(), actor, c.Param("code")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}
