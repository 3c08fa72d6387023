package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/middleware"
)

// RegisterRoutes mounts the order, payment, profile and upload endpoints on v1.
// auth guards everything except the evidence images, whose names are unguessable.
// Order and payment endpoints also require the matching token scope.
func RegisterRoutes(v1 *gin.RouterGroup, auth gin.HandlerFunc) {
	v1.GET("/uploads/:filename", GetUploadedImage)

	api := v1.Group("", auth)

	users := api.Group("/users")
	{
		users.POST("", CreateUser)
		users.GET("/me", GetMyProfile)
		users.PUT("/me", UpdateMyProfile)
	}

	read := middleware.RequireScope(middleware.ScopeReadOrders)
	write := middleware.RequireScope(middleware.ScopeWriteOrders)

	orders := api.Group("/orders")
	{
		orders.POST("", write, CreateOrder)
		orders.POST("/checkout", write, Checkout)
		orders.GET("", read, ListOrders)
		orders.GET("/stats", read, GetOrderStats)
		orders.GET("/:code", read, GetOrder)
		orders.POST("/:code/cancel", write, CancelOrder)
		orders.PATCH("/:code/status", write, UpdateOrderStatus)
		orders.DELETE("/:code", middleware.RequireScope(middleware.ScopeDeleteOrders), DeleteOrder)
		orders.GET("/:code/payment", read, GetOrderPayment)
		orders.POST("/:code/payment", write, ProcessPayment)
	}

	payments := api.Group("/payments", write)
	{
		payments.POST("/:txn/evidence", AttachPaymentEvidence)
		payments.POST("/:txn/processing", MarkPaymentProcessing)
		payments.POST("/:txn/complete", MarkPaymentCompleted)
		payments.POST("/:txn/fail", MarkPaymentFailed)
	}
}
