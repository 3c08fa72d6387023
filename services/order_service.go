package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/kendall-kelly/bakery-orders-api/logger"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCodeMaxAttempts bounds the retries of a colliding order or transaction code
const DefaultCodeMaxAttempts = 5

var forUpdate = clause.Locking{Strength: "UPDATE"}

// OrderServiceOptions configures an OrderService
type OrderServiceOptions struct {
	Catalog           MenuCatalog // nil disables catalog price checks and the quantity-only cart
	TrustClientPrices bool
	Codes             CodeGenerator
	Images            ImageService
	Events            EventPublisher
	DeliveryFee       decimal.Decimal
	CodeMaxAttempts   int
	Now               func() time.Time
	Logger            *zerolog.Logger // defaults to the "orders" component logger
}

// OrderService runs every order and payment operation in its own database transaction
type OrderService struct {
	db          *gorm.DB
	resolver    *CartResolver
	codes       CodeGenerator
	images      ImageService
	events      EventPublisher
	deliveryFee decimal.Decimal
	maxAttempts int
	now         func() time.Time
	log         *zerolog.Logger
}

var orderServiceInstance *OrderService

// NewOrderService creates an order service, filling unset options with defaults
func NewOrderService(db *gorm.DB, opts OrderServiceOptions) *OrderService {
	if opts.Codes == nil {
		opts.Codes = RandomCodeGenerator{}
	}
	if opts.Events == nil {
		opts.Events = NoopPublisher{}
	}
	if opts.CodeMaxAttempts < 1 {
		opts.CodeMaxAttempts = DefaultCodeMaxAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Component("orders")
	}
	return &OrderService{
		db:          db,
		resolver:    NewCartResolver(opts.Catalog, opts.TrustClientPrices),
		codes:       opts.Codes,
		images:      opts.Images,
		events:      opts.Events,
		deliveryFee: opts.DeliveryFee,
		maxAttempts: opts.CodeMaxAttempts,
		now:         opts.Now,
		log:         opts.Logger,
	}
}

// InitOrderService initializes the global order service
func InitOrderService(db *gorm.DB, opts OrderServiceOptions) *OrderService {
	orderServiceInstance = NewOrderService(db, opts)
	return orderServiceInstance
}

// GetOrderService returns the initialized order service instance
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService sets the order service instance (primarily for testing)
func SetOrderService(service *OrderService) {
	orderServiceInstance = service
}

// PaymentInput is the payment intent submitted with an order or afterwards
type PaymentInput struct {
	Method   string // empty means cash on delivery
	Details  models.PaymentDetails
	Evidence *multipart.FileHeader // optional screenshot, stored through the image service
}

// PlaceOrderInput is everything a customer submits at checkout
type PlaceOrderInput struct {
	Cart     Cart
	Delivery models.DeliveryInfo
	Payment  PaymentInput
}

// PlaceOrder prices the cart and creates the order, its line items and, for every
// method but cash on delivery, a pending payment, all in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, actor *Actor, input PlaceOrderInput) (*models.Order, error) {
	if err := authorize(actor, ActionPlaceOrder, nil); err != nil {
		return nil, err
	}

	method, err := models.ParsePaymentMethod(input.Payment.Method)
	if err != nil {
		return nil, err
	}

	items, total, err := s.resolver.Resolve(ctx, input.Cart)
	if err != nil {
		return nil, err
	}

	delivery, err := s.deliveryDefaults(ctx, actor, input.Delivery)
	if err != nil {
		return nil, err
	}

	details := input.Payment.Details
	var uploaded string
	if method != models.PaymentMethodCOD && input.Payment.Evidence != nil {
		if uploaded, err = s.uploadEvidence(ctx, input.Payment.Evidence); err != nil {
			return nil, err
		}
		details.EvidenceKey = uploaded
	}

	var order *models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = models.NewOrder(actor.UserID, "", items, total, s.deliveryFee, delivery)
		if err != nil {
			return err
		}

		err = s.insertWithCode(tx, s.codes.OrderCode, func(tx *gorm.DB, code string) error {
			order.ID = 0
			order.Code = code
			for i := range order.Items {
				order.Items[i].ID = 0
				order.Items[i].OrderID = 0
			}
			return tx.Create(order).Error
		})
		if err != nil {
			return err
		}

		if method == models.PaymentMethodCOD {
			return nil
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
		Uint("user_id", order.UserID).
		Str("grand_total", order.GrandTotal.StringFixed(2)).
		Str("payment_method", string(method)).
		Msg("order placed")

	events := []OrderEvent{s.orderEvent(EventOrderPlaced, order, "")}
	if order.Payment != nil {
		events = append(events, s.paymentEvent(EventPaymentCreated, order, order.Payment))
	}
	s.publish(ctx, events...)

	s.present(ctx, actor, order)
	return order, nil
}

// CancelOrder cancels a pending or confirmed order and refunds its payment.
// Cancelling an already cancelled order succeeds without further effects.
func (s *OrderService) CancelOrder(ctx context.Context, actor *Actor, orderCode string) (*models.Order, error) {
	return s.changeStatus(ctx, actor, ActionCancelOrder, orderCode, models.OrderStatusCancelled)
}

// UpdateStatus moves an order along its state machine. Staff only.
// Unknown status strings fail with InvalidStatus before the order is touched.
func (s *OrderService) UpdateStatus(ctx context.Context, actor *Actor, orderCode, status string) (*models.Order, error) {
	to, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.changeStatus(ctx, actor, ActionUpdateStatus, orderCode, to)
}

func (s *OrderService) changeStatus(ctx context.Context, actor *Actor, action Action, orderCode string, to models.OrderStatus) (*models.Order, error) {
	if err := authorize(actor, action, nil); err != nil {
		return nil, err
	}

	var (
		order         *models.Order
		from          models.OrderStatus
		paymentBefore models.PaymentStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, "code", orderCode)
		if err != nil {
			return err
		}
		if err := authorize(actor, action, order); err != nil {
			return err
		}

		from = order.Status
		if order.Payment != nil {
			paymentBefore = order.Payment.Status
		}
		if err := order.TransitionTo(to, s.now()); err != nil {
			return err
		}
		if order.Status == from {
			return nil
		}

		if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
			return fmt.Errorf("failed to update order %s: %w", order.Code, err)
		}
		if order.Payment != nil && order.Payment.Status != paymentBefore {
			if err := tx.Save(order.Payment).Error; err != nil {
				return fmt.Errorf("failed to update payment of order %s: %w", order.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order.Status != from {
		s.log.Info().
			Str("order_code", order.Code).
			Str("from", string(from)).
			Str("to", string(order.Status)).
			Uint("actor_id", actor.UserID).
			Msg("order status changed")

		eventType := EventOrderStatusChanged
		if order.Status == models.OrderStatusCancelled {
			eventType = EventOrderCancelled
		}
		events := []OrderEvent{s.orderEvent(eventType, order, from)}
		if order.Payment != nil && order.Payment.Status != paymentBefore {
			events = append(events, s.paymentEvent(EventPaymentStatusChanged, order, order.Payment))
		}
		s.publish(ctx, events...)
	}

	s.present(ctx, actor, order)
	return order, nil
}

// DeleteOrder removes an order together with its line items and payment. Staff only.
func (s *OrderService) DeleteOrder(ctx context.Context, actor *Actor, orderCode string) error {
	if err := authorize(actor, ActionDeleteOrder, nil); err != nil {
		return err
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, "code", orderCode)
		if err != nil {
			return err
		}
		if err := tx.Select(clause.Associations).Delete(order).Error; err != nil {
			return fmt.Errorf("failed to delete order %s: %w", order.Code, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if order.Payment != nil && order.Payment.EvidenceKey != nil {
		s.discardEvidence(ctx, *order.Payment.EvidenceKey)
	}
	s.log.Info().Str("order_code", order.Code).Uint("actor_id", actor.UserID).Msg("order deleted")
	s.publish(ctx, s.orderEvent(EventOrderDeleted, order, ""))
	return nil
}

// Order list phases
const (
	PhaseCurrent = "current"
	PhaseHistory = "history"
)

// OrderFilter narrows ListOrders. Zero values mean no filtering.
type OrderFilter struct {
	Status string
	Phase  string // current or history
	UserID uint   // staff only; customers always see their own orders
}

// ListOrders returns orders newest first, with their items and payment
func (s *OrderService) ListOrders(ctx context.Context, actor *Actor, filter OrderFilter) ([]models.Order, error) {
	if err := authorize(actor, ActionViewOrder, nil); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Order{})

	userID := filter.UserID
	if userID != 0 && userID != actor.UserID {
		if err := authorize(actor, ActionListAllOrders, nil); err != nil {
			return nil, err
		}
	}
	if !actor.IsStaff {
		userID = actor.UserID
	}
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	if filter.Status != "" {
		status, err := models.ParseOrderStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		query = query.Where("status = ?", status)
	}

	switch filter.Phase {
	case "":
	case PhaseCurrent:
		query = query.Where("status IN ?", models.CurrentOrderStatuses)
	case PhaseHistory:
		query = query.Where("status IN ?", models.HistoryOrderStatuses)
	default:
		return nil, apperrors.Validation(apperrors.CodeInvalidField, "phase", "phase must be current or history")
	}

	var orders []models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("menu_item_id") }).
		Preload("Payment").
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	for i := range orders {
		s.present(ctx, actor, &orders[i])
	}
	return orders, nil
}

// GetOrder fetches one order by its code
func (s *OrderService) GetOrder(ctx context.Context, actor *Actor, orderCode string) (*models.Order, error) {
	if err := authorize(actor, ActionViewOrder, nil); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("menu_item_id") }).
		Preload("Payment").
		Where("code = ?", orderCode).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order", orderCode)
		}
		return nil, fmt.Errorf("failed to load order %s: %w", orderCode, err)
	}

	if err := authorize(actor, ActionViewOrder, &order); err != nil {
		return nil, err
	}

	s.present(ctx, actor, &order)
	return &order, nil
}

// DashboardStats summarizes a customer's orders
type DashboardStats struct {
	TotalOrders   int64                        `json:"total_orders"`
	CurrentOrders int64                        `json:"current_orders"`
	ByStatus      map[models.OrderStatus]int64 `json:"by_status"`
	TotalSpent    decimal.Decimal              `json:"total_spent"` // grand totals of delivered orders
}

// MarshalJSON renders total_spent with two decimals
func (d DashboardStats) MarshalJSON() ([]byte, error) {
	type stats DashboardStats
	return json.Marshal(struct {
		stats
		TotalSpent string `json:"total_spent"`
	}{stats: stats(d), TotalSpent: models.FormatMoney(d.TotalSpent)})
}

// OrderStats counts the actor's orders per status. Staff see the whole shop.
func (s *OrderService) OrderStats(ctx context.Context, actor *Actor) (*DashboardStats, error) {
	if err := authorize(actor, ActionViewOrder, nil); err != nil {
		return nil, err
	}

	scope := func(db *gorm.DB) *gorm.DB {
		if actor.IsStaff {
			return db
		}
		return db.Where("user_id = ?", actor.UserID)
	}

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Order{}).Scopes(scope).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	stats := &DashboardStats{
		ByStatus:   make(map[models.OrderStatus]int64, len(models.OrderStatuses)),
		TotalSpent: decimal.Zero,
	}
	for _, status := range models.OrderStatuses {
		stats.ByStatus[status] = 0
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
	}
	for _, status := range models.CurrentOrderStatuses {
		stats.CurrentOrders += stats.ByStatus[status]
	}

	// Summed in Go so SQLite's floating point SUM never touches money
	var delivered []models.Order
	err = s.db.WithContext(ctx).Scopes(scope).
		Select("id", "total_amount", "delivery_fee").
		Where("status = ?", models.OrderStatusDelivered).
		Find(&delivered).Error
	if err != nil {
		return nil, fmt.Errorf("failed to total delivered orders: %w", err)
	}
	for _, order := range delivered {
		stats.TotalSpent = stats.TotalSpent.Add(order.CalculateGrandTotal())
	}

	return stats, nil
}

// lockOrder loads an order with its line items and locks the order row, then the payment row
func lockOrder(tx *gorm.DB, column string, value interface{}) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(forUpdate).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order", fmt.Sprint(value))
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	var payment models.Payment
	result := tx.Clauses(forUpdate).Where("order_id = ?", order.ID).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load payment of order %s: %w", order.Code, result.Error)
	}
	if result.RowsAffected > 0 {
		order.Payment = &payment
	}

	if err := tx.Where("order_id = ?", order.ID).Order("menu_item_id").Find(&order.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load items of order %s: %w", order.Code, err)
	}
	return &order, nil
}

// deliveryDefaults fills a missing address or phone from the customer's profile
func (s *OrderService) deliveryDefaults(ctx context.Context, actor *Actor, delivery models.DeliveryInfo) (models.DeliveryInfo, error) {
	if delivery.Address == "" || delivery.Phone == "" {
		var user models.User
		err := s.db.WithContext(ctx).First(&user, actor.UserID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return delivery, fmt.Errorf("failed to load user %d: %w", actor.UserID, err)
		}
		if delivery.Address == "" {
			delivery.Address = user.DefaultDeliveryAddress
		}
		if delivery.Phone == "" {
			delivery.Phone = user.Phone
		}
	}
	if delivery.Address == "" {
		return delivery, apperrors.Validation(apperrors.CodeInvalidField, "delivery_address", "delivery address is required")
	}
	return delivery, nil
}

// present fills computed fields and hides staff-only fields from customers
func (s *OrderService) present(ctx context.Context, actor *Actor, order *models.Order) {
	order.GrandTotal = order.CalculateGrandTotal()
	for i := range order.Items {
		order.Items[i].LineTotal = order.Items[i].Subtotal()
	}
	if order.Payment != nil {
		s.presentPayment(ctx, actor, order.Payment)
	}
}

func (s *OrderService) presentPayment(ctx context.Context, actor *Actor, payment *models.Payment) {
	if !actor.IsStaff {
		payment.VerificationNotes = ""
	}
	if payment.EvidenceKey == nil || s.images == nil {
		return
	}
	url, err := s.images.GetImageURL(ctx, *payment.EvidenceKey)
	if err != nil {
		s.log.Warn().Err(err).Str("transaction_code", payment.TransactionCode).Msg("failed to resolve evidence URL")
		return
	}
	payment.EvidenceURL = &url
}

func (s *OrderService) orderEvent(eventType string, order *models.Order, previous models.OrderStatus) OrderEvent {
	return OrderEvent{
		Type:           eventType,
		OrderCode:      order.Code,
		UserID:         order.UserID,
		OrderStatus:    string(order.Status),
		PreviousStatus: string(previous),
		OccurredAt:     s.now(),
	}
}

func (s *OrderService) paymentEvent(eventType string, order *models.Order, payment *models.Payment) OrderEvent {
	amount := payment.Amount
	return OrderEvent{
		Type:            eventType,
		OrderCode:       order.Code,
		UserID:          order.UserID,
		OrderStatus:     string(order.Status),
		TransactionCode: payment.TransactionCode,
		PaymentStatus:   string(payment.Status),
		Amount:          &amount,
		OccurredAt:      s.now(),
	}
}

// publish delivers events after commit; failures are only logged
func (s *OrderService) publish(ctx context.Context, events ...OrderEvent) {
	ctx = context.WithoutCancel(ctx)
	for _, event := range events {
		if err := s.events.Publish(ctx, event); err != nil {
			s.log.Error().Err(err).Str("event", event.Type).Str("order_code", event.OrderCode).Msg("failed to publish event")
		}
	}
}
