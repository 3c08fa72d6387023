package services

import (
	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/kendall-kelly/bakery-orders-api/models"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID  uint
	IsStaff bool
}

// ActorFor builds the actor for a loaded user
func ActorFor(user *models.User) *Actor {
	if user == nil {
		return nil
	}
	return &Actor{UserID: user.ID, IsStaff: user.IsStaff()}
}

// Action names an operation guarded by authorize
type Action string

const (
	ActionPlaceOrder     Action = "place_order"
	ActionViewOrder      Action = "view_order"
	ActionCancelOrder    Action = "cancel_order"
	ActionPayOrder       Action = "pay_order"
	ActionAttachEvidence Action = "attach_evidence"
	ActionUpdateStatus   Action = "update_status"
	ActionReviewPayment  Action = "review_payment"
	ActionDeleteOrder    Action = "delete_order"
	ActionListAllOrders  Action = "list_all_orders"
)

var staffOnlyActions = map[Action]bool{
	ActionUpdateStatus:  true,
	ActionReviewPayment: true,
	ActionDeleteOrder:   true,
	ActionListAllOrders: true,
}

// authorize decides whether actor may perform action on order.
// order is nil for actions that do not target an existing order.
func authorize(actor *Actor, action Action, order *models.Order) error {
	if actor == nil {
		return apperrors.Unauthenticated()
	}
	if actor.IsStaff {
		return nil
	}
	if staffOnlyActions[action] {
		return apperrors.Forbidden("only staff can " + actionLabel(action))
	}
	if order != nil && order.UserID != actor.UserID {
		return apperrors.Forbidden("you do not have access to order " + order.Code)
	}
	return nil
}

func actionLabel(action Action) string {
	switch action {
	case ActionUpdateStatus:
		return "update order status"
	case ActionReviewPayment:
		return "review payments"
	case ActionDeleteOrder:
		return "delete orders"
	case ActionListAllOrders:
		return "list other customers' orders"
	}
	return string(action)
}
