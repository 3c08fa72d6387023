package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/shopspring/decimal"
)

// CartLine is a quantity and a client-claimed unit price for one menu item
type CartLine struct {
	Quantity int
	Price    decimal.Decimal
}

// Cart is anything the resolver can turn into priced line items
type Cart interface {
	resolve(ctx context.Context, r *CartResolver) ([]models.LineItem, decimal.Decimal, error)
}

// ClaimedCart maps menu item ids to a quantity and the price the client saw
type ClaimedCart map[uint]CartLine

// QuantityCart maps menu item ids to quantities; prices come from the menu catalog
type QuantityCart map[uint]int

// CartResolver turns carts into validated line items and an exact decimal total
type CartResolver struct {
	catalog           MenuCatalog
	trustClientPrices bool
}

// NewCartResolver creates a resolver.
// With trustClientPrices false and a non-nil catalog, claimed prices are checked against the catalog.
func NewCartResolver(catalog MenuCatalog, trustClientPrices bool) *CartResolver {
	return &CartResolver{catalog: catalog, trustClientPrices: trustClientPrices}
}

// Resolve prices a cart of either kind
func (r *CartResolver) Resolve(ctx context.Context, cart Cart) ([]models.LineItem, decimal.Decimal, error) {
	if cart == nil {
		return nil, decimal.Zero, apperrors.Validation(apperrors.CodeEmptyCart, "items", "cart is empty")
	}
	return cart.resolve(ctx, r)
}

func (c ClaimedCart) resolve(ctx context.Context, r *CartResolver) ([]models.LineItem, decimal.Decimal, error) {
	if len(c) == 0 {
		return nil, decimal.Zero, apperrors.Validation(apperrors.CodeEmptyCart, "items", "order must contain at least one item")
	}

	ids := sortedIDs(c)
	for _, id := range ids {
		line := c[id]
		if line.Quantity < 1 {
			return nil, decimal.Zero, apperrors.Validation(apperrors.CodeInvalidQuantity,
				fmt.Sprintf("items[%d].quantity", id), "quantity must be at least 1")
		}
		if !line.Price.IsPositive() {
			return nil, decimal.Zero, apperrors.Validation(apperrors.CodeInvalidPrice,
				fmt.Sprintf("items[%d].price", id), "price must be greater than 0")
		}
	}

	items := make([]models.LineItem, 0, len(ids))
	total := decimal.Zero
	for _, id := range ids {
		line := c[id]
		name := ""
		if r.catalog != nil && !r.trustClientPrices {
			menuItem, err := r.verifyClaim(ctx, id, line.Price)
			if err != nil {
				return nil, decimal.Zero, err
			}
			name = menuItem.Name
		}
		item := models.NewLineItem(id, name, line.Quantity, line.Price)
		items = append(items, item)
		total = total.Add(item.Subtotal())
	}
	return items, total, nil
}

// verifyClaim checks a claimed price against the live catalog
func (r *CartResolver) verifyClaim(ctx context.Context, id uint, claimed decimal.Decimal) (models.MenuItem, error) {
	field := fmt.Sprintf("items[%d]", id)
	menuItem, err := r.catalog.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.MenuItem{}, apperrors.Validation(apperrors.CodeUnknownItem, field, "menu item does not exist")
		}
		return models.MenuItem{}, err
	}
	if !menuItem.Available {
		return models.MenuItem{}, apperrors.Validation(apperrors.CodeItemUnavailable, field,
			fmt.Sprintf("%s is not available", menuItem.Name))
	}
	if !menuItem.Price.Equal(claimed) {
		return models.MenuItem{}, apperrors.Validation(apperrors.CodePriceMismatch, field+".price",
			fmt.Sprintf("price of %s is %s", menuItem.Name, menuItem.Price.StringFixed(2)))
	}
	return menuItem, nil
}

func (c QuantityCart) resolve(ctx context.Context, r *CartResolver) ([]models.LineItem, decimal.Decimal, error) {
	if len(c) == 0 {
		return nil, decimal.Zero, apperrors.Validation(apperrors.CodeEmptyCart, "items", "cart is empty")
	}
	if r.catalog == nil {
		return nil, decimal.Zero, errors.New("cart resolver has no menu catalog")
	}

	items := make([]models.LineItem, 0, len(c))
	total := decimal.Zero
	for _, id := range sortedIDs(c) {
		quantity := c[id]
		if quantity <= 0 {
			continue
		}
		menuItem, err := r.catalog.Lookup(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, decimal.Zero, err
		}
		if !menuItem.Available {
			continue
		}
		item := models.NewLineItem(menuItem.ID, menuItem.Name, quantity, menuItem.Price)
		items = append(items, item)
		total = total.Add(item.Subtotal())
	}

	if len(items) == 0 {
		return nil, decimal.Zero, apperrors.Validation(apperrors.CodeNoValidItems, "items", "no valid items in cart")
	}
	return items, total, nil
}

func sortedIDs[V any](m map[uint]V) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
