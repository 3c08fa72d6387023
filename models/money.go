package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount with the two decimals of every money column,
// whatever scale the database driver handed back.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// MarshalJSON renders money fields with two decimals
func (o Order) MarshalJSON() ([]byte, error) {
	type order Order
	return json.Marshal(struct {
		order
		TotalAmount string `json:"total_amount"`
		DeliveryFee string `json:"delivery_fee"`
		GrandTotal  string `json:"grand_total"`
	}{
		order:       order(o),
		TotalAmount: FormatMoney(o.TotalAmount),
		DeliveryFee: FormatMoney(o.DeliveryFee),
		GrandTotal:  FormatMoney(o.CalculateGrandTotal()),
	})
}

// MarshalJSON renders money fields with two decimals
func (li LineItem) MarshalJSON() ([]byte, error) {
	type lineItem LineItem
	return json.Marshal(struct {
		lineItem
		UnitPrice string `json:"price"`
		LineTotal string `json:"subtotal"`
	}{
		lineItem:  lineItem(li),
		UnitPrice: FormatMoney(li.UnitPrice),
		LineTotal: FormatMoney(li.Subtotal()),
	})
}

// MarshalJSON renders the amount with two decimals
func (p Payment) MarshalJSON() ([]byte, error) {
	type payment Payment
	return json.Marshal(struct {
		payment
		Amount string `json:"amount"`
	}{
		payment: payment(p),
		Amount:  FormatMoney(p.Amount),
	})
}

// MarshalJSON renders the price with two decimals
func (m MenuItem) MarshalJSON() ([]byte, error) {
	type menuItem MenuItem
	return json.Marshal(struct {
		menuItem
		Price string `json:"price"`
	}{
		menuItem: menuItem(m),
		Price:    FormatMoney(m.Price),
	})
}
