package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineItem is one priced entry of an order. It is immutable once the order is placed.
type LineItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"-"`
	MenuItemID uint            `gorm:"not null;index" json:"menu_item_id"`
	Name       string          `gorm:"size:200" json:"menu_item_name"`
	Quantity   int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"` // snapshot of the price at order time
	LineTotal  decimal.Decimal `gorm:"-" json:"subtotal"`                        // computed
}

// TableName specifies the table name for the LineItem model
func (LineItem) TableName() string {
	return "order_items"
}

// NewLineItem creates a line item and fills its computed subtotal
func NewLineItem(menuItemID uint, name string, quantity int, unitPrice decimal.Decimal) LineItem {
	item := LineItem{
		MenuItemID: menuItemID,
		Name:       name,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
	}
	item.LineTotal = item.Subtotal()
	return item
}

// Subtotal returns unit price times quantity
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func (li *LineItem) AfterFind(tx *gorm.DB) error {
	li.LineTotal = li.Subtotal()
	return nil
}
