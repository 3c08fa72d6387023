// Package models holds the persisted order, payment, menu and user types
// together with the order and payment state machines.
package models

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&MenuItem{},
		&Order{},
		&LineItem{},
		&Payment{},
	}
}
