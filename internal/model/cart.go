package model

import (
	"github.com/shopspring/decimal"
)

// CartItem is a single (product, quantity) line inside a cart
type CartItem struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	ProductID uint    `json:"product_id" gorm:"not null"`
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity" gorm:"not null"`
}

// Cart holds a user's current selection. Total is a cached value; every
// mutation path goes through the cart engine, which recomputes it.
//
// A user has at most one active cart. Carts snapshotted into orders share
// this table, so uniqueness of the active cart is enforced by the engine's
// get-or-create lookup (which skips order-owned carts), not by an index.
type Cart struct {
	ID     uint            `json:"id" gorm:"primaryKey"`
	UserID uint            `json:"user_id" gorm:"index;not null"`
	Total  decimal.Decimal `json:"total" gorm:"type:decimal(10,2);default:0.00"`
	Items  []CartItem      `json:"items" gorm:"many2many:cart_lines"`
}
