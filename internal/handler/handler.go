package handler

import (
	"storefront-service/internal/cart"
	"storefront-service/internal/order"

	"gorm.io/gorm"
)

var (
	carts  *cart.Engine
	orders *order.Engine
)

// Init wires the handlers to their engines. Called once at startup.
func Init(db *gorm.DB) {
	carts = cart.NewEngine(db)
	orders = order.NewEngine(db, carts)
}
