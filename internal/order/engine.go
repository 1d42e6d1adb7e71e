package order

import (
	"errors"

	"storefront-service/internal/cart"
	"storefront-service/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrEmptyCart is returned when an order payload carries no lines
	ErrEmptyCart = errors.New("order must contain at least one item")
	// ErrInvalidQuantity is returned when a payload line quantity is below one
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrInvalidStatus is returned for a status outside the enumeration
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidTransition is returned when the status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")
)

// transitions is the order lifecycle: pending and processing may advance,
// completed and cancelled are terminal.
var transitions = map[string][]string{
	model.StatusPending:    {model.StatusProcessing, model.StatusCompleted, model.StatusCancelled},
	model.StatusProcessing: {model.StatusCompleted, model.StatusCancelled},
	model.StatusCompleted:  {},
	model.StatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Line is one product/quantity entry in an order payload
type Line struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// Payload carries the cart contents for order create and update requests
type Payload struct {
	Items []Line `json:"items"`
}

// Engine wraps carts in orders and drives the status lifecycle
type Engine struct {
	db    *gorm.DB
	carts *cart.Engine
}

// NewEngine creates an order engine on top of the given database
func NewEngine(db *gorm.DB, carts *cart.Engine) *Engine {
	return &Engine{db: db, carts: carts}
}

// Create validates the payload, persists a cart snapshot with its lines and
// total, and wraps it in a pending order. The whole operation runs in one
// transaction; a bad line aborts it without leaving a half-built cart behind.
// A missing product surfaces as gorm.ErrRecordNotFound.
func (e *Engine) Create(userID uint, payload Payload) (*model.Order, error) {
	if len(payload.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var order model.Order
	err := e.db.Transaction(func(tx *gorm.DB) error {
		snapshot := model.Cart{UserID: userID, Total: decimal.Zero}
		if err := tx.Create(&snapshot).Error; err != nil {
			return err
		}

		total := decimal.Zero
		for _, line := range payload.Items {
			if line.Quantity < 1 {
				return ErrInvalidQuantity
			}

			var product model.Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				return err
			}

			item := model.CartItem{ProductID: product.ID, Quantity: line.Quantity}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			if err := tx.Model(&snapshot).Association("Items").Append(&item); err != nil {
				return err
			}

			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		if err := tx.Model(&model.Cart{}).Where("id = ?", snapshot.ID).Update("total", total).Error; err != nil {
			return err
		}
		if err := tx.Preload("Items.Product").First(&snapshot, snapshot.ID).Error; err != nil {
			return err
		}

		order = model.Order{
			UserID: userID,
			CartID: snapshot.ID,
			Cart:   snapshot,
			Status: model.StatusPending,
		}
		// The snapshot is already persisted; skip the association save
		return tx.Omit("Cart").Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// Update optionally replaces the order's cart contents wholesale and
// optionally moves the status through the transition table. Either part
// failing leaves the order untouched.
func (e *Engine) Update(order *model.Order, payload *Payload, status string) error {
	// Validate the status change before touching the cart so a rejected
	// status cannot leave a half-applied update behind.
	changeStatus := status != "" && status != order.Status
	if changeStatus {
		if !model.ValidStatus(status) {
			return ErrInvalidStatus
		}
		if !CanTransition(order.Status, status) {
			return ErrInvalidTransition
		}
	}

	if payload != nil {
		lines := make([]model.CartItem, 0, len(payload.Items))
		for _, line := range payload.Items {
			if line.Quantity < 1 {
				return ErrInvalidQuantity
			}
			var product model.Product
			if err := e.db.First(&product, line.ProductID).Error; err != nil {
				return err
			}
			lines = append(lines, model.CartItem{ProductID: product.ID, Quantity: line.Quantity})
		}

		snapshot, err := e.carts.GetCart(order.CartID)
		if err != nil {
			return err
		}
		if err := e.carts.ReplaceItems(snapshot, lines); err != nil {
			return err
		}
		order.Cart = *snapshot
	}

	if changeStatus {
		if err := e.Transition(order, status); err != nil {
			return err
		}
	}

	return nil
}

// Transition moves the order to the given status if the lifecycle allows it
func (e *Engine) Transition(order *model.Order, status string) error {
	if !model.ValidStatus(status) {
		return ErrInvalidStatus
	}
	if !CanTransition(order.Status, status) {
		return ErrInvalidTransition
	}

	order.Status = status
	return e.db.Model(order).Update("status", status).Error
}

// Complete moves the order to completed
func (e *Engine) Complete(order *model.Order) error {
	return e.Transition(order, model.StatusCompleted)
}

// Cancel moves the order to cancelled
func (e *Engine) Cancel(order *model.Order) error {
	return e.Transition(order, model.StatusCancelled)
}

// ListByUser returns all orders owned by the user, carts included
func (e *Engine) ListByUser(userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := e.db.Preload("Cart.Items.Product").
		Where("user_id = ?", userID).
		Find(&orders).Error
	return orders, err
}

// GetForUser loads one order, scoped to its owner. A foreign order surfaces
// as gorm.ErrRecordNotFound rather than leaking its existence.
func (e *Engine) GetForUser(orderID, userID uint) (*model.Order, error) {
	var order model.Order
	err := e.db.Preload("Cart.Items.Product").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
