package cart

import (
	"errors"
	"sync"

	"storefront-service/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidQuantity is returned when a line quantity is below one
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Engine owns cart contents and keeps the cached total consistent with them.
// Every mutation recomputes the total, so the cached value cannot drift as
// long as writes go through the engine.
//
// Mutations on the same cart are serialized in-process with a per-cart lock;
// the underlying read-modify-write is otherwise open to lost updates under
// concurrent requests.
type Engine struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewEngine creates a cart engine on top of the given database
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{
		db:    db,
		locks: make(map[uint]*sync.Mutex),
	}
}

// lockCart returns the mutex guarding a single cart's mutations
func (e *Engine) lockCart(cartID uint) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[cartID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[cartID] = lock
	}
	return lock
}

// GetOrCreateCart returns the user's active cart, creating it on first use.
// Carts already snapshotted into an order are not considered active.
func (e *Engine) GetOrCreateCart(userID uint) (*model.Cart, error) {
	var cart model.Cart
	err := e.db.
		Where("user_id = ? AND id NOT IN (SELECT cart_id FROM orders)", userID).
		First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = model.Cart{UserID: userID, Total: decimal.Zero}
	if err := e.db.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCart loads a cart with its items and their products
func (e *Engine) GetCart(cartID uint) (*model.Cart, error) {
	var cart model.Cart
	err := e.db.Preload("Items.Product").First(&cart, cartID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddProduct puts the product into the cart. An existing line for the same
// product has its quantity incremented by the requested amount; otherwise a
// new line is created. One line per product.
func (e *Engine) AddProduct(cart *model.Cart, product *model.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	lock := e.lockCart(cart.ID)
	lock.Lock()
	defer lock.Unlock()

	items, err := e.loadItems(cart)
	if err != nil {
		return err
	}

	var line *model.CartItem
	for i := range items {
		if items[i].ProductID == product.ID {
			line = &items[i]
			break
		}
	}

	if line != nil {
		line.Quantity += quantity
		if err := e.db.Model(line).Update("quantity", line.Quantity).Error; err != nil {
			return err
		}
	} else {
		item := model.CartItem{ProductID: product.ID, Quantity: quantity}
		if err := e.db.Create(&item).Error; err != nil {
			return err
		}
		if err := e.db.Model(cart).Association("Items").Append(&item); err != nil {
			return err
		}
	}

	return e.recalculateTotal(cart)
}

// RemoveProduct detaches and deletes the cart line referencing the product.
// Removing a product that is not in the cart is a no-op.
func (e *Engine) RemoveProduct(cart *model.Cart, product *model.Product) error {
	lock := e.lockCart(cart.ID)
	lock.Lock()
	defer lock.Unlock()

	items, err := e.loadItems(cart)
	if err != nil {
		return err
	}

	for i := range items {
		if items[i].ProductID != product.ID {
			continue
		}
		if err := e.db.Model(cart).Association("Items").Delete(&items[i]); err != nil {
			return err
		}
		if err := e.db.Delete(&items[i]).Error; err != nil {
			return err
		}
		break
	}

	return e.recalculateTotal(cart)
}

// ReplaceItems swaps the cart contents wholesale: existing lines are detached
// and deleted, the given lines are created in their place. Used by order
// updates. The total is recomputed from the new lines.
func (e *Engine) ReplaceItems(cart *model.Cart, lines []model.CartItem) error {
	lock := e.lockCart(cart.ID)
	lock.Lock()
	defer lock.Unlock()

	return e.db.Transaction(func(tx *gorm.DB) error {
		var old []model.CartItem
		if err := tx.Model(cart).Association("Items").Find(&old); err != nil {
			return err
		}
		if err := tx.Model(cart).Association("Items").Clear(); err != nil {
			return err
		}
		if len(old) > 0 {
			if err := tx.Delete(&old).Error; err != nil {
				return err
			}
		}

		for i := range lines {
			if lines[i].Quantity < 1 {
				return ErrInvalidQuantity
			}
			if err := tx.Create(&lines[i]).Error; err != nil {
				return err
			}
			if err := tx.Model(cart).Association("Items").Append(&lines[i]); err != nil {
				return err
			}
		}

		return e.recalculateTotalTx(tx, cart)
	})
}

// CalculateTotal recomputes and persists the cart total from current contents
func (e *Engine) CalculateTotal(cart *model.Cart) error {
	lock := e.lockCart(cart.ID)
	lock.Lock()
	defer lock.Unlock()

	return e.recalculateTotal(cart)
}

func (e *Engine) recalculateTotal(cart *model.Cart) error {
	return e.recalculateTotalTx(e.db, cart)
}

// recalculateTotalTx is the single choke-point every mutation runs through:
// total := sum of item.Product.Price * item.Quantity over attached items.
func (e *Engine) recalculateTotalTx(tx *gorm.DB, cart *model.Cart) error {
	var fresh model.Cart
	if err := tx.Preload("Items.Product").First(&fresh, cart.ID).Error; err != nil {
		return err
	}

	total := decimal.Zero
	for _, item := range fresh.Items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	cart.Total = total
	cart.Items = fresh.Items
	return tx.Model(&model.Cart{}).Where("id = ?", cart.ID).Update("total", total).Error
}

func (e *Engine) loadItems(cart *model.Cart) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := e.db.Model(cart).Association("Items").Find(&items); err != nil {
		return nil, err
	}
	return items, nil
}
