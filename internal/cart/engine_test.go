package cart

import (
	"sync"
	"testing"

	"storefront-service/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every new connection to :memory: opens a fresh database, so the
	// pool must stay at a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Tag{},
		&model.Comment{},
		&model.Product{},
		&model.CartItem{},
		&model.Cart{},
		&model.Order{},
	))
	return db
}

func createProduct(t *testing.T, db *gorm.DB, name, price string) *model.Product {
	t.Helper()

	product := model.Product{
		Name:     name,
		Category: model.CategoryNew,
		Price:    decimal.RequireFromString(price),
		Quantity: 100,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func TestGetOrCreateCart(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)

	first, err := engine.GetOrCreateCart(7)
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.True(t, first.Total.IsZero())

	// Same user resolves to the same cart
	second, err := engine.GetOrCreateCart(7)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// A different user gets a different cart
	other, err := engine.GetOrCreateCart(8)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestGetOrCreateCartSkipsOrderOwnedCarts(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)

	snapshot := model.Cart{UserID: 7, Total: decimal.Zero}
	require.NoError(t, db.Create(&snapshot).Error)
	require.NoError(t, db.Create(&model.Order{
		UserID: 7,
		CartID: snapshot.ID,
		Status: model.StatusPending,
	}).Error)

	active, err := engine.GetOrCreateCart(7)
	require.NoError(t, err)
	require.NotEqual(t, snapshot.ID, active.ID)
}

func TestAddProductMergesSameProduct(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	product := createProduct(t, db, "Keyboard", "49.99")

	userCart, err := engine.GetOrCreateCart(1)
	require.NoError(t, err)

	require.NoError(t, engine.AddProduct(userCart, product, 1))
	require.NoError(t, engine.AddProduct(userCart, product, 1))

	require.Len(t, userCart.Items, 1)
	require.Equal(t, 2, userCart.Items[0].Quantity)
}

func TestAddProductMergesDifferentQuantities(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	product := createProduct(t, db, "Mouse", "19.99")

	userCart, err := engine.GetOrCreateCart(1)
	require.NoError(t, err)

	// One line per product: differing quantities still merge
	require.NoError(t, engine.AddProduct(userCart, product, 1))
	require.NoError(t, engine.AddProduct(userCart, product, 2))

	require.Len(t, userCart.Items, 1)
	require.Equal(t, 3, userCart.Items[0].Quantity)
}

func TestAddProductRejectsInvalidQuantity(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	product := createProduct(t, db, "Monitor", "199.00")

	userCart, err := engine.GetOrCreateCart(1)
	require.NoError(t, err)

	require.ErrorIs(t, engine.AddProduct(userCart, product, 0), ErrInvalidQuantity)
	require.ErrorIs(t, engine.AddProduct(userCart, product, -3), ErrInvalidQuantity)
	require.Empty(t, userCart.Items)
}

func TestConcurrentAddsSerialize(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	product := createProduct(t, db, "Keyboard", "49.99")

	userCart, err := engine.GetOrCreateCart(1)
	require.NoError(t, err)

	// Concurrent adds of the same product serialize on the cart lock and
	// merge into one line
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- engine.AddProduct(userCart, product, 1)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	final, err := engine.GetCart(userCart.ID)
	require.NoError(t, err)
	require.Len(t, final.Items, 1)
	require.Equal(t, workers, final.Items[0].Quantity)

	// 49.99 * 8
	require.True(t, final.Total.Equal(decimal.RequireFromString("399.92")),
		"got total %s", final.Total)
}

func TestTotalMatchesContents(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	keyboard := createProduct(t, db, "Keyboard", "49.99")
	mouse := createProduct(t, db, "Mouse", "19.99")
	cable := createProduct(t, db, "Cable", "4.50")

	userCart, err := engine.GetOrCreateCart(1)
	require.NoError(t, err)

	require.NoError(t, engine.AddProduct(userCart, keyboard, 2))
	require.NoError(t, engine.AddProduct(userCart, mouse, 1))
	require.NoError(t, engine.AddProduct(userCart, cable, 3))
	require.NoError(t, engine.RemoveProduct(userCart, mouse))
	require.NoError(t, engine.CalculateTotal(userCart))

	// 49.99*2 + 4.50*3
	require.True(t, userCart.Total.Equal(decimal.RequireFromString("113.48")),
		"got total %s", userCart.Total)

	// Persisted value matches
	var stored model.Cart
	require.NoError(t, db.First(&stored, userCart.ID).Error)
	require.True(t, stored.Total.Equal(userCart.Total))
}

func TestRemoveProductDeletesLine(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	product := createProduct(t, db, "Keyboard", "49.99")

	userCart, err := engine.GetOrCreateCart(1)
	require.NoError(t, err)
	require.NoError(t, engine.AddProduct(userCart, product, 2))
	require.NoError(t, engine.RemoveProduct(userCart, product))

	require.Empty(t, userCart.Items)
	require.True(t, userCart.Total.IsZero())

	// The line itself is deleted, not just detached
	var count int64
	require.NoError(t, db.Model(&model.CartItem{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRemoveAbsentProductIsNoOp(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	keyboard := createProduct(t, db, "Keyboard", "49.99")
	mouse := createProduct(t, db, "Mouse", "19.99")

	userCart, err := engine.GetOrCreateCart(1)
	require.NoError(t, err)
	require.NoError(t, engine.AddProduct(userCart, keyboard, 1))

	before := userCart.Total
	require.NoError(t, engine.RemoveProduct(userCart, mouse))

	require.Len(t, userCart.Items, 1)
	require.True(t, userCart.Total.Equal(before))
}

func TestReplaceItems(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	keyboard := createProduct(t, db, "Keyboard", "49.99")
	mouse := createProduct(t, db, "Mouse", "19.99")

	userCart, err := engine.GetOrCreateCart(1)
	require.NoError(t, err)
	require.NoError(t, engine.AddProduct(userCart, keyboard, 5))

	lines := []model.CartItem{{ProductID: mouse.ID, Quantity: 2}}
	require.NoError(t, engine.ReplaceItems(userCart, lines))

	require.Len(t, userCart.Items, 1)
	require.Equal(t, mouse.ID, userCart.Items[0].ProductID)
	require.True(t, userCart.Total.Equal(decimal.RequireFromString("39.98")),
		"got total %s", userCart.Total)

	// Old lines are gone
	var count int64
	require.NoError(t, db.Model(&model.CartItem{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestReplaceItemsRejectsInvalidQuantity(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	keyboard := createProduct(t, db, "Keyboard", "49.99")
	mouse := createProduct(t, db, "Mouse", "19.99")

	userCart, err := engine.GetOrCreateCart(1)
	require.NoError(t, err)
	require.NoError(t, engine.AddProduct(userCart, keyboard, 1))

	err = engine.ReplaceItems(userCart, []model.CartItem{{ProductID: mouse.ID, Quantity: 0}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestGetCartNotFound(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)

	_, err := engine.GetCart(999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
