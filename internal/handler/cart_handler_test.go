package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"storefront-service/internal/model"
	"storefront-service/pkg/config"
	"storefront-service/pkg/database"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	// Metrics register against the default registry, so initialize them once
	prometheus.InitMetrics(&config.Config{
		Metrics: config.MetricsConfig{Prefix: "test"},
	})
	os.Exit(m.Run())
}

func setupHandlers(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Tag{},
		&model.Comment{},
		&model.Product{},
		&model.CartItem{},
		&model.Cart{},
		&model.Order{},
	))

	database.SetDB(db)
	Init(db)
	return db
}

func newJSONContext(t *testing.T, method, target, body string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	return c, rec
}

func TestAddToCart(t *testing.T) {
	db := setupHandlers(t)

	product := model.Product{Name: "Book", Price: decimal.RequireFromString("10.00")}
	require.NoError(t, db.Create(&product).Error)

	c, rec := newJSONContext(t, http.MethodPost, "/api/cart/add",
		`{"product_id":1,"quantity":2}`, 1)
	require.NoError(t, AddToCart(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var cart model.Cart
	require.NoError(t, db.Preload("Items").Where("user_id = ?", 1).First(&cart).Error)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("20.00")),
		"got total %s", cart.Total)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	db := setupHandlers(t)

	product := model.Product{Name: "Book", Price: decimal.RequireFromString("10.00")}
	require.NoError(t, db.Create(&product).Error)

	// Seed the cart, then try adding a product that does not exist
	seed, rec := newJSONContext(t, http.MethodPost, "/api/cart/add",
		`{"product_id":1,"quantity":1}`, 1)
	require.NoError(t, AddToCart(seed))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec := newJSONContext(t, http.MethodPost, "/api/cart/add",
		`{"product_id":999,"quantity":1}`, 1)
	require.NoError(t, AddToCart(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The cart is left unmodified
	var cart model.Cart
	require.NoError(t, db.Preload("Items").Where("user_id = ?", 1).First(&cart).Error)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("10.00")))
}

func TestAddToCartStorageFailure(t *testing.T) {
	db := setupHandlers(t)

	// A broken store is a server failure, not a missing product
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	c, rec := newJSONContext(t, http.MethodPost, "/api/cart/add",
		`{"product_id":1,"quantity":1}`, 1)
	require.NoError(t, AddToCart(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRemoveFromCartAbsentProduct(t *testing.T) {
	db := setupHandlers(t)

	product := model.Product{Name: "Book", Price: decimal.RequireFromString("10.00")}
	require.NoError(t, db.Create(&product).Error)

	// Removing a known product that is not in the cart is a no-op
	c, rec := newJSONContext(t, http.MethodPost, "/api/cart/remove",
		`{"product_id":1}`, 1)
	require.NoError(t, RemoveFromCart(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddCommentUnknownProduct(t *testing.T) {
	setupHandlers(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/products/comments",
		`{"product_id":42,"content":"nice"}`, 1)
	require.NoError(t, AddComment(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddComment(t *testing.T) {
	db := setupHandlers(t)

	product := model.Product{Name: "Book", Price: decimal.RequireFromString("10.00")}
	require.NoError(t, db.Create(&product).Error)

	c, rec := newJSONContext(t, http.MethodPost, "/api/products/comments",
		`{"product_id":1,"content":"nice"}`, 7)
	require.NoError(t, AddComment(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stored model.Product
	require.NoError(t, db.Preload("Comments").First(&stored, product.ID).Error)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, "nice", stored.Comments[0].Content)
}
