package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"storefront-service/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProductsFilterByTag(t *testing.T) {
	db := setupHandlers(t)

	summer := model.Tag{Name: "summer"}
	sale := model.Tag{Name: "sale"}
	require.NoError(t, db.Create(&summer).Error)
	require.NoError(t, db.Create(&sale).Error)

	require.NoError(t, db.Create(&model.Product{
		Name:  "Sandals",
		Price: decimal.RequireFromString("15.00"),
		Tags:  []model.Tag{summer},
	}).Error)
	require.NoError(t, db.Create(&model.Product{
		Name:  "Boots",
		Price: decimal.RequireFromString("80.00"),
		Tags:  []model.Tag{sale},
	}).Error)
	require.NoError(t, db.Create(&model.Product{
		Name:  "Socks",
		Price: decimal.RequireFromString("4.00"),
	}).Error)

	c, rec := newJSONContext(t, http.MethodGet, "/api/products?tag=summer", "", 0)
	require.NoError(t, ListProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Sandals", got[0].Name)

	// An unknown tag matches nothing
	c, rec = newJSONContext(t, http.MethodGet, "/api/products?tag=winter", "", 0)
	require.NoError(t, ListProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got)
}

func TestListProductsFilterByCategory(t *testing.T) {
	db := setupHandlers(t)

	require.NoError(t, db.Create(&model.Product{
		Name:     "Lamp",
		Category: model.CategorySale,
		Price:    decimal.RequireFromString("25.00"),
	}).Error)
	require.NoError(t, db.Create(&model.Product{
		Name:     "Desk",
		Category: model.CategoryNew,
		Price:    decimal.RequireFromString("120.00"),
	}).Error)

	c, rec := newJSONContext(t, http.MethodGet, "/api/products?category=sale", "", 0)
	require.NoError(t, ListProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Lamp", got[0].Name)
}
