package handler

import (
	"errors"
	"net/http"

	"storefront-service/internal/cart"
	"storefront-service/internal/middleware"
	"storefront-service/internal/model"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CartItemRequest carries a product reference for cart mutations
type CartItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// AddToCart adds a product to the caller's cart, creating the cart on first
// use. An unknown product leaves the cart untouched and returns 404.
func AddToCart(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req CartItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	var product model.Product
	if result := database.GetDB().First(&product, req.ProductID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Warn("Product not found", zap.Uint("product_id", req.ProductID))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
		}
		log.Error("Failed to load product",
			zap.Uint("product_id", req.ProductID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load product"})
	}

	userCart, err := carts.GetOrCreateCart(userID)
	if err != nil {
		log.Error("Failed to resolve cart", zap.Uint("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to resolve cart"})
	}

	if err := carts.AddProduct(userCart, &product, req.Quantity); err != nil {
		if errors.Is(err, cart.ErrInvalidQuantity) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to add product to cart",
			zap.Uint("cart_id", userCart.ID),
			zap.Uint("product_id", product.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add product"})
	}

	log.Info("Product added to cart",
		zap.Uint("cart_id", userCart.ID),
		zap.Uint("product_id", product.ID),
		zap.Int("quantity", req.Quantity))
	prometheus.RecordCartOperation("add_product")
	return c.JSON(http.StatusOK, echo.Map{"status": "product added", "total": userCart.Total})
}

// RemoveFromCart removes a product from the caller's cart. Removing a product
// that is not in the cart succeeds without changing anything.
func RemoveFromCart(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req CartItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	var product model.Product
	if result := database.GetDB().First(&product, req.ProductID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Warn("Product not found", zap.Uint("product_id", req.ProductID))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
		}
		log.Error("Failed to load product",
			zap.Uint("product_id", req.ProductID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load product"})
	}

	userCart, err := carts.GetOrCreateCart(userID)
	if err != nil {
		log.Error("Failed to resolve cart", zap.Uint("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to resolve cart"})
	}

	if err := carts.RemoveProduct(userCart, &product); err != nil {
		log.Error("Failed to remove product from cart",
			zap.Uint("cart_id", userCart.ID),
			zap.Uint("product_id", product.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to remove product"})
	}

	log.Info("Product removed from cart",
		zap.Uint("cart_id", userCart.ID),
		zap.Uint("product_id", product.ID))
	prometheus.RecordCartOperation("remove_product")
	return c.JSON(http.StatusOK, echo.Map{"status": "product removed", "total": userCart.Total})
}

// GetCart returns the caller's cart with its items
func GetCart(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	userCart, err := carts.GetOrCreateCart(userID)
	if err != nil {
		log.Error("Failed to resolve cart", zap.Uint("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to resolve cart"})
	}

	full, err := carts.GetCart(userCart.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Cart not found"})
		}
		log.Error("Failed to load cart", zap.Uint("cart_id", userCart.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load cart"})
	}

	prometheus.RecordCartOperation("get")
	return c.JSON(http.StatusOK, full)
}

// GetCartTotal recomputes and returns the caller's cart total
func GetCartTotal(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	userCart, err := carts.GetOrCreateCart(userID)
	if err != nil {
		log.Error("Failed to resolve cart", zap.Uint("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to resolve cart"})
	}

	if err := carts.CalculateTotal(userCart); err != nil {
		log.Error("Failed to calculate total", zap.Uint("cart_id", userCart.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to calculate total"})
	}

	prometheus.RecordCartOperation("calculate_total")
	return c.JSON(http.StatusOK, echo.Map{"total": userCart.Total})
}
