package handler

import (
	"errors"
	"net/http"

	"storefront-service/internal/middleware"
	"storefront-service/internal/model"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddComment attaches a new comment to a product. Comments are append-only;
// there is no edit or uniqueness rule.
func AddComment(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		ProductID uint   `json:"product_id"`
		Content   string `json:"content"`
	}

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

	comment := model.Comment{UserID: &userID, Content: req.Content}
	if result := database.GetDB().Create(&comment); result.Error != nil {
		log.Error("Failed to create comment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add comment"})
	}

	if err := database.GetDB().Model(&product).Association("Comments").Append(&comment); err != nil {
		log.Error("Failed to attach comment",
			zap.Uint("product_id", product.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add comment"})
	}

	log.Info("Comment added",
		zap.Uint("product_id", product.ID),
		zap.Uint("user_id", userID))
	prometheus.CommentCounter.Inc()
	return c.JSON(http.StatusOK, echo.Map{"status": "comment added"})
}
