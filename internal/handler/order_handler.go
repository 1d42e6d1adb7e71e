package handler

import (
	"errors"
	"net/http"
	"strconv"

	"storefront-service/internal/middleware"
	"storefront-service/internal/order"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListOrders returns the caller's orders
func ListOrders(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	list, err := orders.ListByUser(userID)
	if err != nil {
		log.Error("Failed to list orders", zap.Uint("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve orders"})
	}

	prometheus.RecordOrderOperation("list")
	return c.JSON(http.StatusOK, list)
}

// GetOrder returns one of the caller's orders by ID
func GetOrder(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	orderID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	ord, err := orders.GetForUser(orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Order not found"})
		}
		log.Error("Failed to load order", zap.Uint("order_id", orderID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve order"})
	}

	prometheus.RecordOrderOperation("get")
	return c.JSON(http.StatusOK, ord)
}

// CreateOrder persists a cart snapshot from the payload and wraps it in a
// pending order. Validation failure aborts the whole operation.
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var payload order.Payload
	if err := c.Bind(&payload); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	ord, err := orders.Create(userID, payload)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyCart), errors.Is(err, order.ErrInvalidQuantity):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
		}
		log.Error("Failed to create order", zap.Uint("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create order"})
	}

	log.Info("Order created",
		zap.Uint("order_id", ord.ID),
		zap.Uint("user_id", userID),
		zap.String("total", ord.Cart.Total.String()))
	prometheus.RecordOrderOperation("create")
	prometheus.RecordOrderStatus(ord.Status)
	return c.JSON(http.StatusCreated, ord)
}

// UpdateOrder replaces the order's cart contents and/or moves its status
func UpdateOrder(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	orderID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	var req struct {
		Items  []order.Line `json:"items"`
		Status string       `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	ord, err := orders.GetForUser(orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Order not found"})
		}
		log.Error("Failed to load order", zap.Uint("order_id", orderID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve order"})
	}

	var payload *order.Payload
	if req.Items != nil {
		payload = &order.Payload{Items: req.Items}
	}

	if err := orders.Update(ord, payload, req.Status); err != nil {
		switch {
		case errors.Is(err, order.ErrInvalidQuantity), errors.Is(err, order.ErrInvalidStatus):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, order.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
		}
		log.Error("Failed to update order", zap.Uint("order_id", orderID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update order"})
	}

	log.Info("Order updated",
		zap.Uint("order_id", ord.ID),
		zap.String("status", ord.Status))
	prometheus.RecordOrderOperation("update")
	return c.JSON(http.StatusOK, ord)
}

// CompleteOrder moves an order to completed
func CompleteOrder(c echo.Context) error {
	return transitionOrder(c, "complete")
}

// CancelOrder moves an order to cancelled
func CancelOrder(c echo.Context) error {
	return transitionOrder(c, "cancel")
}

func transitionOrder(c echo.Context, op string) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	orderID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	ord, err := orders.GetForUser(orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Order not found"})
		}
		log.Error("Failed to load order", zap.Uint("order_id", orderID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve order"})
	}

	switch op {
	case "complete":
		err = orders.Complete(ord)
	case "cancel":
		err = orders.Cancel(ord)
	}
	if err != nil {
		if errors.Is(err, order.ErrInvalidTransition) {
			log.Warn("Rejected status transition",
				zap.Uint("order_id", ord.ID),
				zap.String("from", ord.Status),
				zap.String("operation", op))
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to transition order", zap.Uint("order_id", ord.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update order"})
	}

	log.Info("Order status changed",
		zap.Uint("order_id", ord.ID),
		zap.String("status", ord.Status))
	prometheus.RecordOrderOperation(op)
	prometheus.RecordOrderStatus(ord.Status)
	return c.JSON(http.StatusOK, echo.Map{"status": "order " + ord.Status})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
