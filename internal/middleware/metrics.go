package middleware

import (
	"strconv"
	"time"

	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records a counter and a duration histogram per request,
// labelled by method, route pattern and status. The scrape endpoint itself
// is skipped so /metrics traffic does not pollute the series.
func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)

		path := c.Path()
		if path == "/metrics" {
			return err
		}

		method := c.Request().Method
		status := strconv.Itoa(c.Response().Status)
		duration := time.Since(start).Seconds()

		prometheus.HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
		prometheus.HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration)

		return err
	}
}
