package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinereview/core/internal/infrastructure/metrics"
)

// metricsMiddleware records request count and latency per route
func metricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				// the error handler has not written the response yet
				status = he.Code
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			m.RequestsTotal.WithLabelValues(
				c.Request().Method,
				path,
				strconv.Itoa(status),
			).Inc()

			m.RequestDuration.WithLabelValues(
				c.Request().Method,
				path,
			).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// requestIDFromContext returns the request ID assigned by the RequestID middleware
func requestIDFromContext(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
