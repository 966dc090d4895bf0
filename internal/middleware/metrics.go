package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/metrics"
)

// Metrics counts every request by route template, method and status.
func Metrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		metrics.RequestsTotal.WithLabelValues(c.Path(), c.Request().Method, strconv.Itoa(status)).Inc()
		return err
	}
}
