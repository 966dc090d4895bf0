// Package httpx holds the shared response helpers so handlers map domain
// errors to HTTP statuses in exactly one place.
package httpx

import (
	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/apperr"
)

// Error writes a domain error as JSON with the status its kind maps to.
func Error(c echo.Context, err error) error {
	return c.JSON(apperr.Status(err), echo.Map{"error": apperr.Public(err)})
}
