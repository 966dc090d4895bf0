package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/api/httpx"
	"github.com/obiora-dev/taskpay/internal/db"
)

// Balance returns the authenticated user's wallet, creating it lazily on
// first reference.
func Balance(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	w, err := GetOrCreate(c.Request().Context(), db.Conn, uid)
	if err != nil {
		return httpx.Error(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  w.UserID,
		"currency": w.Currency,
		"balance":  w.Balance,
		"escrow":   w.Escrow,
		"status":   w.Status,
	})
}
