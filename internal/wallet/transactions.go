package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/db"
)

// GetUserTransactions returns the authenticated user's ledger history, newest
// first.
func GetUserTransactions(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT id, user_id, type, amount, currency, gateway, gateway_tx_id, status, reference, created_at, settled_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		uid,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Currency,
			&t.Gateway, &t.GatewayTxID, &t.Status, &t.Reference, &t.CreatedAt, &t.SettledAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read transaction record"})
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}
