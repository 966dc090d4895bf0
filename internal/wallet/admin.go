package wallet

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/db"
)

// AdminGetAllTransactions returns all transactions for admin monitoring.
func AdminGetAllTransactions(c echo.Context) error {
	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT id, user_id, type, amount, currency, gateway, gateway_tx_id, status, reference, created_at, settled_at
		 FROM transactions
		 ORDER BY created_at DESC`,
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

// AdminListStuckTransactions returns gateway transactions still pending after
// the given age (minutes, default 60). Feeds the external reconciliation
// sweep; nothing here mutates state.
func AdminListStuckTransactions(c echo.Context) error {
	minutes := 60
	if v := c.QueryParam("older_than_minutes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minutes = n
		}
	}
	cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)

	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT id, user_id, type, amount, currency, gateway, gateway_tx_id, status, reference, created_at, settled_at
		 FROM transactions
		 WHERE status = 'pending' AND gateway IS NOT NULL AND created_at < $1
		 ORDER BY created_at ASC`,
		cutoff,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch pending transactions"})
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

	return c.JSON(http.StatusOK, echo.Map{
		"older_than_minutes": minutes,
		"pending":            txs,
	})
}
