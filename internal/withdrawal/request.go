package withdrawal

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/api/httpx"
	"github.com/obiora-dev/taskpay/internal/apperr"
	"github.com/obiora-dev/taskpay/internal/db"
	"github.com/obiora-dev/taskpay/internal/wallet"
)

// RequestWithdrawal - seller asks to cash out. No funds move until an admin
// approves and the payout is made; the balance check here is a courtesy so
// obviously-bad requests fail fast.
func RequestWithdrawal(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Amount      int64  `json:"amount"`
		Destination string `json:"destination"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be greater than zero"})
	}
	if req.Destination == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "destination is required"})
	}

	ctx := c.Request().Context()

	w, err := wallet.GetOrCreate(ctx, db.Conn, uid)
	if err != nil {
		return httpx.Error(c, err)
	}
	if w.Balance < req.Amount {
		return httpx.Error(c, apperr.InsufficientFunds("insufficient balance"))
	}

	requestID := uuid.New().String()
	_, err = db.Conn.Exec(ctx,
		`INSERT INTO withdrawal_requests (id, user_id, amount, destination, status)
		 VALUES ($1, $2, $3, $4, 'requested')`,
		requestID, uid, req.Amount, req.Destination,
	)
	if err != nil {
		return httpx.Error(c, apperr.Internal("could not create withdrawal request", err))
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"request_id": requestID,
		"amount":     req.Amount,
		"status":     StatusRequested,
	})
}

// GetMyWithdrawals returns the authenticated user's withdrawal requests,
// newest first.
func GetMyWithdrawals(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT id, user_id, amount, destination, status, denial_reason, payout_tx_id, created_at, decided_at, paid_at
		 FROM withdrawal_requests WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch withdrawal requests"})
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.UserID, &r.Amount, &r.Destination, &r.Status,
			&r.DenialReason, &r.PayoutTxID, &r.CreatedAt, &r.DecidedAt, &r.PaidAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read record"})
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read withdrawal requests"})
	}

	return c.JSON(http.StatusOK, echo.Map{"withdrawals": requests})
}
