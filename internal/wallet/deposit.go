package wallet

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/api/httpx"
	"github.com/obiora-dev/taskpay/internal/apperr"
	"github.com/obiora-dev/taskpay/internal/db"
	"github.com/obiora-dev/taskpay/internal/gateway"
)

// Gateways is the provider registry, set once from main before the server
// starts.
var Gateways *gateway.Registry

type DepositRequest struct {
	Amount  int64  `json:"amount"`
	Gateway string `json:"gateway"`
}

// DepositInit creates a charge with the chosen gateway and records the
// pending transaction the webhook will later settle. The ledger is not
// touched here; balances only move on a verified callback.
func DepositInit(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req DepositRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be greater than zero"})
	}

	provider, err := Gateways.Resolve(req.Gateway)
	if err != nil {
		return httpx.Error(c, apperr.NotFound("unknown gateway"))
	}

	ctx := c.Request().Context()

	w, err := GetOrCreate(ctx, db.Conn, uid)
	if err != nil {
		return httpx.Error(c, err)
	}

	charge, err := provider.CreateCharge(ctx, req.Amount, w.Currency)
	if err != nil {
		return httpx.Error(c, apperr.Gateway("could not create charge", err))
	}

	// The pending row is the settlement idempotency anchor: the webhook
	// correlates on (gateway, gateway_tx_id) and flips it exactly once.
	txID := uuid.New().String()
	_, err = db.Conn.Exec(ctx,
		`INSERT INTO transactions (id, user_id, type, amount, currency, gateway, gateway_tx_id, status)
		 VALUES ($1, $2, 'deposit', $3, $4, $5, $6, 'pending')`,
		txID, uid, req.Amount, w.Currency, provider.Name(), charge.ExternalID,
	)
	if err != nil {
		return httpx.Error(c, apperr.Internal("could not record pending deposit", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transaction_id": txID,
		"external_id":    charge.ExternalID,
		"client_handle":  charge.ClientHandle,
		"status":         StatusPending,
	})
}
