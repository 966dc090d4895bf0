package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/alerts"
	"github.com/obiora-dev/taskpay/internal/api/httpx"
	"github.com/obiora-dev/taskpay/internal/apperr"
	"github.com/obiora-dev/taskpay/internal/db"
	"github.com/obiora-dev/taskpay/internal/userdir"
)

// CancelOrder - either party backs out before delivery. Allowed from created
// and accepted only; a held escrow is refunded in the same transaction.
func CancelOrder(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	ctx := c.Request().Context()

	o, err := fetchOrder(ctx, orderID)
	if err != nil {
		return httpx.Error(c, err)
	}
	if uid != o.BuyerID && uid != o.SellerID {
		return httpx.Error(c, apperr.Forbidden("not a participant in this order"))
	}
	if o.Status != StatusCreated && o.Status != StatusAccepted {
		return httpx.Error(c, apperr.Conflict("order cannot be cancelled at this stage"))
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return httpx.Error(c, apperr.Internal("transaction start failed", err))
	}
	defer tx.Rollback(ctx)

	if err := transitionOrder(ctx, tx, orderID, o.Status, StatusCancelled, "cancelled_at"); err != nil {
		return httpx.Error(c, err)
	}
	if o.Status == StatusAccepted {
		if err := refundEscrow(ctx, tx, o.BuyerID, o.Amount, orderID); err != nil {
			return httpx.Error(c, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return httpx.Error(c, apperr.Internal("commit failed", err))
	}

	// Notify the counterparty (best-effort)
	other := o.BuyerID
	if uid == o.BuyerID {
		other = o.SellerID
	}
	if email := userdir.Email(ctx, db.Conn, other); email != "" {
		_ = alerts.EnqueueOrderCancelled(orderID, o.BuyerID, o.SellerID, email, o.Amount)
	}
	if o.Status == StatusAccepted {
		if email := userdir.Email(ctx, db.Conn, o.BuyerID); email != "" {
			_ = alerts.EnqueueEscrowRefunded(orderID, o.BuyerID, email, o.Amount)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Order cancelled", "status": StatusCancelled})
}
