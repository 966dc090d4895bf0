package marketplace

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/alerts"
	"github.com/obiora-dev/taskpay/internal/api/httpx"
	"github.com/obiora-dev/taskpay/internal/apperr"
	"github.com/obiora-dev/taskpay/internal/db"
	"github.com/obiora-dev/taskpay/internal/userdir"
)

// CompleteOrder - buyer confirms the delivered work. The status flip, the
// escrow release, the seller credit and the fee are one transaction: if any
// ledger step fails, the order stays delivered.
func CompleteOrder(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
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
	if o.BuyerID != buyerID {
		return httpx.Error(c, apperr.Forbidden("only the buyer may confirm completion"))
	}
	if o.Status != StatusDelivered {
		return httpx.Error(c, apperr.Conflict("order has not been delivered"))
	}

	fee := PlatformFee(o.Amount, FeeBps)

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return httpx.Error(c, apperr.Internal("transaction start failed", err))
	}
	defer tx.Rollback(ctx)

	if err := transitionOrder(ctx, tx, orderID, StatusDelivered, StatusCompleted, "completed_at"); err != nil {
		return httpx.Error(c, err)
	}
	if err := releaseToSeller(ctx, tx, o.BuyerID, o.SellerID, o.Amount, fee, orderID); err != nil {
		return httpx.Error(c, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return httpx.Error(c, apperr.Internal("commit failed", err))
	}

	completedAt := time.Now()

	// Notify seller of the release and hand the completion event to the
	// listing-statistics collaborator (best-effort)
	if email := userdir.Email(ctx, db.Conn, o.SellerID); email != "" {
		_ = alerts.EnqueueEscrowReleased(orderID, o.SellerID, email, o.Amount-fee)
	}
	_ = alerts.EnqueueOrderCompletedStats(alerts.OrderCompletedStatsPayload{
		OrderID:     orderID,
		ListingID:   o.ListingID,
		SellerID:    o.SellerID,
		Amount:      o.Amount,
		CreatedAt:   o.CreatedAt,
		CompletedAt: completedAt,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Order completed successfully",
		"status":        StatusCompleted,
		"seller_credit": o.Amount - fee,
		"platform_fee":  fee,
	})
}
