package marketplace

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/alerts"
	"github.com/obiora-dev/taskpay/internal/api/httpx"
	"github.com/obiora-dev/taskpay/internal/apperr"
	"github.com/obiora-dev/taskpay/internal/db"
	"github.com/obiora-dev/taskpay/internal/userdir"
)

// DisputeOrder - buyer contests a delivered order. Escrow is frozen: no
// automatic release, no refund, until an admin resolves.
// POST /marketplace/orders/:id/dispute
func DisputeOrder(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: reason required"})
	}

	ctx := c.Request().Context()

	o, err := fetchOrder(ctx, orderID)
	if err != nil {
		return httpx.Error(c, err)
	}
	if o.BuyerID != buyerID {
		return httpx.Error(c, apperr.Forbidden("only the buyer may open a dispute"))
	}
	if o.Status != StatusDelivered {
		return httpx.Error(c, apperr.Conflict("only delivered orders can be disputed"))
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return httpx.Error(c, apperr.Internal("transaction start failed", err))
	}
	defer tx.Rollback(ctx)

	if err := transitionOrder(ctx, tx, orderID, StatusDelivered, StatusDisputed, ""); err != nil {
		return httpx.Error(c, err)
	}

	disputeID := uuid.New().String()
	if _, err := tx.Exec(ctx,
		`INSERT INTO disputes (id, order_id, filer_id, reason) VALUES ($1, $2, $3, $4)`,
		disputeID, orderID, buyerID, req.Reason,
	); err != nil {
		return httpx.Error(c, apperr.Internal("could not open dispute", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return httpx.Error(c, apperr.Internal("commit failed", err))
	}

	// Notify seller and admins (best-effort)
	if email := userdir.Email(ctx, db.Conn, o.SellerID); email != "" {
		_ = alerts.EnqueueOrderDisputed(orderID, buyerID, o.SellerID, email, req.Reason, o.Amount)
	}
	_ = alerts.EnqueueAdminAlert(buyerID, "info", "New dispute opened: order "+orderID)

	return c.JSON(http.StatusCreated, echo.Map{"dispute_id": disputeID, "status": StatusDisputed})
}

// ResolveDispute - admin settles an open dispute. "refund" returns the
// escrow to the buyer; "release" pays the seller as if the order completed.
// The order itself stays disputed; the money decision is what's recorded.
// POST /admin/disputes/:id/resolve
func ResolveDispute(c echo.Context) error {
	adminID, ok := c.Get("user_id").(string)
	if !ok || adminID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	disputeID := c.Param("id")
	if disputeID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing dispute id in URL"})
	}

	var req struct {
		Resolution string `json:"resolution"`
	}
	if err := c.Bind(&req); err != nil || (req.Resolution != "refund" && req.Resolution != "release") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resolution must be 'refund' or 'release'"})
	}

	ctx := c.Request().Context()

	var orderID, disputeStatus string
	err := db.Conn.QueryRow(ctx,
		`SELECT order_id, status FROM disputes WHERE id = $1`,
		disputeID,
	).Scan(&orderID, &disputeStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return httpx.Error(c, apperr.NotFound("dispute not found"))
	}
	if err != nil {
		return httpx.Error(c, apperr.Internal("failed to fetch dispute", err))
	}
	if disputeStatus != "open" {
		return httpx.Error(c, apperr.Conflict("dispute already resolved"))
	}

	o, err := fetchOrder(ctx, orderID)
	if err != nil {
		return httpx.Error(c, err)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return httpx.Error(c, apperr.Internal("transaction start failed", err))
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE disputes SET status = 'resolved', resolution = $1, resolved_by = $2, resolved_at = NOW()
		 WHERE id = $3 AND status = 'open'`,
		req.Resolution, adminID, disputeID,
	)
	if err != nil {
		return httpx.Error(c, apperr.Internal("could not resolve dispute", err))
	}
	if res.RowsAffected() == 0 {
		return httpx.Error(c, apperr.Conflict("dispute already resolved"))
	}

	if req.Resolution == "refund" {
		err = refundEscrow(ctx, tx, o.BuyerID, o.Amount, orderID)
	} else {
		err = releaseToSeller(ctx, tx, o.BuyerID, o.SellerID, o.Amount, PlatformFee(o.Amount, FeeBps), orderID)
	}
	if err != nil {
		return httpx.Error(c, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return httpx.Error(c, apperr.Internal("commit failed", err))
	}

	// Notify the winning party (best-effort)
	if req.Resolution == "refund" {
		if email := userdir.Email(ctx, db.Conn, o.BuyerID); email != "" {
			_ = alerts.EnqueueEscrowRefunded(orderID, o.BuyerID, email, o.Amount)
		}
	} else {
		fee := PlatformFee(o.Amount, FeeBps)
		if email := userdir.Email(ctx, db.Conn, o.SellerID); email != "" {
			_ = alerts.EnqueueEscrowReleased(orderID, o.SellerID, email, o.Amount-fee)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Dispute resolved",
		"resolution": req.Resolution,
	})
}
