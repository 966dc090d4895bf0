package marketplace

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/alerts"
	"github.com/obiora-dev/taskpay/internal/api/httpx"
	"github.com/obiora-dev/taskpay/internal/apperr"
	"github.com/obiora-dev/taskpay/internal/db"
	"github.com/obiora-dev/taskpay/internal/metrics"
	"github.com/obiora-dev/taskpay/internal/userdir"
)

// FeeBps is the platform's cut on completed orders, set from config in main.
var FeeBps int64

// fetchOrder loads the columns every transition handler needs.
func fetchOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := db.Conn.QueryRow(ctx,
		`SELECT id, listing_id, buyer_id, seller_id, amount, status, created_at
		 FROM orders WHERE id = $1`,
		orderID,
	).Scan(&o.ID, &o.ListingID, &o.BuyerID, &o.SellerID, &o.Amount, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return Order{}, apperr.Internal("failed to fetch order", err)
	}
	return o, nil
}

// transitionOrder flips the order's status with a guarded UPDATE. Zero rows
// means someone else got there first; the caller's transaction rolls back.
func transitionOrder(ctx context.Context, tx pgx.Tx, orderID string, from, to Status, stampColumn string) error {
	sql := `UPDATE orders SET status = $1, updated_at = NOW()`
	if stampColumn != "" {
		sql += `, ` + stampColumn + ` = NOW()`
	}
	sql += ` WHERE id = $2 AND status = $3`

	res, err := tx.Exec(ctx, sql, string(to), orderID, string(from))
	if err != nil {
		return apperr.Internal("failed to update order status", err)
	}
	if res.RowsAffected() == 0 {
		return apperr.Conflict("order is no longer " + string(from))
	}
	metrics.OrderTransitionsTotal.WithLabelValues(string(to)).Inc()
	return nil
}

// CreateOrder - buyer places an order against a listing. No funds move until
// the seller accepts.
func CreateOrder(c echo.Context) error {
	buyerID, ok := c.Get("user_id").(string)
	if !ok || buyerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		ListingID string `json:"listing_id"`
	}
	if err := c.Bind(&req); err != nil || req.ListingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing_id"})
	}

	ctx := c.Request().Context()

	var sellerID, listingStatus string
	var price int64
	err := db.Conn.QueryRow(ctx,
		`SELECT seller_id, price, status FROM listings WHERE id = $1`,
		req.ListingID,
	).Scan(&sellerID, &price, &listingStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return httpx.Error(c, apperr.NotFound("listing not found"))
	}
	if err != nil {
		return httpx.Error(c, apperr.Internal("failed to fetch listing", err))
	}
	if listingStatus != "active" {
		return httpx.Error(c, apperr.Conflict("listing is not open for orders"))
	}
	if sellerID == buyerID {
		return httpx.Error(c, apperr.Validation("you cannot order your own listing"))
	}

	orderID := uuid.New().String()
	_, err = db.Conn.Exec(ctx,
		`INSERT INTO orders (id, listing_id, buyer_id, seller_id, amount, status)
		 VALUES ($1, $2, $3, $4, $5, 'created')`,
		orderID, req.ListingID, buyerID, sellerID, price,
	)
	if err != nil {
		return httpx.Error(c, apperr.Internal("failed to create order", err))
	}
	metrics.OrderTransitionsTotal.WithLabelValues(string(StatusCreated)).Inc()

	return c.JSON(http.StatusCreated, echo.Map{
		"order_id": orderID,
		"amount":   price,
		"status":   StatusCreated,
	})
}

// AcceptOrder - the assigned seller accepts; the buyer's funds move into
// escrow in the same transaction as the status flip.
func AcceptOrder(c echo.Context) error {
	sellerID, ok := c.Get("user_id").(string)
	if !ok || sellerID == "" {
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
	if o.SellerID != sellerID {
		return httpx.Error(c, apperr.Forbidden("only the assigned seller may accept"))
	}
	if o.Status != StatusCreated {
		return httpx.Error(c, apperr.Conflict("order is not awaiting acceptance"))
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return httpx.Error(c, apperr.Internal("transaction start failed", err))
	}
	defer tx.Rollback(ctx)

	if err := transitionOrder(ctx, tx, orderID, StatusCreated, StatusAccepted, "accepted_at"); err != nil {
		return httpx.Error(c, err)
	}
	if err := holdEscrow(ctx, tx, o.BuyerID, o.Amount, orderID); err != nil {
		return httpx.Error(c, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return httpx.Error(c, apperr.Internal("commit failed", err))
	}

	// Notify buyer of the escrow hold (best-effort)
	if email := userdir.Email(ctx, db.Conn, o.BuyerID); email != "" {
		_ = alerts.EnqueueEscrowHeld(orderID, o.BuyerID, email, o.Amount)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Order accepted and escrowed", "status": StatusAccepted})
}

// DeliverOrder - seller marks work delivered. Pure status transition, no
// ledger effect.
func DeliverOrder(c echo.Context) error {
	sellerID, ok := c.Get("user_id").(string)
	if !ok || sellerID == "" {
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
	if o.SellerID != sellerID {
		return httpx.Error(c, apperr.Forbidden("only the assigned seller may deliver"))
	}
	if o.Status != StatusAccepted {
		return httpx.Error(c, apperr.Conflict("order is not in progress"))
	}

	res, err := db.Conn.Exec(ctx,
		`UPDATE orders SET status = 'delivered', delivered_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'accepted'`,
		orderID,
	)
	if err != nil {
		return httpx.Error(c, apperr.Internal("failed to update order status", err))
	}
	if res.RowsAffected() == 0 {
		return httpx.Error(c, apperr.Conflict("order is no longer in progress"))
	}
	metrics.OrderTransitionsTotal.WithLabelValues(string(StatusDelivered)).Inc()

	// Notify buyer of delivery (best-effort)
	if email := userdir.Email(ctx, db.Conn, o.BuyerID); email != "" {
		_ = alerts.EnqueueOrderDelivered(orderID, o.BuyerID, sellerID, email, o.Amount)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Order delivered", "status": StatusDelivered})
}

// GetUserOrders - fetch all orders for a user (as buyer or seller).
func GetUserOrders(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT id, listing_id, buyer_id, seller_id, amount, status, created_at
		 FROM orders WHERE buyer_id = $1 OR seller_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch orders"})
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.ListingID, &o.BuyerID, &o.SellerID, &o.Amount, &o.Status, &o.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read orders"})
	}

	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}
