package withdrawal

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
	"github.com/obiora-dev/taskpay/internal/gateway"
	"github.com/obiora-dev/taskpay/internal/userdir"
	"github.com/obiora-dev/taskpay/internal/wallet"
)

// Gateways is the provider registry, set once from main.
var Gateways *gateway.Registry

func fetchRequest(ctx context.Context, requestID string) (Request, error) {
	var r Request
	err := db.Conn.QueryRow(ctx,
		`SELECT id, user_id, amount, destination, status, denial_reason, payout_tx_id, created_at, decided_at, paid_at
		 FROM withdrawal_requests WHERE id = $1`,
		requestID,
	).Scan(&r.ID, &r.UserID, &r.Amount, &r.Destination, &r.Status,
		&r.DenialReason, &r.PayoutTxID, &r.CreatedAt, &r.DecidedAt, &r.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, apperr.NotFound("withdrawal request not found")
	}
	if err != nil {
		return Request{}, apperr.Internal("could not fetch withdrawal request", err)
	}
	return r, nil
}

// ListPending returns all requests awaiting a decision.
func ListPending(c echo.Context) error {
	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT id, user_id, amount, destination, status, denial_reason, payout_tx_id, created_at, decided_at, paid_at
		 FROM withdrawal_requests WHERE status IN ('requested','approved','paying') ORDER BY created_at ASC`)
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

// Approve - admin approves a request. Validates the seller can cover it but
// moves no funds; the debit happens at mark-paid so approval stays cheap to
// retry and nothing is half-reserved.
func Approve(c echo.Context) error {
	adminID, ok := c.Get("user_id").(string)
	if !ok || adminID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID := c.Param("id")

	ctx := c.Request().Context()

	r, err := fetchRequest(ctx, requestID)
	if err != nil {
		return httpx.Error(c, err)
	}
	if r.Status != StatusRequested {
		return httpx.Error(c, apperr.Conflict("request is not awaiting a decision"))
	}

	w, err := wallet.GetOrCreate(ctx, db.Conn, r.UserID)
	if err != nil {
		return httpx.Error(c, err)
	}
	if w.Balance < r.Amount {
		return httpx.Error(c, apperr.InsufficientFunds("seller balance does not cover the request"))
	}

	res, err := db.Conn.Exec(ctx,
		`UPDATE withdrawal_requests SET status = 'approved', decided_by = $1, decided_at = NOW()
		 WHERE id = $2 AND status = 'requested'`,
		adminID, requestID,
	)
	if err != nil {
		return httpx.Error(c, apperr.Internal("could not approve request", err))
	}
	if res.RowsAffected() == 0 {
		return httpx.Error(c, apperr.Conflict("request is not awaiting a decision"))
	}

	if email := userdir.Email(ctx, db.Conn, r.UserID); email != "" {
		_ = alerts.EnqueueWithdrawalDecision(requestID, r.UserID, email, StatusApproved, "", r.Amount)
	}

	return c.JSON(http.StatusOK, echo.Map{"request_id": requestID, "status": StatusApproved})
}

// Deny - admin denies a request with a mandatory reason. No ledger effect.
func Deny(c echo.Context) error {
	adminID, ok := c.Get("user_id").(string)
	if !ok || adminID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID := c.Param("id")

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a denial reason is required"})
	}

	ctx := c.Request().Context()

	r, err := fetchRequest(ctx, requestID)
	if err != nil {
		return httpx.Error(c, err)
	}
	if r.Status != StatusRequested {
		return httpx.Error(c, apperr.Conflict("request is not awaiting a decision"))
	}

	res, err := db.Conn.Exec(ctx,
		`UPDATE withdrawal_requests SET status = 'denied', denial_reason = $1, decided_by = $2, decided_at = NOW()
		 WHERE id = $3 AND status = 'requested'`,
		req.Reason, adminID, requestID,
	)
	if err != nil {
		return httpx.Error(c, apperr.Internal("could not deny request", err))
	}
	if res.RowsAffected() == 0 {
		return httpx.Error(c, apperr.Conflict("request is not awaiting a decision"))
	}

	if email := userdir.Email(ctx, db.Conn, r.UserID); email != "" {
		_ = alerts.EnqueueWithdrawalDecision(requestID, r.UserID, email, StatusDenied, req.Reason, r.Amount)
	}

	return c.JSON(http.StatusOK, echo.Map{"request_id": requestID, "status": StatusDenied})
}

// MarkPaid - admin settles an approved request. The request is claimed with
// a conditional flip to paying before the gateway is called, so two
// concurrent settlements cannot both create an external payout. The payout
// itself happens outside the ledger unit, never while holding the wallet
// lock; a failed payout releases the claim for an admin retry.
func MarkPaid(c echo.Context) error {
	adminID, ok := c.Get("user_id").(string)
	if !ok || adminID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID := c.Param("id")

	var req struct {
		Gateway string `json:"gateway"`
	}
	if err := c.Bind(&req); err != nil || req.Gateway == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "gateway is required"})
	}

	ctx := c.Request().Context()

	r, err := fetchRequest(ctx, requestID)
	if err != nil {
		return httpx.Error(c, err)
	}
	if r.Status != StatusApproved {
		return httpx.Error(c, apperr.Conflict("request is not approved"))
	}

	provider, err := Gateways.Resolve(req.Gateway)
	if err != nil {
		return httpx.Error(c, apperr.NotFound("unknown gateway"))
	}

	w, err := wallet.GetOrCreate(ctx, db.Conn, r.UserID)
	if err != nil {
		return httpx.Error(c, err)
	}

	if err := claimForPayout(ctx, db.Conn, requestID); err != nil {
		return httpx.Error(c, err)
	}

	payout, err := provider.CreatePayout(ctx, r.Amount, w.Currency, r.Destination)
	if err != nil {
		releaseClaim(ctx, db.Conn, requestID)
		return httpx.Error(c, apperr.Gateway("payout failed; request remains approved", err))
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return httpx.Error(c, apperr.Internal("transaction start failed", err))
	}
	defer tx.Rollback(ctx)

	payoutTxID, err := settlePayout(ctx, tx, r, provider.Name(), payout.ExternalID)
	if err != nil {
		// Money already left the gateway; the claim is NOT released, or a
		// retry would pay out twice. The request stays paying until ops
		// reconciles it against the gateway transfer.
		_ = alerts.EnqueueAdminAlert("system", "critical",
			"withdrawal "+requestID+" paid at gateway but ledger settlement failed: "+apperr.Public(err))
		return httpx.Error(c, err)
	}
	if err := tx.Commit(ctx); err != nil {
		_ = alerts.EnqueueAdminAlert("system", "critical",
			"withdrawal "+requestID+" paid at gateway but ledger settlement failed: commit error")
		return httpx.Error(c, apperr.Internal("commit failed", err))
	}

	if email := userdir.Email(ctx, db.Conn, r.UserID); email != "" {
		_ = alerts.EnqueueWithdrawalDecision(requestID, r.UserID, email, StatusPaid, "", r.Amount)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"request_id":   requestID,
		"payout_tx_id": payoutTxID,
		"status":       StatusPaid,
	})
}

// claimForPayout flips the request to paying before any gateway call.
// Exactly one caller wins the flip; a lost claim means another settlement of
// the same request is already in flight.
func claimForPayout(ctx context.Context, q wallet.DBTX, requestID string) error {
	res, err := q.Exec(ctx,
		`UPDATE withdrawal_requests SET status = 'paying' WHERE id = $1 AND status = 'approved'`,
		requestID,
	)
	if err != nil {
		return apperr.Internal("could not claim request", err)
	}
	if res.RowsAffected() == 0 {
		return apperr.Conflict("request is not approved")
	}
	return nil
}

// releaseClaim reverts a claimed request after a failed gateway payout.
// Best-effort; a stuck paying row surfaces in the pending list.
func releaseClaim(ctx context.Context, q wallet.DBTX, requestID string) {
	_, _ = q.Exec(ctx,
		`UPDATE withdrawal_requests SET status = 'approved' WHERE id = $1 AND status = 'paying'`,
		requestID,
	)
}

// settlePayout debits the seller, records the payout transaction and flips
// the request to paid, all inside the caller's transaction.
func settlePayout(ctx context.Context, q wallet.DBTX, r Request, gatewayName, externalID string) (string, error) {
	if err := wallet.Apply(ctx, q, r.UserID, wallet.MovementPayout, r.Amount); err != nil {
		return "", err
	}

	payoutTxID := uuid.New().String()
	_, err := q.Exec(ctx,
		`INSERT INTO transactions (id, user_id, type, amount, gateway, gateway_tx_id, status, reference, settled_at)
		 VALUES ($1, $2, 'payout', $3, $4, $5, 'success', $6, NOW())`,
		payoutTxID, r.UserID, r.Amount, gatewayName, externalID, r.ID,
	)
	if err != nil {
		return "", apperr.Internal("could not record payout transaction", err)
	}

	res, err := q.Exec(ctx,
		`UPDATE withdrawal_requests SET status = 'paid', payout_tx_id = $1, paid_at = NOW()
		 WHERE id = $2 AND status = 'paying'`,
		payoutTxID, r.ID,
	)
	if err != nil {
		return "", apperr.Internal("could not mark request paid", err)
	}
	if res.RowsAffected() == 0 {
		return "", apperr.Conflict("request is no longer claimed for payout")
	}
	return payoutTxID, nil
}
