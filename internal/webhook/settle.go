package webhook

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/obiora-dev/taskpay/internal/apperr"
	"github.com/obiora-dev/taskpay/internal/gateway"
	"github.com/obiora-dev/taskpay/internal/metrics"
	"github.com/obiora-dev/taskpay/internal/wallet"
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Result is what a settlement attempt produced. Duplicate means the
// transaction was already terminal and nothing was mutated.
type Result struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Duplicate     bool   `json:"duplicate"`
}

// Settle finalizes the pending transaction matching a verified callback.
//
// The conditional UPDATE on status='pending' is the serialization point:
// exactly one caller wins the flip and applies the ledger movement; everyone
// else observes the terminal row and no-ops. Flip and movement share one
// database transaction, so partial application cannot be committed.
func Settle(ctx context.Context, dbc TxBeginner, gatewayName string, cb gateway.CallbackResult) (Result, error) {
	tx, err := dbc.Begin(ctx)
	if err != nil {
		return Result{}, apperr.Internal("could not start transaction", err)
	}
	defer tx.Rollback(ctx)

	newStatus := wallet.StatusFailed
	if cb.Succeeded {
		newStatus = wallet.StatusSuccess
	}

	var txID, userID, txType, currency string
	var amount int64
	err = tx.QueryRow(ctx,
		`UPDATE transactions SET status = $1, settled_at = NOW()
		 WHERE gateway = $2 AND gateway_tx_id = $3 AND status = 'pending'
		 RETURNING id, user_id, type, amount, currency`,
		newStatus, gatewayName, cb.ExternalID,
	).Scan(&txID, &userID, &txType, &amount, &currency)

	if errors.Is(err, pgx.ErrNoRows) {
		// Already terminal (redelivery) or never ours. Return the stored
		// outcome for the former; reject the latter.
		var storedID, storedStatus string
		err = tx.QueryRow(ctx,
			`SELECT id, status FROM transactions WHERE gateway = $1 AND gateway_tx_id = $2`,
			gatewayName, cb.ExternalID,
		).Scan(&storedID, &storedStatus)
		if errors.Is(err, pgx.ErrNoRows) {
			metrics.SettlementsTotal.WithLabelValues(gatewayName, "unknown").Inc()
			return Result{}, apperr.NotFound("no transaction for gateway reference")
		}
		if err != nil {
			return Result{}, apperr.Internal("could not load transaction", err)
		}
		metrics.SettlementsTotal.WithLabelValues(gatewayName, "duplicate").Inc()
		return Result{TransactionID: storedID, Status: storedStatus, Duplicate: true}, nil
	}
	if err != nil {
		return Result{}, apperr.Internal("could not finalize transaction", err)
	}

	if cb.Succeeded {
		// The callback must agree with what we recorded at charge time;
		// rolling back keeps the row pending for reconciliation.
		if cb.Amount != 0 && cb.Amount != amount {
			return Result{}, apperr.Conflict("callback amount does not match recorded transaction")
		}
		if cb.Currency != "" && cb.Currency != currency {
			return Result{}, apperr.Conflict("callback currency does not match recorded transaction")
		}
		if err := wallet.Apply(ctx, tx, userID, wallet.Movement(txType), amount); err != nil {
			return Result{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, apperr.Internal("could not commit settlement", err)
	}

	outcome := "failed"
	if cb.Succeeded {
		outcome = "settled"
	}
	metrics.SettlementsTotal.WithLabelValues(gatewayName, outcome).Inc()
	return Result{TransactionID: txID, Status: newStatus}, nil
}
