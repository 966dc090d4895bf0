package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/obiora-dev/taskpay/internal/apperr"
	"github.com/obiora-dev/taskpay/internal/metrics"
)

// Movement is a ledger movement type. Each movement applies a fixed delta to
// balance and escrow; there is no other way to change wallet numbers.
type Movement string

const (
	MovementDeposit       Movement = "deposit"
	MovementEscrowHold    Movement = "escrow_hold"
	MovementEscrowRelease Movement = "escrow_release"
	MovementFee           Movement = "fee"
	MovementRefund        Movement = "refund"
	MovementPayout        Movement = "payout"
)

// Deltas returns the signed multipliers (balance, escrow) for a movement.
func (m Movement) Deltas() (balance, escrow int64, err error) {
	switch m {
	case MovementDeposit, MovementRefund:
		return 1, 0, nil
	case MovementEscrowHold:
		return -1, 1, nil
	case MovementEscrowRelease:
		return 0, -1, nil
	case MovementFee, MovementPayout:
		return -1, 0, nil
	default:
		return 0, 0, fmt.Errorf("unknown movement type %q", m)
	}
}

// GetOrCreate returns the user's wallet, creating it on first reference.
// The unique constraint on user_id plus ON CONFLICT DO NOTHING collapses
// concurrent first accesses to a single row.
func GetOrCreate(ctx context.Context, q DBTX, userID string) (Wallet, error) {
	_, err := q.Exec(ctx,
		`INSERT INTO wallets (id, user_id) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.New().String(), userID,
	)
	if err != nil {
		return Wallet{}, apperr.Internal("could not create wallet", err)
	}

	var w Wallet
	err = q.QueryRow(ctx,
		`SELECT id, user_id, currency, balance, escrow, status, created_at
		 FROM wallets WHERE user_id = $1`,
		userID,
	).Scan(&w.ID, &w.UserID, &w.Currency, &w.Balance, &w.Escrow, &w.Status, &w.CreatedAt)
	if err != nil {
		return Wallet{}, apperr.Internal("could not load wallet", err)
	}
	return w, nil
}

// Apply is the sole mutator of wallet numbers. It locks the wallet row,
// validates the movement pre-commit and writes the new balances. Callers must
// run it inside a transaction together with the ledger row that records the
// movement; nothing here commits.
func Apply(ctx context.Context, q DBTX, userID string, mv Movement, amount int64) error {
	if amount <= 0 {
		return apperr.Validation("amount must be greater than zero")
	}
	balSign, escSign, err := mv.Deltas()
	if err != nil {
		return apperr.Internal("invalid movement", err)
	}

	var walletID, status string
	var balance, escrow int64
	err = q.QueryRow(ctx,
		`SELECT id, balance, escrow, status FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&walletID, &balance, &escrow, &status)
	if err != nil {
		return apperr.NotFound("wallet not found")
	}
	if status != "active" {
		return apperr.Forbidden("wallet suspended")
	}

	newBalance := balance + balSign*amount
	newEscrow := escrow + escSign*amount
	if newBalance < 0 {
		return apperr.InsufficientFunds("insufficient balance")
	}
	if newEscrow < 0 {
		return apperr.InsufficientFunds("insufficient escrow")
	}

	_, err = q.Exec(ctx,
		`UPDATE wallets SET balance = $1, escrow = $2 WHERE id = $3`,
		newBalance, newEscrow, walletID,
	)
	if err != nil {
		return apperr.Internal("could not update wallet", err)
	}

	metrics.MovementsTotal.WithLabelValues(string(mv)).Inc()
	return nil
}

// ApplyAndRecord applies a movement and writes its success ledger row in the
// same unit. Used by order and withdrawal flows where no pending gateway
// transaction exists; webhook settlement instead flips its own pending row
// and calls Apply directly.
func ApplyAndRecord(ctx context.Context, q DBTX, userID string, mv Movement, amount int64, reference string) (string, error) {
	if err := Apply(ctx, q, userID, mv, amount); err != nil {
		return "", err
	}

	txID := uuid.New().String()
	_, err := q.Exec(ctx,
		`INSERT INTO transactions (id, user_id, type, amount, status, reference, settled_at)
		 VALUES ($1, $2, $3, $4, 'success', $5, NOW())`,
		txID, userID, string(mv), amount, reference,
	)
	if err != nil {
		return "", apperr.Internal("could not record transaction", err)
	}
	return txID, nil
}
