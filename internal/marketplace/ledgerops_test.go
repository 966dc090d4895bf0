package marketplace

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

const (
	selectWalletForUpdate = `SELECT id, balance, escrow, status FROM wallets WHERE user_id = $1 FOR UPDATE`
	updateWallet          = `UPDATE wallets SET balance = $1, escrow = $2 WHERE id = $3`
	insertLedgerRow       = `INSERT INTO transactions`
)

// expectWalletEnsure declares the get-or-create statements issued before a
// user's first movement in a unit. created reports whether the upsert inserts
// a fresh row.
func expectWalletEnsure(mock pgxmock.PgxPoolIface, userID, walletID string, balance, escrow int64, created bool) {
	inserted := int64(0)
	if created {
		inserted = 1
	}
	mock.ExpectExec(`INSERT INTO wallets`).
		WithArgs(pgxmock.AnyArg(), userID).
		WillReturnResult(pgxmock.NewResult("INSERT", inserted))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, currency, balance, escrow, status, created_at`)).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "currency", "balance", "escrow", "status", "created_at"}).
			AddRow(walletID, userID, "NGN", balance, escrow, "active", time.Now()))
}

// expectMovement declares the three statements one ledger movement issues:
// lock the wallet, write the new numbers, record the movement row.
func expectMovement(mock pgxmock.PgxPoolIface, userID, walletID string, balance, escrow, newBalance, newEscrow int64, mvType string, amount int64, orderID string) {
	mock.ExpectQuery(regexp.QuoteMeta(selectWalletForUpdate)).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "balance", "escrow", "status"}).
			AddRow(walletID, balance, escrow, "active"))
	mock.ExpectExec(regexp.QuoteMeta(updateWallet)).
		WithArgs(newBalance, newEscrow, walletID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(insertLedgerRow).
		WithArgs(pgxmock.AnyArg(), userID, mvType, amount, orderID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestHoldEscrow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Buyer at 100 accepts a 50 order: 50 spendable, 50 held.
	expectWalletEnsure(mock, "buyer-1", "wal-b", 100, 0, false)
	expectMovement(mock, "buyer-1", "wal-b", 100, 0, 50, 50, "escrow_hold", 50, "order-1")

	require.NoError(t, holdEscrow(context.Background(), mock, "buyer-1", 50, "order-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseToSeller(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Completing a 50 order at a 10% fee: the buyer's hold burns, the
	// seller is credited 50 and charged a 5 fee, netting 45.
	expectMovement(mock, "buyer-1", "wal-b", 50, 50, 50, 0, "escrow_release", 50, "order-1")
	expectWalletEnsure(mock, "seller-1", "wal-s", 0, 0, false)
	expectMovement(mock, "seller-1", "wal-s", 0, 0, 50, 0, "deposit", 50, "order-1")
	expectMovement(mock, "seller-1", "wal-s", 50, 0, 45, 0, "fee", 5, "order-1")

	require.NoError(t, releaseToSeller(context.Background(), mock, "buyer-1", "seller-1", 50, 5, "order-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseToSellerFirstReferenceCreatesWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// A seller who never touched their wallet gets one inside the unit;
	// the completion credit succeeds instead of aborting on a missing row.
	expectMovement(mock, "buyer-1", "wal-b", 0, 50, 0, 0, "escrow_release", 50, "order-1")
	expectWalletEnsure(mock, "seller-new", "wal-n", 0, 0, true)
	expectMovement(mock, "seller-new", "wal-n", 0, 0, 50, 0, "deposit", 50, "order-1")
	expectMovement(mock, "seller-new", "wal-n", 50, 0, 45, 0, "fee", 5, "order-1")

	require.NoError(t, releaseToSeller(context.Background(), mock, "buyer-1", "seller-new", 50, 5, "order-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseToSellerZeroFee(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectMovement(mock, "buyer-1", "wal-b", 0, 20, 0, 0, "escrow_release", 20, "order-2")
	expectWalletEnsure(mock, "seller-1", "wal-s", 10, 0, false)
	expectMovement(mock, "seller-1", "wal-s", 10, 0, 30, 0, "deposit", 20, "order-2")

	require.NoError(t, releaseToSeller(context.Background(), mock, "buyer-1", "seller-1", 20, 0, "order-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundEscrow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Cancelling an accepted 50 order restores the buyer to 100 spendable.
	expectMovement(mock, "buyer-1", "wal-b", 50, 50, 50, 0, "escrow_release", 50, "order-1")
	expectMovement(mock, "buyer-1", "wal-b", 50, 0, 100, 0, "refund", 50, "order-1")

	require.NoError(t, refundEscrow(context.Background(), mock, "buyer-1", 50, "order-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
