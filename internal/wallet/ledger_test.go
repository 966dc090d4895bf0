package wallet

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obiora-dev/taskpay/internal/apperr"
)

func TestMovementDeltas(t *testing.T) {
	cases := []struct {
		mv      Movement
		balance int64
		escrow  int64
	}{
		{MovementDeposit, 1, 0},
		{MovementEscrowHold, -1, 1},
		{MovementEscrowRelease, 0, -1},
		{MovementFee, -1, 0},
		{MovementRefund, 1, 0},
		{MovementPayout, -1, 0},
	}
	for _, tc := range cases {
		t.Run(string(tc.mv), func(t *testing.T) {
			bal, esc, err := tc.mv.Deltas()
			require.NoError(t, err)
			assert.Equal(t, tc.balance, bal)
			assert.Equal(t, tc.escrow, esc)
		})
	}

	t.Run("unknown movement", func(t *testing.T) {
		_, _, err := Movement("transfer").Deltas()
		require.Error(t, err)
	})
}

const (
	selectWalletForUpdate = `SELECT id, balance, escrow, status FROM wallets WHERE user_id = $1 FOR UPDATE`
	updateWallet          = `UPDATE wallets SET balance = $1, escrow = $2 WHERE id = $3`
)

func walletRow(balance, escrow int64, status string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "balance", "escrow", "status"}).
		AddRow("wal-1", balance, escrow, status)
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("deposit credits balance", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta(selectWalletForUpdate)).
			WithArgs("user-1").
			WillReturnRows(walletRow(100, 0, "active"))
		mock.ExpectExec(regexp.QuoteMeta(updateWallet)).
			WithArgs(int64(120), int64(0), "wal-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, Apply(ctx, mock, "user-1", MovementDeposit, 20))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("escrow hold moves balance into escrow", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta(selectWalletForUpdate)).
			WithArgs("buyer-1").
			WillReturnRows(walletRow(100, 0, "active"))
		mock.ExpectExec(regexp.QuoteMeta(updateWallet)).
			WithArgs(int64(50), int64(50), "wal-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, Apply(ctx, mock, "buyer-1", MovementEscrowHold, 50))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance rejected before any write", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta(selectWalletForUpdate)).
			WithArgs("user-1").
			WillReturnRows(walletRow(150, 0, "active"))

		err = Apply(ctx, mock, "user-1", MovementPayout, 200)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInsufficientFunds))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("escrow cannot go negative", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta(selectWalletForUpdate)).
			WithArgs("buyer-1").
			WillReturnRows(walletRow(100, 30, "active"))

		err = Apply(ctx, mock, "buyer-1", MovementEscrowRelease, 50)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInsufficientFunds))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("suspended wallet refused", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta(selectWalletForUpdate)).
			WithArgs("user-1").
			WillReturnRows(walletRow(100, 0, "suspended"))

		err = Apply(ctx, mock, "user-1", MovementDeposit, 20)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		err = Apply(ctx, mock, "user-1", MovementDeposit, 0)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestApplyAndRecord(t *testing.T) {
	ctx := context.Background()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectWalletForUpdate)).
		WithArgs("seller-1").
		WillReturnRows(walletRow(0, 0, "active"))
	mock.ExpectExec(regexp.QuoteMeta(updateWallet)).
		WithArgs(int64(45), int64(0), "wal-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WithArgs(pgxmock.AnyArg(), "seller-1", "deposit", int64(45), "order-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	txID, err := ApplyAndRecord(ctx, mock, "seller-1", MovementDeposit, 45, "order-1")
	require.NoError(t, err)
	assert.NotEmpty(t, txID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wallets`)).
		WithArgs(pgxmock.AnyArg(), "user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, currency, balance, escrow, status, created_at`)).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "currency", "balance", "escrow", "status", "created_at"}).
			AddRow("wal-1", "user-1", "NGN", int64(0), int64(0), "active", time.Now()))

	w, err := GetOrCreate(ctx, mock, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "wal-1", w.ID)
	assert.Equal(t, int64(0), w.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}
