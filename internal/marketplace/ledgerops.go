package marketplace

import (
	"context"

	"github.com/obiora-dev/taskpay/internal/wallet"
)

// Ledger units bound to order transitions. Each runs inside the caller's
// transaction so the order status flip and the money movement commit or roll
// back together.

// holdEscrow moves the order amount from the buyer's balance into escrow.
// The wallet is created on first reference, so a buyer who never deposited
// fails on funds, not on a missing row.
func holdEscrow(ctx context.Context, q wallet.DBTX, buyerID string, amount int64, orderID string) error {
	if _, err := wallet.GetOrCreate(ctx, q, buyerID); err != nil {
		return err
	}
	_, err := wallet.ApplyAndRecord(ctx, q, buyerID, wallet.MovementEscrowHold, amount, orderID)
	return err
}

// refundEscrow returns held funds to the buyer's spendable balance: the
// escrow_release row burns the hold, the refund row restores the balance.
func refundEscrow(ctx context.Context, q wallet.DBTX, buyerID string, amount int64, orderID string) error {
	if _, err := wallet.ApplyAndRecord(ctx, q, buyerID, wallet.MovementEscrowRelease, amount, orderID); err != nil {
		return err
	}
	_, err := wallet.ApplyAndRecord(ctx, q, buyerID, wallet.MovementRefund, amount, orderID)
	return err
}

// releaseToSeller settles a completed order: the buyer's escrow is released,
// the seller is credited the full amount and then debited the platform fee,
// leaving amount-fee net. The fee row is the platform's cut in the ledger.
func releaseToSeller(ctx context.Context, q wallet.DBTX, buyerID, sellerID string, amount, fee int64, orderID string) error {
	if _, err := wallet.ApplyAndRecord(ctx, q, buyerID, wallet.MovementEscrowRelease, amount, orderID); err != nil {
		return err
	}
	// A new seller's first credit may also be their first wallet reference.
	if _, err := wallet.GetOrCreate(ctx, q, sellerID); err != nil {
		return err
	}
	if _, err := wallet.ApplyAndRecord(ctx, q, sellerID, wallet.MovementDeposit, amount, orderID); err != nil {
		return err
	}
	if fee > 0 {
		if _, err := wallet.ApplyAndRecord(ctx, q, sellerID, wallet.MovementFee, fee, orderID); err != nil {
			return err
		}
	}
	return nil
}
