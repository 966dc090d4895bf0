package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema exists.
func Init(databaseURL string) {
	var err error
	Conn, err = pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureSchema()
}

// ensureSchema applies the idempotent DDL the handlers depend on. Statements
// are safe to re-run on every boot.
func ensureSchema() {
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL DEFAULT 'buyer' CHECK (role IN ('buyer','seller','admin')),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS listings (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			seller_id UUID NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			description TEXT,
			price BIGINT NOT NULL CHECK (price > 0),
			currency TEXT NOT NULL DEFAULT 'NGN',
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','paused','removed')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// balance and escrow are minor units; both must stay non-negative.
		`CREATE TABLE IF NOT EXISTS wallets (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL UNIQUE REFERENCES users(id),
			currency TEXT NOT NULL DEFAULT 'NGN',
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			escrow BIGINT NOT NULL DEFAULT 0 CHECK (escrow >= 0),
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','suspended')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id),
			type TEXT NOT NULL CHECK (type IN ('deposit','escrow_hold','escrow_release','fee','refund','payout')),
			amount BIGINT NOT NULL CHECK (amount > 0),
			currency TEXT NOT NULL DEFAULT 'NGN',
			gateway TEXT,
			gateway_tx_id TEXT,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','success','failed')),
			reference TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			settled_at TIMESTAMPTZ
		)`,

		// Settlement idempotency key: one row per external gateway event.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_gateway_tx
			ON transactions (gateway, gateway_tx_id)
			WHERE gateway IS NOT NULL AND gateway_tx_id IS NOT NULL`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_user_created
			ON transactions (user_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			listing_id UUID NOT NULL REFERENCES listings(id),
			buyer_id UUID NOT NULL REFERENCES users(id),
			seller_id UUID NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL CHECK (amount > 0),
			status TEXT NOT NULL DEFAULT 'created' CHECK (status IN (
				'created','accepted','delivered','completed','disputed','cancelled'
			)),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			accepted_at TIMESTAMPTZ,
			delivered_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			cancelled_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders (buyer_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders (seller_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS disputes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			order_id UUID NOT NULL REFERENCES orders(id),
			filer_id UUID NOT NULL REFERENCES users(id),
			reason TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','resolved')),
			resolution TEXT CHECK (resolution IN ('refund','release')),
			resolved_by UUID REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL CHECK (amount > 0),
			destination TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'requested' CHECK (status IN ('requested','approved','paying','denied','paid')),
			denial_reason TEXT,
			payout_tx_id UUID REFERENCES transactions(id),
			decided_by UUID REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			decided_at TIMESTAMPTZ,
			paid_at TIMESTAMPTZ
		)`,

		`CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawal_requests (status, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := Conn.Exec(ctx, stmt); err != nil {
			log.Fatalf("schema ensure failed: %v", err)
		}
	}
}
