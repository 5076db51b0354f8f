package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Balances are NUMERIC so they never overflow or lose precision, and every
// balance column carries a non-negativity CHECK as the last line of defense
// under concurrent writers.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS player_state (
		user_id      BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		coins        NUMERIC NOT NULL DEFAULT 0 CHECK (coins >= 0),
		last_tick_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		resource_type TEXT NOT NULL,
		amount        NUMERIC NOT NULL DEFAULT 0 CHECK (amount >= 0),
		PRIMARY KEY (user_id, resource_type)
	)`,
	`CREATE TABLE IF NOT EXISTS buildings (
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		building_type TEXT NOT NULL,
		level         INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
		is_producing  BOOLEAN NOT NULL DEFAULT false,
		ready_at      TIMESTAMPTZ,
		producing_qty NUMERIC CHECK (producing_qty IS NULL OR producing_qty > 0),
		PRIMARY KEY (user_id, building_type)
	)`,
	`CREATE TABLE IF NOT EXISTS market_listings (
		id             BIGSERIAL PRIMARY KEY,
		seller_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		buyer_id       BIGINT REFERENCES users(id),
		resource_type  TEXT NOT NULL,
		quantity       NUMERIC NOT NULL CHECK (quantity > 0),
		price_per_unit NUMERIC NOT NULL CHECK (price_per_unit > 0),
		fee_percent    INTEGER NOT NULL CHECK (fee_percent BETWEEN 0 AND 100),
		status         TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'sold', 'expired', 'cancelled')),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at     TIMESTAMPTZ NOT NULL,
		sold_at        TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_active
		ON market_listings (resource_type, price_per_unit)
		WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS idx_listings_seller_active
		ON market_listings (seller_id)
		WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS idx_listings_due
		ON market_listings (expires_at)
		WHERE status = 'active'`,
}

// EnsureSchema applies the schema idempotently at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
