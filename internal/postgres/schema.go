package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url   TEXT NOT NULL DEFAULT '',
		sort_order  INT  NOT NULL DEFAULT 0,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		slug          TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		price         BIGINT NOT NULL CHECK (price >= 0),
		compare_price BIGINT NOT NULL DEFAULT 0,
		sku           TEXT NOT NULL DEFAULT '',
		weight_grams  BIGINT NOT NULL DEFAULT 0 CHECK (weight_grams >= 0),
		image_url     TEXT NOT NULL DEFAULT '',
		category_id   TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL DEFAULT '',
		stock         INT NOT NULL CHECK (stock >= 0),
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		is_featured   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		idempotency_key   TEXT UNIQUE,
		status            TEXT NOT NULL,
		payment_method    TEXT NOT NULL,
		payment_status    TEXT NOT NULL,
		payment_reference TEXT NOT NULL DEFAULT '',
		shipping_method   TEXT NOT NULL,
		customer          JSONB NOT NULL,
		subtotal          BIGINT NOT NULL,
		shipping_cost     BIGINT NOT NULL,
		processing_fee    BIGINT NOT NULL,
		tax_amount        BIGINT NOT NULL,
		discount_amount   BIGINT NOT NULL,
		total_amount      BIGINT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id          TEXT NOT NULL REFERENCES orders(id),
		line_no           INT NOT NULL,
		product_id        TEXT NOT NULL,
		name              TEXT NOT NULL,
		quantity          INT NOT NULL CHECK (quantity > 0),
		price_at_purchase BIGINT NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
