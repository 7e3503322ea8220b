package storage

import (
	"context"
	"fmt"

	"digifeeds/internal/domain"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS items (
		barcode VARCHAR(256) PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		hathifiles_timestamp TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS statuses (
		id SERIAL PRIMARY KEY,
		name VARCHAR(256) NOT NULL UNIQUE,
		description VARCHAR(499) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS item_statuses (
		id SERIAL PRIMARY KEY,
		item_barcode VARCHAR(256) NOT NULL REFERENCES items(barcode) ON DELETE CASCADE,
		status_id INT NOT NULL REFERENCES statuses(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_item_statuses_barcode ON item_statuses(item_barcode)`,
}

// Migrate creates the schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// LoadStatuses seeds the status catalog. Rows that already exist are left
// untouched, so re-running is harmless.
func (s *PostgresStore) LoadStatuses(ctx context.Context) error {
	for _, st := range domain.StatusCatalog {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO statuses (name, description)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, string(st.Name), st.Description)
		if err != nil {
			return fmt.Errorf("load status %s: %w", st.Name, err)
		}
	}
	return nil
}
