// internal/infra/database/schema.go
package database

import (
	"database/sql"
	"fmt"
)

// EnsureSchema creates the three engine tables when missing. Cycles are
// append-only; pools and claims are keyed to their owning cycle and deleted
// on teardown.
func EnsureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS distribution_cycles (
			id SERIAL PRIMARY KEY,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			paused BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_distribution_cycles_active ON distribution_cycles (active)`,
		`CREATE TABLE IF NOT EXISTS community_pools (
			cycle_id INTEGER NOT NULL,
			group_name VARCHAR(255) NOT NULL,
			total_amount INTEGER NOT NULL,
			remaining_amount INTEGER NOT NULL,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (cycle_id, group_name)
		)`,
		`CREATE TABLE IF NOT EXISTS community_distributions (
			cycle_id INTEGER NOT NULL,
			player_id VARCHAR(64) NOT NULL,
			group_name VARCHAR(255) NOT NULL,
			claimed_amount INTEGER NOT NULL DEFAULT 0,
			last_claim_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (cycle_id, player_id, group_name)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
