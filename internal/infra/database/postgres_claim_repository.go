// internal/infra/database/postgres_claim_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"community_distribution_bot/internal/domain/pool"
)

// Custom errors specific to claim repository
var ErrClaimRecordNotFound = fmt.Errorf("claim record not found")

type PostgresClaimRepository struct {
	db *sql.DB
}

func NewPostgresClaimRepository(db *sql.DB) *PostgresClaimRepository {
	return &PostgresClaimRepository{db: db}
}

// RecordClaim increments the player's cumulative claimed amount for the
// cycle and group, inserting the record on first claim.
func (r *PostgresClaimRepository) RecordClaim(ctx context.Context, cycleID int32, playerID, groupName string, amount int) error {
	query := `INSERT INTO community_distributions (cycle_id, player_id, group_name, claimed_amount, last_claim_time)
               VALUES ($1, $2, $3, $4, NOW())
               ON CONFLICT (cycle_id, player_id, group_name)
               DO UPDATE SET claimed_amount = community_distributions.claimed_amount + EXCLUDED.claimed_amount,
                             last_claim_time = NOW()`
	if _, err := r.db.ExecContext(ctx, query, cycleID, playerID, groupName, amount); err != nil {
		return fmt.Errorf("error recording claim: %w", err)
	}
	return nil
}

func (r *PostgresClaimRepository) Get(ctx context.Context, cycleID int32, playerID, groupName string) (*pool.ClaimRecord, error) {
	query := `SELECT cycle_id, player_id, group_name, claimed_amount, last_claim_time
               FROM community_distributions
               WHERE cycle_id = $1 AND player_id = $2 AND group_name = $3`
	rec := pool.ClaimRecord{}
	err := r.db.QueryRowContext(ctx, query, cycleID, playerID, groupName).Scan(
		&rec.CycleID, &rec.PlayerID, &rec.GroupName, &rec.ClaimedAmount, &rec.LastClaimTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrClaimRecordNotFound
		}
		return nil, fmt.Errorf("error getting claim record: %w", err)
	}
	return &rec, nil
}

// Helper to scan multiple rows
func scanClaimRecords(rows *sql.Rows) ([]*pool.ClaimRecord, error) {
	records := make([]*pool.ClaimRecord, 0)
	for rows.Next() {
		rec := pool.ClaimRecord{}
		if err := rows.Scan(&rec.CycleID, &rec.PlayerID, &rec.GroupName, &rec.ClaimedAmount, &rec.LastClaimTime); err != nil {
			return nil, fmt.Errorf("error scanning claim record row: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claim record rows: %w", err)
	}
	return records, nil
}

func (r *PostgresClaimRepository) ListByPlayer(ctx context.Context, playerID string) ([]*pool.ClaimRecord, error) {
	query := `SELECT cycle_id, player_id, group_name, claimed_amount, last_claim_time
               FROM community_distributions WHERE player_id = $1 ORDER BY last_claim_time DESC`
	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("error listing claim records by player: %w", err)
	}
	defer rows.Close()
	return scanClaimRecords(rows)
}

func (r *PostgresClaimRepository) ListByCycleAndGroup(ctx context.Context, cycleID int32, groupName string) ([]*pool.ClaimRecord, error) {
	query := `SELECT cycle_id, player_id, group_name, claimed_amount, last_claim_time
               FROM community_distributions
               WHERE cycle_id = $1 AND group_name = $2 ORDER BY last_claim_time DESC`
	rows, err := r.db.QueryContext(ctx, query, cycleID, groupName)
	if err != nil {
		return nil, fmt.Errorf("error listing claim records by cycle and group: %w", err)
	}
	defer rows.Close()
	return scanClaimRecords(rows)
}

func (r *PostgresClaimRepository) PurgeForCycle(ctx context.Context, cycleID int32) error {
	query := `DELETE FROM community_distributions WHERE cycle_id = $1`
	if _, err := r.db.ExecContext(ctx, query, cycleID); err != nil {
		return fmt.Errorf("error purging claim records for cycle: %w", err)
	}
	return nil
}
