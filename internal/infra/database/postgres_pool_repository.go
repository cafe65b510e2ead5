// internal/infra/database/postgres_pool_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"community_distribution_bot/internal/domain/pool"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors specific to pool repository
var ErrPoolNotFound = fmt.Errorf("community pool not found")

type PostgresPoolRepository struct {
	db *sql.DB
}

func NewPostgresPoolRepository(db *sql.DB) *PostgresPoolRepository {
	return &PostgresPoolRepository{db: db}
}

func (r *PostgresPoolRepository) CreateOrReset(ctx context.Context, cycleID int32, groupName string, totalAmount int) error {
	query := `INSERT INTO community_pools (cycle_id, group_name, total_amount, remaining_amount, last_updated)
               VALUES ($1, $2, $3, $3, NOW())
               ON CONFLICT (cycle_id, group_name)
               DO UPDATE SET total_amount = EXCLUDED.total_amount,
                             remaining_amount = EXCLUDED.remaining_amount,
                             last_updated = NOW()`
	if _, err := r.db.ExecContext(ctx, query, cycleID, groupName, totalAmount); err != nil {
		return fmt.Errorf("error creating or resetting community pool: %w", err)
	}
	return nil
}

// Claim subtracts amount from the remaining allotment inside a single
// transaction: the row is read with FOR UPDATE so concurrent claimants
// against the same (cycle, group) serialize, then checked and decremented.
// A false return guarantees the transaction was rolled back with no
// mutation.
func (r *PostgresPoolRepository) Claim(ctx context.Context, cycleID int32, groupName string, amount int) (bool, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction for pool claim: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	var remaining int
	query := `SELECT remaining_amount FROM community_pools
               WHERE cycle_id = $1 AND group_name = $2 FOR UPDATE`
	err = txn.QueryRowContext(ctx, query, cycleID, groupName).Scan(&remaining)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error locking community pool for claim: %w", err)
	}

	if remaining < amount {
		return false, nil
	}

	update := `UPDATE community_pools
               SET remaining_amount = remaining_amount - $1, last_updated = NOW()
               WHERE cycle_id = $2 AND group_name = $3`
	if _, err := txn.ExecContext(ctx, update, amount, cycleID, groupName); err != nil {
		return false, fmt.Errorf("error decrementing community pool: %w", err)
	}

	if err := txn.Commit(); err != nil {
		return false, fmt.Errorf("error committing pool claim: %w", err)
	}
	return true, nil
}

func (r *PostgresPoolRepository) Get(ctx context.Context, cycleID int32, groupName string) (*pool.Pool, error) {
	query := `SELECT cycle_id, group_name, total_amount, remaining_amount, last_updated
               FROM community_pools WHERE cycle_id = $1 AND group_name = $2`
	p := pool.Pool{}
	err := r.db.QueryRowContext(ctx, query, cycleID, groupName).Scan(
		&p.CycleID, &p.GroupName, &p.TotalAmount, &p.RemainingAmount, &p.LastUpdated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("error getting community pool: %w", err)
	}
	return &p, nil
}

func (r *PostgresPoolRepository) ListByCycle(ctx context.Context, cycleID int32) ([]*pool.Pool, error) {
	query := `SELECT cycle_id, group_name, total_amount, remaining_amount, last_updated
               FROM community_pools WHERE cycle_id = $1 ORDER BY group_name`
	rows, err := r.db.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("error listing community pools by cycle: %w", err)
	}
	defer rows.Close()

	pools := make([]*pool.Pool, 0)
	for rows.Next() {
		p := pool.Pool{}
		if err := rows.Scan(&p.CycleID, &p.GroupName, &p.TotalAmount, &p.RemainingAmount, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("error scanning community pool row: %w", err)
		}
		pools = append(pools, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating community pool rows: %w", err)
	}
	return pools, nil
}

func (r *PostgresPoolRepository) ClearForCycle(ctx context.Context, cycleID int32) error {
	query := `DELETE FROM community_pools WHERE cycle_id = $1`
	if _, err := r.db.ExecContext(ctx, query, cycleID); err != nil {
		return fmt.Errorf("error clearing community pools for cycle: %w", err)
	}
	return nil
}
