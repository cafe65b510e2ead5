// internal/infra/database/postgres_cycle_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"community_distribution_bot/internal/domain/cycle"
)

// Custom errors specific to cycle repository
var ErrCycleNotFound = fmt.Errorf("distribution cycle not found")

type PostgresCycleRepository struct {
	db *sql.DB
}

func NewPostgresCycleRepository(db *sql.DB) *PostgresCycleRepository {
	return &PostgresCycleRepository{db: db}
}

func (r *PostgresCycleRepository) Create(ctx context.Context, c *cycle.Cycle) error {
	query := `INSERT INTO distribution_cycles (start_time, end_time, active, paused)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, c.StartTime, c.EndTime, c.Active, c.Paused).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating distribution cycle: %w", err)
	}
	return nil
}

func (r *PostgresCycleRepository) GetByID(ctx context.Context, id int32) (*cycle.Cycle, error) {
	query := `SELECT id, start_time, end_time, active, paused, created_at
               FROM distribution_cycles WHERE id = $1`
	c := cycle.Cycle{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.StartTime, &c.EndTime, &c.Active, &c.Paused, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error getting distribution cycle by ID: %w", err)
	}
	return &c, nil
}

func (r *PostgresCycleRepository) GetActive(ctx context.Context) (*cycle.Cycle, error) {
	query := `SELECT id, start_time, end_time, active, paused, created_at
               FROM distribution_cycles WHERE active = TRUE ORDER BY id DESC LIMIT 1`
	c := cycle.Cycle{}
	err := r.db.QueryRowContext(ctx, query).Scan(&c.ID, &c.StartTime, &c.EndTime, &c.Active, &c.Paused, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error getting active distribution cycle: %w", err)
	}
	return &c, nil
}

func (r *PostgresCycleRepository) DeactivateAll(ctx context.Context) error {
	query := `UPDATE distribution_cycles SET active = FALSE WHERE active = TRUE`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error deactivating distribution cycles: %w", err)
	}
	return nil
}

func (r *PostgresCycleRepository) SetPaused(ctx context.Context, id int32, paused bool) error {
	query := `UPDATE distribution_cycles SET paused = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, paused, id)
	if err != nil {
		return fmt.Errorf("error updating cycle paused flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected for paused update: %w", err)
	}
	if affected == 0 {
		return ErrCycleNotFound
	}
	return nil
}

func (r *PostgresCycleRepository) UpdateWindow(ctx context.Context, id int32, start, end time.Time) error {
	query := `UPDATE distribution_cycles SET start_time = $1, end_time = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, start, end, id)
	if err != nil {
		return fmt.Errorf("error updating cycle window: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected for window update: %w", err)
	}
	if affected == 0 {
		return ErrCycleNotFound
	}
	return nil
}

func (r *PostgresCycleRepository) ListRecent(ctx context.Context, limit int) ([]*cycle.Cycle, error) {
	query := `SELECT id, start_time, end_time, active, paused, created_at
               FROM distribution_cycles ORDER BY id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing recent distribution cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]*cycle.Cycle, 0)
	for rows.Next() {
		c := cycle.Cycle{}
		if err := rows.Scan(&c.ID, &c.StartTime, &c.EndTime, &c.Active, &c.Paused, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning distribution cycle row: %w", err)
		}
		cycles = append(cycles, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution cycle rows: %w", err)
	}
	return cycles, nil
}
