// internal/domain/cycle/repository.go
package cycle

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving Cycle records.
// Historical cycles are never deleted; only the flags and, under manual
// override, the window timestamps are mutated in place.
type Repository interface {
	Create(ctx context.Context, c *Cycle) error
	GetByID(ctx context.Context, id int32) (*Cycle, error)
	// GetActive returns the single cycle with active = TRUE,
	// or database.ErrCycleNotFound when none exists.
	GetActive(ctx context.Context) (*Cycle, error)
	// DeactivateAll flips every active cycle to inactive.
	DeactivateAll(ctx context.Context) error
	SetPaused(ctx context.Context, id int32, paused bool) error
	UpdateWindow(ctx context.Context, id int32, start, end time.Time) error
	ListRecent(ctx context.Context, limit int) ([]*Cycle, error)
}
