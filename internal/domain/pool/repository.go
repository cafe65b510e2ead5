// internal/domain/pool/repository.go
package pool

import "context"

// Repository defines the pool ledger operations. Claim is the sole
// admission-control point: it must serialize concurrent callers against the
// same (cycle, group) entry so the sum of successful amounts never exceeds
// the initial remaining.
type Repository interface {
	// CreateOrReset is an idempotent upsert: an existing entry is fully
	// overwritten with total = remaining = totalAmount.
	CreateOrReset(ctx context.Context, cycleID int32, groupName string, totalAmount int) error
	// Claim atomically subtracts amount from the remaining allotment.
	// Returns false (no mutation) when the entry is missing or remaining
	// is insufficient.
	Claim(ctx context.Context, cycleID int32, groupName string, amount int) (bool, error)
	// Get returns the entry or database.ErrPoolNotFound.
	Get(ctx context.Context, cycleID int32, groupName string) (*Pool, error)
	ListByCycle(ctx context.Context, cycleID int32) ([]*Pool, error)
	// ClearForCycle deletes every entry of a torn-down cycle.
	ClearForCycle(ctx context.Context, cycleID int32) error
}

// ClaimRepository defines the per-player claim ledger. It is
// upsert-with-increment only; entries are purged en masse when the owning
// cycle is replaced.
type ClaimRepository interface {
	RecordClaim(ctx context.Context, cycleID int32, playerID, groupName string, amount int) error
	Get(ctx context.Context, cycleID int32, playerID, groupName string) (*ClaimRecord, error)
	ListByPlayer(ctx context.Context, playerID string) ([]*ClaimRecord, error)
	ListByCycleAndGroup(ctx context.Context, cycleID int32, groupName string) ([]*ClaimRecord, error)
	PurgeForCycle(ctx context.Context, cycleID int32) error
}
