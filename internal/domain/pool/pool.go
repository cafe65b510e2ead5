// internal/domain/pool/pool.go
package pool

import "time"

// Pool is the remaining claimable allotment for one group within one cycle.
// Corresponds to the 'community_pools' table, keyed (cycle_id, group_name).
type Pool struct {
	CycleID         int32
	GroupName       string
	TotalAmount     int
	RemainingAmount int
	LastUpdated     time.Time
}

// HasRemaining reports whether any units are left to claim.
func (p *Pool) HasRemaining() bool {
	return p.RemainingAmount > 0
}

// ClaimRecord is the per-player cumulative claim bookkeeping within a cycle.
// Corresponds to the 'community_distributions' table, keyed
// (cycle_id, player_id, group_name).
type ClaimRecord struct {
	CycleID       int32
	PlayerID      string
	GroupName     string
	ClaimedAmount int
	LastClaimTime time.Time
}
