// internal/domain/cycle/cycle.go
package cycle

import "time"

// Cycle represents a single distribution window.
// Corresponds to the 'distribution_cycles' table.
type Cycle struct {
	ID        int32 // SERIAL in DB
	StartTime time.Time
	EndTime   time.Time
	Active    bool
	Paused    bool
	CreatedAt time.Time
}

// State classifies an active cycle against a point in time.
type State string

const (
	StateFuture  State = "FUTURE"
	StateActive  State = "ACTIVE"
	StatePaused  State = "PAUSED"
	StateExpired State = "EXPIRED"
)

// Classify returns exactly one state for an active record at the given time.
// Pausing suspends claim eligibility regardless of the time window.
// Only records with Active = true are classifiable; historical (inactive)
// records must not be passed here.
func Classify(now time.Time, c *Cycle) State {
	if c.Paused {
		return StatePaused
	}
	if now.Before(c.StartTime) {
		return StateFuture
	}
	if now.Before(c.EndTime) {
		return StateActive
	}
	return StateExpired
}

// IsClaimable reports whether the cycle currently permits claims.
func (c *Cycle) IsClaimable(now time.Time) bool {
	return c.Active && Classify(now, c) == StateActive
}

// Kind labels how a cycle was created, for notification display.
type Kind string

const (
	KindNatural   Kind = "NATURAL"
	KindImmediate Kind = "IMMEDIATE"
	KindScheduled Kind = "SCHEDULED"
)
