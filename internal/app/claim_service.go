// internal/app/claim_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"community_distribution_bot/internal/domain/cycle"
	"community_distribution_bot/internal/domain/membership"
	"community_distribution_bot/internal/domain/pool"
	idb "community_distribution_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the claim path. These are expected
// refusals, reported to the caller rather than treated as faults.
var ErrCycleNotClaimable = fmt.Errorf("no claimable distribution cycle right now")
var ErrNotGroupMember = fmt.Errorf("player is not a member of this group")
var ErrInsufficientPool = fmt.Errorf("not enough units remaining in the pool")
var ErrInvalidClaimAmount = fmt.Errorf("claim amount must be positive")

// ClaimRequest is either an exact amount or everything the pool has left.
// Resolution to a concrete amount happens before the pool ledger is touched.
type ClaimRequest struct {
	all    bool
	amount int
}

func ExactClaim(amount int) ClaimRequest { return ClaimRequest{amount: amount} }
func ClaimAll() ClaimRequest             { return ClaimRequest{all: true} }

// ClaimResult reports a successful claim. Remaining is a post-claim read
// for display and may lag behind concurrent claims.
type ClaimResult struct {
	CycleID      int32
	ActualAmount int
	Remaining    int
}

// ClaimService is the boundary consumed by the claim-fulfillment path.
type ClaimService interface {
	IsCycleActiveAndUnpaused(ctx context.Context) (bool, error)
	PoolStatus(ctx context.Context, groupName string) (*pool.Pool, error)
	Claim(ctx context.Context, playerID, groupName string, req ClaimRequest) (*ClaimResult, error)
	PlayerClaims(ctx context.Context, playerID string) ([]*pool.ClaimRecord, error)
}

// ClaimServiceImpl implements the ClaimService interface.
type ClaimServiceImpl struct {
	cycleRepo cycle.Repository
	poolRepo  pool.Repository
	claimRepo pool.ClaimRepository
	directory membership.Directory
	logger    *logrus.Entry
	now       func() time.Time
}

func NewClaimService(
	cr cycle.Repository,
	pr pool.Repository,
	clr pool.ClaimRepository,
	dir membership.Directory,
	logger *logrus.Entry,
) *ClaimServiceImpl {
	return &ClaimServiceImpl{
		cycleRepo: cr,
		poolRepo:  pr,
		claimRepo: clr,
		directory: dir,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ClaimServiceImpl) IsCycleActiveAndUnpaused(ctx context.Context) (bool, error) {
	active, err := s.cycleRepo.GetActive(ctx)
	if err != nil {
		if err == idb.ErrCycleNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to load active cycle: %w", err)
	}
	return active.IsClaimable(s.now()), nil
}

func (s *ClaimServiceImpl) PoolStatus(ctx context.Context, groupName string) (*pool.Pool, error) {
	active, err := s.cycleRepo.GetActive(ctx)
	if err != nil {
		if err == idb.ErrCycleNotFound {
			return nil, ErrCycleNotClaimable
		}
		return nil, fmt.Errorf("failed to load active cycle: %w", err)
	}
	p, err := s.poolRepo.Get(ctx, active.ID, groupName)
	if err != nil {
		if err == idb.ErrPoolNotFound {
			return nil, idb.ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to load pool for group %s: %w", groupName, err)
	}
	return p, nil
}

// Claim admits a player's claim against the group pool. Cycle validity is
// re-checked here, immediately before the pool mutation, so a reconciliation
// tick racing this request cannot let a claim through a torn-down cycle
// window checked earlier in the request.
func (s *ClaimServiceImpl) Claim(ctx context.Context, playerID, groupName string, req ClaimRequest) (*ClaimResult, error) {
	if !req.all && req.amount <= 0 {
		return nil, ErrInvalidClaimAmount
	}

	groups, err := s.directory.PlayerGroups(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player groups: %w", err)
	}
	if !containsGroup(groups, groupName) {
		return nil, ErrNotGroupMember
	}

	active, err := s.cycleRepo.GetActive(ctx)
	if err != nil {
		if err == idb.ErrCycleNotFound {
			return nil, ErrCycleNotClaimable
		}
		return nil, fmt.Errorf("failed to load active cycle: %w", err)
	}
	if !active.IsClaimable(s.now()) {
		return nil, ErrCycleNotClaimable
	}

	amount := req.amount
	if req.all {
		p, err := s.poolRepo.Get(ctx, active.ID, groupName)
		if err != nil {
			if err == idb.ErrPoolNotFound {
				return nil, ErrInsufficientPool
			}
			return nil, fmt.Errorf("failed to load pool for group %s: %w", groupName, err)
		}
		amount = p.RemainingAmount
		if amount <= 0 {
			return nil, ErrInsufficientPool
		}
	}

	claimed, err := s.poolRepo.Claim(ctx, active.ID, groupName, amount)
	if err != nil {
		// The transaction outcome is ambiguous; the caller must not retry
		// blindly, so this surfaces as a fault rather than a refusal.
		return nil, fmt.Errorf("pool claim failed for group %s: %w", groupName, err)
	}
	if !claimed {
		return nil, ErrInsufficientPool
	}

	// The units have left the pool; a ledger failure from here on is logged
	// but never rolls the claim back.
	if err := s.claimRepo.RecordClaim(ctx, active.ID, playerID, groupName, amount); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"cycle_id": active.ID,
			"player":   playerID,
			"group":    groupName,
			"amount":   amount,
		}).Warn("Pool decremented but claim ledger write failed.")
	}

	result := &ClaimResult{CycleID: active.ID, ActualAmount: amount}
	if p, err := s.poolRepo.Get(ctx, active.ID, groupName); err == nil {
		result.Remaining = p.RemainingAmount
	}

	s.logger.WithFields(logrus.Fields{
		"cycle_id": active.ID,
		"player":   playerID,
		"group":    groupName,
		"amount":   amount,
	}).Info("Claim accepted.")
	return result, nil
}

func (s *ClaimServiceImpl) PlayerClaims(ctx context.Context, playerID string) ([]*pool.ClaimRecord, error) {
	records, err := s.claimRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims for player %s: %w", playerID, err)
	}
	return records, nil
}

func containsGroup(groups []string, groupName string) bool {
	for _, g := range groups {
		if g == groupName {
			return true
		}
	}
	return false
}
