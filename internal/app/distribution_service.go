// internal/app/distribution_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"community_distribution_bot/internal/domain/cycle"
	"community_distribution_bot/internal/domain/membership"
	"community_distribution_bot/internal/domain/notifier"
	"community_distribution_bot/internal/domain/pool"
	idb "community_distribution_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for cycle transitions
var ErrNoActiveCycle = fmt.Errorf("no active distribution cycle")
var ErrCycleAlreadyPaused = fmt.Errorf("distribution cycle is already paused")
var ErrCycleNotPaused = fmt.Errorf("distribution cycle is not paused")

// CycleStatus pairs the active cycle with its classification at read time.
type CycleStatus struct {
	Cycle *cycle.Cycle
	State cycle.State
}

// DistributionService owns the cycle lifecycle: the periodic reconciliation
// tick and every manual transition. It is the only writer of cycle records.
type DistributionService interface {
	// Reconcile checks the active cycle against the wall clock and performs
	// at most one transition. A tick that finds a still-valid cycle writes
	// nothing.
	Reconcile(ctx context.Context) error
	// StartCycle manually replaces any current cycle. A nil at starts
	// immediately; otherwise the cycle is scheduled for the given future time.
	StartCycle(ctx context.Context, at *time.Time) (*cycle.Cycle, error)
	EndCycle(ctx context.Context) error
	PauseCycle(ctx context.Context) (*cycle.Cycle, error)
	ResumeCycle(ctx context.Context) (*cycle.Cycle, error)
	// AdvanceCycle shifts the active window one repeat interval earlier;
	// DelayCycle shifts it one interval later.
	AdvanceCycle(ctx context.Context) (*cycle.Cycle, error)
	DelayCycle(ctx context.Context) (*cycle.Cycle, error)
	Status(ctx context.Context) (*CycleStatus, error)
	Pools(ctx context.Context) ([]*pool.Pool, error)
}

// DistributionServiceImpl implements the DistributionService interface.
type DistributionServiceImpl struct {
	cycleRepo cycle.Repository
	poolRepo  pool.Repository
	claimRepo pool.ClaimRepository
	directory membership.Directory
	notifier  notifier.Notifier
	schedule  cycle.Schedule
	allotment pool.AllotmentPolicy
	logger    *logrus.Entry
	now       func() time.Time
}

func NewDistributionService(
	cr cycle.Repository,
	pr pool.Repository,
	clr pool.ClaimRepository,
	dir membership.Directory,
	n notifier.Notifier,
	schedule cycle.Schedule,
	allotment pool.AllotmentPolicy,
	logger *logrus.Entry,
) *DistributionServiceImpl {
	return &DistributionServiceImpl{
		cycleRepo: cr,
		poolRepo:  pr,
		claimRepo: clr,
		directory: dir,
		notifier:  n,
		schedule:  schedule,
		allotment: allotment,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *DistributionServiceImpl) Reconcile(ctx context.Context) error {
	active, err := s.cycleRepo.GetActive(ctx)
	if err != nil {
		if err == idb.ErrCycleNotFound {
			s.logger.Info("No active cycle found. Creating initial cycle.")
			return s.createAndAnnounce(ctx, cycle.NewNaturalCycle(s.schedule, s.now()), cycle.KindNatural)
		}
		return fmt.Errorf("failed to load active cycle: %w", err)
	}

	switch state := cycle.Classify(s.now(), active); state {
	case cycle.StatePaused:
		s.logger.WithField("cycle_id", active.ID).Debug("Cycle is paused. Nothing to reconcile.")
		return nil
	case cycle.StateFuture:
		s.logger.WithFields(logrus.Fields{
			"cycle_id":   active.ID,
			"start_time": active.StartTime,
		}).Debug("Cycle has not started yet. Waiting.")
		return nil
	case cycle.StateActive:
		return nil
	case cycle.StateExpired:
		s.logger.WithField("cycle_id", active.ID).Info("Cycle expired. Rolling over to the next window.")
		return s.rollOver(ctx, active)
	default:
		return fmt.Errorf("unexpected cycle state %q for cycle %d", state, active.ID)
	}
}

// rollOver tears down an expired cycle and creates its back-to-back
// successor. This is the only transition that destroys prior-cycle state.
func (s *DistributionServiceImpl) rollOver(ctx context.Context, expired *cycle.Cycle) error {
	if err := s.teardown(ctx, expired); err != nil {
		return err
	}
	next := cycle.NewFollowingCycle(s.schedule, expired, s.now())
	return s.createAndAnnounce(ctx, next, cycle.KindNatural)
}

func (s *DistributionServiceImpl) StartCycle(ctx context.Context, at *time.Time) (*cycle.Cycle, error) {
	var newCycle *cycle.Cycle
	var kind cycle.Kind
	if at == nil {
		newCycle = cycle.NewImmediateCycle(s.schedule, s.now())
		kind = cycle.KindImmediate
	} else {
		var err error
		newCycle, err = cycle.NewScheduledCycle(s.schedule, *at, s.now())
		if err != nil {
			return nil, err
		}
		kind = cycle.KindScheduled
	}

	current, err := s.cycleRepo.GetActive(ctx)
	if err != nil && err != idb.ErrCycleNotFound {
		return nil, fmt.Errorf("failed to load active cycle: %w", err)
	}
	if current != nil {
		if err := s.teardown(ctx, current); err != nil {
			return nil, err
		}
	}

	if err := s.createAndAnnounce(ctx, newCycle, kind); err != nil {
		return nil, err
	}
	return newCycle, nil
}

func (s *DistributionServiceImpl) EndCycle(ctx context.Context) error {
	active, err := s.getActiveOrRefuse(ctx)
	if err != nil {
		return err
	}
	if err := s.teardown(ctx, active); err != nil {
		return err
	}
	s.logger.WithField("cycle_id", active.ID).Info("Cycle ended manually.")
	return nil
}

func (s *DistributionServiceImpl) PauseCycle(ctx context.Context) (*cycle.Cycle, error) {
	active, err := s.getActiveOrRefuse(ctx)
	if err != nil {
		return nil, err
	}
	if active.Paused {
		return active, ErrCycleAlreadyPaused
	}
	if err := s.cycleRepo.SetPaused(ctx, active.ID, true); err != nil {
		return nil, fmt.Errorf("failed to pause cycle %d: %w", active.ID, err)
	}
	active.Paused = true
	s.logger.WithField("cycle_id", active.ID).Info("Cycle paused.")
	return active, nil
}

func (s *DistributionServiceImpl) ResumeCycle(ctx context.Context) (*cycle.Cycle, error) {
	active, err := s.getActiveOrRefuse(ctx)
	if err != nil {
		return nil, err
	}
	if !active.Paused {
		return active, ErrCycleNotPaused
	}
	if err := s.cycleRepo.SetPaused(ctx, active.ID, false); err != nil {
		return nil, fmt.Errorf("failed to resume cycle %d: %w", active.ID, err)
	}
	active.Paused = false
	s.logger.WithField("cycle_id", active.ID).Info("Cycle resumed.")
	return active, nil
}

func (s *DistributionServiceImpl) AdvanceCycle(ctx context.Context) (*cycle.Cycle, error) {
	return s.shiftCycle(ctx, -s.schedule.Interval)
}

func (s *DistributionServiceImpl) DelayCycle(ctx context.Context) (*cycle.Cycle, error) {
	return s.shiftCycle(ctx, s.schedule.Interval)
}

func (s *DistributionServiceImpl) shiftCycle(ctx context.Context, delta time.Duration) (*cycle.Cycle, error) {
	active, err := s.getActiveOrRefuse(ctx)
	if err != nil {
		return nil, err
	}
	shifted, err := active.Shifted(delta, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.cycleRepo.UpdateWindow(ctx, shifted.ID, shifted.StartTime, shifted.EndTime); err != nil {
		return nil, fmt.Errorf("failed to update window for cycle %d: %w", shifted.ID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"cycle_id":   shifted.ID,
		"start_time": shifted.StartTime,
		"end_time":   shifted.EndTime,
	}).Info("Cycle window shifted.")
	return shifted, nil
}

func (s *DistributionServiceImpl) Status(ctx context.Context) (*CycleStatus, error) {
	active, err := s.getActiveOrRefuse(ctx)
	if err != nil {
		return nil, err
	}
	return &CycleStatus{Cycle: active, State: cycle.Classify(s.now(), active)}, nil
}

func (s *DistributionServiceImpl) Pools(ctx context.Context) ([]*pool.Pool, error) {
	active, err := s.getActiveOrRefuse(ctx)
	if err != nil {
		return nil, err
	}
	pools, err := s.poolRepo.ListByCycle(ctx, active.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools for cycle %d: %w", active.ID, err)
	}
	return pools, nil
}

func (s *DistributionServiceImpl) getActiveOrRefuse(ctx context.Context) (*cycle.Cycle, error) {
	active, err := s.cycleRepo.GetActive(ctx)
	if err != nil {
		if err == idb.ErrCycleNotFound {
			return nil, ErrNoActiveCycle
		}
		return nil, fmt.Errorf("failed to load active cycle: %w", err)
	}
	return active, nil
}

// teardown clears the cycle's pools, purges its claim ledger and
// deactivates the record. Claims recorded so far are gone after this.
func (s *DistributionServiceImpl) teardown(ctx context.Context, c *cycle.Cycle) error {
	if err := s.poolRepo.ClearForCycle(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to clear pools for cycle %d: %w", c.ID, err)
	}
	if err := s.claimRepo.PurgeForCycle(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to purge claims for cycle %d: %w", c.ID, err)
	}
	if err := s.cycleRepo.DeactivateAll(ctx); err != nil {
		return fmt.Errorf("failed to deactivate cycle %d: %w", c.ID, err)
	}
	return nil
}

// createAndAnnounce persists a new cycle, initializes one pool per known
// group and fires the announcement. Notification failure never rolls the
// transition back.
func (s *DistributionServiceImpl) createAndAnnounce(ctx context.Context, c *cycle.Cycle, kind cycle.Kind) error {
	if err := s.cycleRepo.Create(ctx, c); err != nil {
		return fmt.Errorf("failed to create cycle: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"cycle_id":   c.ID,
		"kind":       kind,
		"start_time": c.StartTime,
		"end_time":   c.EndTime,
	}).Info("New distribution cycle created.")

	allotments := s.initializePools(ctx, c.ID)

	s.notifier.CycleStarted(notifier.CycleStartedEvent{
		Kind:       kind,
		StartTime:  c.StartTime,
		EndTime:    c.EndTime,
		Allotments: allotments,
	})
	return nil
}

// initializePools sizes and resets one pool per known group. Directory or
// storage failures skip the affected group with a warning instead of
// aborting the transition.
func (s *DistributionServiceImpl) initializePools(ctx context.Context, cycleID int32) map[string]int {
	allotments := make(map[string]int)

	groups, err := s.directory.ListGroups(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Membership directory unavailable. No pools initialized for this cycle.")
		return allotments
	}

	for _, groupName := range groups {
		memberCount, err := s.directory.MemberCount(ctx, groupName)
		if err != nil {
			s.logger.WithError(err).WithField("group", groupName).Warn("Failed to resolve member count. Skipping group.")
			continue
		}
		totalAmount := s.allotment.Allotment(memberCount)
		if err := s.poolRepo.CreateOrReset(ctx, cycleID, groupName, totalAmount); err != nil {
			s.logger.WithError(err).WithField("group", groupName).Warn("Failed to initialize pool. Skipping group.")
			continue
		}
		allotments[s.directory.DisplayName(ctx, groupName)] = totalAmount
		s.logger.WithFields(logrus.Fields{
			"cycle_id":     cycleID,
			"group":        groupName,
			"member_count": memberCount,
			"total_amount": totalAmount,
		}).Info("Pool initialized.")
	}
	return allotments
}
