package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"community_distribution_bot/internal/domain/cycle"
	"community_distribution_bot/internal/domain/notifier"
	"community_distribution_bot/internal/domain/pool"
	idb "community_distribution_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// In-memory doubles for the storage and collaborator interfaces. The pool
// fake serializes Claim behind its mutex, mirroring the row lock the
// Postgres repository takes, so concurrency tests exercise real contention.

type fakeCycleRepo struct {
	mu     sync.Mutex
	cycles []*cycle.Cycle
	nextID int32
	writes int
}

func (r *fakeCycleRepo) Create(_ context.Context, c *cycle.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.writes++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	stored := *c
	r.cycles = append(r.cycles, &stored)
	return nil
}

func (r *fakeCycleRepo) GetByID(_ context.Context, id int32) (*cycle.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cycles {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, idb.ErrCycleNotFound
}

func (r *fakeCycleRepo) GetActive(_ context.Context) (*cycle.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.cycles) - 1; i >= 0; i-- {
		if r.cycles[i].Active {
			copied := *r.cycles[i]
			return &copied, nil
		}
	}
	return nil, idb.ErrCycleNotFound
}

func (r *fakeCycleRepo) DeactivateAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for _, c := range r.cycles {
		c.Active = false
	}
	return nil
}

func (r *fakeCycleRepo) SetPaused(_ context.Context, id int32, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for _, c := range r.cycles {
		if c.ID == id {
			c.Paused = paused
			return nil
		}
	}
	return idb.ErrCycleNotFound
}

func (r *fakeCycleRepo) UpdateWindow(_ context.Context, id int32, start, end time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for _, c := range r.cycles {
		if c.ID == id {
			c.StartTime = start
			c.EndTime = end
			return nil
		}
	}
	return idb.ErrCycleNotFound
}

func (r *fakeCycleRepo) ListRecent(_ context.Context, limit int) ([]*cycle.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*cycle.Cycle, 0, limit)
	for i := len(r.cycles) - 1; i >= 0 && len(out) < limit; i-- {
		copied := *r.cycles[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeCycleRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

type poolKey struct {
	cycleID int32
	group   string
}

type fakePoolRepo struct {
	mu     sync.Mutex
	pools  map[poolKey]*pool.Pool
	writes int
}

func newFakePoolRepo() *fakePoolRepo {
	return &fakePoolRepo{pools: make(map[poolKey]*pool.Pool)}
}

func (r *fakePoolRepo) CreateOrReset(_ context.Context, cycleID int32, groupName string, totalAmount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	r.pools[poolKey{cycleID, groupName}] = &pool.Pool{
		CycleID:         cycleID,
		GroupName:       groupName,
		TotalAmount:     totalAmount,
		RemainingAmount: totalAmount,
		LastUpdated:     time.Now(),
	}
	return nil
}

func (r *fakePoolRepo) Claim(_ context.Context, cycleID int32, groupName string, amount int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[poolKey{cycleID, groupName}]
	if !ok || p.RemainingAmount < amount {
		return false, nil
	}
	r.writes++
	p.RemainingAmount -= amount
	p.LastUpdated = time.Now()
	return true, nil
}

func (r *fakePoolRepo) Get(_ context.Context, cycleID int32, groupName string) (*pool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[poolKey{cycleID, groupName}]
	if !ok {
		return nil, idb.ErrPoolNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePoolRepo) ListByCycle(_ context.Context, cycleID int32) ([]*pool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*pool.Pool, 0)
	for key, p := range r.pools {
		if key.cycleID == cycleID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePoolRepo) ClearForCycle(_ context.Context, cycleID int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for key := range r.pools {
		if key.cycleID == cycleID {
			delete(r.pools, key)
		}
	}
	return nil
}

func (r *fakePoolRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

type claimKey struct {
	cycleID int32
	player  string
	group   string
}

type fakeClaimRepo struct {
	mu         sync.Mutex
	records    map[claimKey]*pool.ClaimRecord
	failRecord bool // simulate a ledger write failure after a pool claim
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{records: make(map[claimKey]*pool.ClaimRecord)}
}

func (r *fakeClaimRepo) RecordClaim(_ context.Context, cycleID int32, playerID, groupName string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRecord {
		return fmt.Errorf("simulated ledger failure")
	}
	key := claimKey{cycleID, playerID, groupName}
	if rec, ok := r.records[key]; ok {
		rec.ClaimedAmount += amount
		rec.LastClaimTime = time.Now()
		return nil
	}
	r.records[key] = &pool.ClaimRecord{
		CycleID:       cycleID,
		PlayerID:      playerID,
		GroupName:     groupName,
		ClaimedAmount: amount,
		LastClaimTime: time.Now(),
	}
	return nil
}

func (r *fakeClaimRepo) Get(_ context.Context, cycleID int32, playerID, groupName string) (*pool.ClaimRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[claimKey{cycleID, playerID, groupName}]
	if !ok {
		return nil, idb.ErrClaimRecordNotFound
	}
	copied := *rec
	return &copied, nil
}

func (r *fakeClaimRepo) ListByPlayer(_ context.Context, playerID string) ([]*pool.ClaimRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*pool.ClaimRecord, 0)
	for key, rec := range r.records {
		if key.player == playerID {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeClaimRepo) ListByCycleAndGroup(_ context.Context, cycleID int32, groupName string) ([]*pool.ClaimRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*pool.ClaimRecord, 0)
	for key, rec := range r.records {
		if key.cycleID == cycleID && key.group == groupName {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeClaimRepo) PurgeForCycle(_ context.Context, cycleID int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.records {
		if key.cycleID == cycleID {
			delete(r.records, key)
		}
	}
	return nil
}

func (r *fakeClaimRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type fakeDirectory struct {
	memberCounts map[string]int      // group -> member count; also the group list
	playerGroups map[string][]string // player -> groups
	listErr      error
	countErr     map[string]error
}

func (d *fakeDirectory) ListGroups(_ context.Context) ([]string, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	groups := make([]string, 0, len(d.memberCounts))
	for name := range d.memberCounts {
		groups = append(groups, name)
	}
	return groups, nil
}

func (d *fakeDirectory) MemberCount(_ context.Context, groupName string) (int, error) {
	if err, ok := d.countErr[groupName]; ok {
		return 0, err
	}
	return d.memberCounts[groupName], nil
}

func (d *fakeDirectory) PlayerGroups(_ context.Context, playerID string) ([]string, error) {
	return d.playerGroups[playerID], nil
}

func (d *fakeDirectory) DisplayName(_ context.Context, groupName string) string {
	return groupName
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifier.CycleStartedEvent
}

func (n *fakeNotifier) CycleStarted(event notifier.CycleStartedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func testAllotment() pool.AllotmentPolicy {
	return pool.DefaultAllotmentPolicy
}

func testSchedule() cycle.Schedule {
	return cycle.Schedule{
		AnchorWeekday: time.Saturday,
		AnchorHour:    15,
		AnchorMinute:  0,
		Interval:      14 * 24 * time.Hour,
		Location:      time.UTC,
	}
}
