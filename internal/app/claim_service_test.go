package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"community_distribution_bot/internal/domain/cycle"
	idb "community_distribution_bot/internal/infra/database"
)

type claimFixture struct {
	svc       *ClaimServiceImpl
	cycleRepo *fakeCycleRepo
	poolRepo  *fakePoolRepo
	claimRepo *fakeClaimRepo
	directory *fakeDirectory
	cycleID   int32
}

// newClaimFixture seeds an active cycle covering testNow with a single
// "builders" pool of the given size. Player 1001 is a member of builders.
func newClaimFixture(t *testing.T, poolTotal int) *claimFixture {
	t.Helper()
	f := &claimFixture{
		cycleRepo: &fakeCycleRepo{},
		poolRepo:  newFakePoolRepo(),
		claimRepo: newFakeClaimRepo(),
		directory: &fakeDirectory{
			memberCounts: map[string]int{"builders": 2},
			playerGroups: map[string][]string{
				"1001": {"builders"},
				"1002": {"builders"},
				"1003": {"builders"},
			},
		},
	}
	f.svc = NewClaimService(f.cycleRepo, f.poolRepo, f.claimRepo, f.directory, testLogger())
	f.svc.now = func() time.Time { return testNow }

	ctx := context.Background()
	c := &cycle.Cycle{
		StartTime: testNow.Add(-24 * time.Hour),
		EndTime:   testNow.Add(13 * 24 * time.Hour),
		Active:    true,
	}
	if err := f.cycleRepo.Create(ctx, c); err != nil {
		t.Fatalf("seeding cycle: %v", err)
	}
	f.cycleID = c.ID
	if err := f.poolRepo.CreateOrReset(ctx, c.ID, "builders", poolTotal); err != nil {
		t.Fatalf("seeding pool: %v", err)
	}
	return f
}

func TestClaimExactAmount(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()

	result, err := f.svc.Claim(ctx, "1001", "builders", ExactClaim(60))
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if result.ActualAmount != 60 {
		t.Errorf("ActualAmount = %d, want 60", result.ActualAmount)
	}
	if result.Remaining != 100 {
		t.Errorf("Remaining = %d, want 100", result.Remaining)
	}

	rec, err := f.claimRepo.Get(ctx, f.cycleID, "1001", "builders")
	if err != nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if rec.ClaimedAmount != 60 {
		t.Errorf("ledger ClaimedAmount = %d, want 60", rec.ClaimedAmount)
	}
}

func TestClaimAccumulatesInLedger(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()

	for _, amount := range []int{30, 50} {
		if _, err := f.svc.Claim(ctx, "1001", "builders", ExactClaim(amount)); err != nil {
			t.Fatalf("Claim(%d) error = %v", amount, err)
		}
	}

	rec, err := f.claimRepo.Get(ctx, f.cycleID, "1001", "builders")
	if err != nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if rec.ClaimedAmount != 80 {
		t.Errorf("ledger ClaimedAmount = %d, want 80", rec.ClaimedAmount)
	}
}

func TestClaimAllDrainsPool(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, "1001", "builders", ExactClaim(25)); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	result, err := f.svc.Claim(ctx, "1002", "builders", ClaimAll())
	if err != nil {
		t.Fatalf("Claim(all) error = %v", err)
	}
	if result.ActualAmount != 135 {
		t.Errorf("ActualAmount = %d, want 135", result.ActualAmount)
	}
	if result.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", result.Remaining)
	}

	// A drained pool refuses a further claim-all instead of granting zero.
	if _, err := f.svc.Claim(ctx, "1003", "builders", ClaimAll()); err != ErrInsufficientPool {
		t.Errorf("Claim(all) on empty pool error = %v, want ErrInsufficientPool", err)
	}
}

func TestClaimRefusals(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()

	tests := []struct {
		name    string
		player  string
		group   string
		req     ClaimRequest
		wantErr error
	}{
		{"zero amount", "1001", "builders", ExactClaim(0), ErrInvalidClaimAmount},
		{"negative amount", "1001", "builders", ExactClaim(-5), ErrInvalidClaimAmount},
		{"not a member", "9999", "builders", ExactClaim(10), ErrNotGroupMember},
		{"wrong group", "1001", "scouts", ExactClaim(10), ErrNotGroupMember},
		{"over pool", "1001", "builders", ExactClaim(200), ErrInsufficientPool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Claim(ctx, tt.player, tt.group, tt.req); err != tt.wantErr {
				t.Errorf("Claim() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No refusal above touched the pool.
	p, err := f.poolRepo.Get(ctx, f.cycleID, "builders")
	if err != nil {
		t.Fatalf("loading pool: %v", err)
	}
	if p.RemainingAmount != 160 {
		t.Errorf("RemainingAmount = %d, want 160 after refusals", p.RemainingAmount)
	}
	if f.claimRepo.count() != 0 {
		t.Errorf("ledger records = %d, want 0 after refusals", f.claimRepo.count())
	}
}

func TestClaimRefusedWhilePaused(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()

	if err := f.cycleRepo.SetPaused(ctx, f.cycleID, true); err != nil {
		t.Fatalf("pausing cycle: %v", err)
	}
	if _, err := f.svc.Claim(ctx, "1001", "builders", ExactClaim(60)); err != ErrCycleNotClaimable {
		t.Fatalf("Claim() during pause error = %v, want ErrCycleNotClaimable", err)
	}
	p, _ := f.poolRepo.Get(ctx, f.cycleID, "builders")
	if p.RemainingAmount != 160 {
		t.Errorf("RemainingAmount = %d, want 160 (pause must not mutate)", p.RemainingAmount)
	}

	// The identical claim succeeds once the cycle resumes.
	if err := f.cycleRepo.SetPaused(ctx, f.cycleID, false); err != nil {
		t.Fatalf("resuming cycle: %v", err)
	}
	result, err := f.svc.Claim(ctx, "1001", "builders", ExactClaim(60))
	if err != nil {
		t.Fatalf("Claim() after resume error = %v", err)
	}
	if result.ActualAmount != 60 {
		t.Errorf("ActualAmount = %d, want 60", result.ActualAmount)
	}
}

func TestClaimRefusedWithoutCycle(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()
	if err := f.cycleRepo.DeactivateAll(ctx); err != nil {
		t.Fatalf("deactivating: %v", err)
	}
	if _, err := f.svc.Claim(ctx, "1001", "builders", ExactClaim(10)); err != ErrCycleNotClaimable {
		t.Errorf("Claim() without cycle error = %v, want ErrCycleNotClaimable", err)
	}
}

func TestConcurrentClaimsNeverOversell(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()

	players := []string{"1001", "1002", "1003"}
	results := make([]error, len(players))
	var wg sync.WaitGroup
	for i, player := range players {
		wg.Add(1)
		go func(i int, player string) {
			defer wg.Done()
			_, results[i] = f.svc.Claim(ctx, player, "builders", ExactClaim(60))
		}(i, player)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range results {
		switch err {
		case nil:
			succeeded++
		case ErrInsufficientPool:
		default:
			t.Errorf("player %s: unexpected error %v", players[i], err)
		}
	}
	// 160 admits exactly two claims of 60.
	if succeeded != 2 {
		t.Errorf("succeeded = %d, want exactly 2", succeeded)
	}
	p, err := f.poolRepo.Get(ctx, f.cycleID, "builders")
	if err != nil {
		t.Fatalf("loading pool: %v", err)
	}
	if p.RemainingAmount != 40 {
		t.Errorf("RemainingAmount = %d, want 40", p.RemainingAmount)
	}
}

func TestClaimSurvivesLedgerFailure(t *testing.T) {
	f := newClaimFixture(t, 160)
	f.claimRepo.failRecord = true
	ctx := context.Background()

	result, err := f.svc.Claim(ctx, "1001", "builders", ExactClaim(60))
	if err != nil {
		t.Fatalf("Claim() error = %v (ledger failure must not fail the claim)", err)
	}
	if result.ActualAmount != 60 {
		t.Errorf("ActualAmount = %d, want 60", result.ActualAmount)
	}
	p, _ := f.poolRepo.Get(ctx, f.cycleID, "builders")
	if p.RemainingAmount != 100 {
		t.Errorf("RemainingAmount = %d, want 100", p.RemainingAmount)
	}
}

func TestIsCycleActiveAndUnpaused(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()

	ok, err := f.svc.IsCycleActiveAndUnpaused(ctx)
	if err != nil {
		t.Fatalf("IsCycleActiveAndUnpaused() error = %v", err)
	}
	if !ok {
		t.Error("expected true for a running cycle")
	}

	if err := f.cycleRepo.SetPaused(ctx, f.cycleID, true); err != nil {
		t.Fatalf("pausing cycle: %v", err)
	}
	ok, err = f.svc.IsCycleActiveAndUnpaused(ctx)
	if err != nil {
		t.Fatalf("IsCycleActiveAndUnpaused() error = %v", err)
	}
	if ok {
		t.Error("expected false while paused")
	}
}

func TestPoolStatus(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()

	p, err := f.svc.PoolStatus(ctx, "builders")
	if err != nil {
		t.Fatalf("PoolStatus() error = %v", err)
	}
	if p.TotalAmount != 160 {
		t.Errorf("TotalAmount = %d, want 160", p.TotalAmount)
	}
	if _, err := f.svc.PoolStatus(ctx, "ghosts"); err != idb.ErrPoolNotFound {
		t.Errorf("PoolStatus(unknown) error = %v, want ErrPoolNotFound", err)
	}
}

func TestPlayerClaims(t *testing.T) {
	f := newClaimFixture(t, 160)
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, "1001", "builders", ExactClaim(20)); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	records, err := f.svc.PlayerClaims(ctx, "1001")
	if err != nil {
		t.Fatalf("PlayerClaims() error = %v", err)
	}
	if len(records) != 1 || records[0].ClaimedAmount != 20 {
		t.Errorf("records = %+v, want one record of 20", records)
	}
}
