package mining

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldland/production-core/internal/concurrency"
	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/event"
	"github.com/yieldland/production-core/internal/land"
	"github.com/yieldland/production-core/internal/ledger"
	"github.com/yieldland/production-core/internal/repository/memory"
	"github.com/yieldland/production-core/internal/settlement"
	"github.com/yieldland/production-core/internal/tool"
)

var baseTime = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

type managerFixture struct {
	store   *memory.Store
	ledger  ledger.Service
	tools   tool.Registry
	manager Manager
	now     time.Time
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{now: baseTime}
	store := memory.NewStore()
	locks := concurrency.NewLockManager(200, time.Millisecond)
	f.store = store
	f.ledger = ledger.NewService(store, locks)
	f.tools = tool.NewRegistry(store)
	f.manager = NewManagerWithClock(store, locks, f.tools, settlement.NewEngine(locks),
		land.Default(), event.NewMemoryBus(), func() time.Time { return f.now })
	return f
}

func (f *managerFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *managerFixture) newTool(t *testing.T, owner string, toolType domain.ToolType, durability float64) *domain.Tool {
	t.Helper()
	created, err := f.tools.Create(context.Background(), owner, toolType, durability)
	require.NoError(t, err)
	return created
}

func (f *managerFixture) creditGrain(t *testing.T, userID string, qty float64) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), userID, domain.ResourceGrain, qty)
	require.NoError(t, err)
}

func TestStartSelfBindsToolsAndComputesRates(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)
	pickaxe := f.newTool(t, "alice", domain.ToolPickaxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{pickaxe.ID})
	require.NoError(t, err)
	require.NoError(t, res.Warning)

	sess := res.Session
	assert.Equal(t, domain.SessionActive, sess.Status)
	assert.Equal(t, domain.MiningSelf, sess.Type)
	assert.Equal(t, domain.ResourceIron, sess.Produced)
	assert.Equal(t, 10.0, sess.OutputRate)
	assert.Equal(t, 2.0, sess.GrainRate)
	assert.Equal(t, 0.1, sess.TaxRate)
	assert.Equal(t, 1.0, sess.UserShareRate)
	assert.Equal(t, []string{pickaxe.ID}, sess.ToolIDs)
	assert.Equal(t, baseTime, sess.StartTime)
	assert.Equal(t, baseTime, sess.LastSettlementTime)

	bound, err := f.tools.Get(ctx, pickaxe.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolWorking, bound.Status)
	assert.Equal(t, sess.ID, bound.BoundSessionID)
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	_, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	pickaxe := f.newTool(t, "alice", domain.ToolPickaxe, 0)
	_, err = f.manager.StartSelf(ctx, "alice", "land-1", domain.LandKind("swamp"), "", []string{pickaxe.ID})
	assert.ErrorIs(t, err, domain.ErrLandUnavailable)

	// Tools owned by someone else look nonexistent to the caller.
	_, err = f.manager.StartSelf(ctx, "bob", "land-1", domain.LandMine, "", []string{pickaxe.ID})
	assert.ErrorIs(t, err, domain.ErrToolNotFound)

	worn := f.newTool(t, "alice", domain.ToolHoe, 0)
	_, err = f.tools.ApplyWear(ctx, worn.ID, 101*time.Hour)
	require.NoError(t, err)
	_, err = f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{worn.ID})
	assert.ErrorIs(t, err, domain.ErrToolDamaged)
}

func TestStartOccupiedLand(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)
	first := f.newTool(t, "alice", domain.ToolPickaxe, 0)
	second := f.newTool(t, "alice", domain.ToolPickaxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{first.ID})
	require.NoError(t, err)

	_, err = f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{second.ID})
	assert.ErrorIs(t, err, domain.ErrLandUnavailable)

	// Completing the session frees the land.
	_, err = f.manager.Stop(ctx, "alice", res.Session.ID)
	require.NoError(t, err)
	_, err = f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{second.ID})
	assert.NoError(t, err)
}

func TestStartWithoutGrainWarns(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	pickaxe := f.newTool(t, "alice", domain.ToolPickaxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{pickaxe.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Warning, domain.ErrGrainInsufficient)
	assert.Equal(t, domain.SessionActive, res.Session.Status)
}

func TestPauseResumeLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)
	pickaxe := f.newTool(t, "alice", domain.ToolPickaxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{pickaxe.ID})
	require.NoError(t, err)
	sessID := res.Session.ID

	f.advance(time.Hour)
	paused, err := f.manager.Pause(ctx, "alice", sessID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPaused, paused.Status)
	assert.Equal(t, 10.0, paused.AccumulatedOutput)
	assert.Equal(t, 1.0, paused.AccumulatedTax)

	// Paused time never accrues.
	f.advance(3 * time.Hour)
	resumed, err := f.manager.Resume(ctx, "alice", sessID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, resumed.Status)
	assert.Equal(t, f.now, resumed.LastSettlementTime)
	assert.Equal(t, 10.0, resumed.AccumulatedOutput)

	// Resume on an active session is rejected.
	_, err = f.manager.Resume(ctx, "alice", sessID)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)

	f.advance(30 * time.Minute)
	collected, err := f.manager.Collect(ctx, "alice", sessID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, collected.Collected)
	assert.Equal(t, domain.ResourceIron, collected.Resource)
	assert.Equal(t, 15.0, collected.NewBalance)
}

func TestStopIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)
	pickaxe := f.newTool(t, "alice", domain.ToolPickaxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{pickaxe.ID})
	require.NoError(t, err)
	sessID := res.Session.ID

	f.advance(time.Hour)
	stopped, err := f.manager.Stop(ctx, "alice", sessID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, stopped.Status)
	require.NotNil(t, stopped.EndTime)
	assert.Equal(t, f.now, *stopped.EndTime)
	assert.Empty(t, stopped.ToolIDs)
	assert.Equal(t, 10.0, stopped.AccumulatedOutput)

	released, err := f.tools.Get(ctx, pickaxe.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolIdle, released.Status)
	assert.Empty(t, released.BoundSessionID)

	// Every further command bounces off the terminal state.
	_, err = f.manager.Stop(ctx, "alice", sessID)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	_, err = f.manager.Pause(ctx, "alice", sessID)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	_, err = f.manager.Collect(ctx, "alice", sessID)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	_, err = f.manager.AddTool(ctx, "alice", sessID, pickaxe.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
}

func TestAddToolSettlesBeforeRateChange(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)
	pickaxe := f.newTool(t, "alice", domain.ToolPickaxe, 0)
	axe := f.newTool(t, "alice", domain.ToolAxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{pickaxe.ID})
	require.NoError(t, err)
	sessID := res.Session.ID

	f.advance(time.Hour)
	sess, err := f.manager.AddTool(ctx, "alice", sessID, axe.ID)
	require.NoError(t, err)

	// The first hour accrued at the old rate; only future time sees the new one.
	assert.Equal(t, 10.0, sess.AccumulatedOutput)
	assert.Equal(t, 18.0, sess.OutputRate)
	assert.Equal(t, 4.0, sess.GrainRate)
	assert.Equal(t, []string{pickaxe.ID, axe.ID}, sess.ToolIDs)

	f.advance(time.Hour)
	collected, err := f.manager.Collect(ctx, "alice", sessID)
	require.NoError(t, err)
	assert.Equal(t, 18.0, collected.Collected)
}

func TestRemoveTool(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)
	pickaxe := f.newTool(t, "alice", domain.ToolPickaxe, 0)
	axe := f.newTool(t, "alice", domain.ToolAxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{pickaxe.ID, axe.ID})
	require.NoError(t, err)
	sessID := res.Session.ID

	f.advance(time.Hour)
	removed, err := f.manager.RemoveTool(ctx, "alice", sessID, axe.ID)
	require.NoError(t, err)

	assert.Equal(t, axe.ID, removed.ToolID)
	assert.Equal(t, 20.0, removed.DurabilityConsumed)
	assert.Equal(t, domain.MaxDurability-20, removed.RemainingDurability)
	assert.Equal(t, []string{pickaxe.ID}, removed.Session.ToolIDs)
	assert.Equal(t, 10.0, removed.Session.OutputRate)
	assert.Equal(t, 2.0, removed.Session.GrainRate)

	released, err := f.tools.Get(ctx, axe.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolIdle, released.Status)

	_, err = f.manager.RemoveTool(ctx, "alice", sessID, axe.ID)
	assert.ErrorIs(t, err, domain.ErrToolNotBound)
}

func TestToolBreakDropsRate(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)
	// 25 durability is one hour of pickaxe wear.
	fragile := f.newTool(t, "alice", domain.ToolPickaxe, 25)
	axe := f.newTool(t, "alice", domain.ToolAxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{fragile.ID, axe.ID})
	require.NoError(t, err)
	assert.Equal(t, 18.0, res.Session.OutputRate)

	f.advance(2 * time.Hour)
	collected, err := f.manager.Collect(ctx, "alice", res.Session.ID)
	require.NoError(t, err)

	// The whole window still accrued at the rate fixed before the break.
	assert.Equal(t, 36.0, collected.Collected)

	sess, err := f.manager.GetSession(ctx, "alice", res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{axe.ID}, sess.ToolIDs)
	assert.Equal(t, 8.0, sess.OutputRate)
	assert.Equal(t, 2.0, sess.GrainRate)

	broken, err := f.tools.Get(ctx, fragile.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolDamaged, broken.Status)
}

func TestGrainExhaustionForcesPause(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	// Mine grain rate is 2/hr per tool; 1 grain covers half an hour.
	f.creditGrain(t, "alice", 1)
	pickaxe := f.newTool(t, "alice", domain.ToolPickaxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{pickaxe.ID})
	require.NoError(t, err)

	f.advance(time.Hour)
	collected, err := f.manager.Collect(ctx, "alice", res.Session.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, collected.Warning, domain.ErrGrainInsufficient)
	assert.Equal(t, 5.0, collected.Collected)

	sess, err := f.manager.GetSession(ctx, "alice", res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPaused, sess.Status)

	// Refuel and resume.
	f.creditGrain(t, "alice", 100)
	_, err = f.manager.Resume(ctx, "alice", res.Session.ID)
	require.NoError(t, err)
}

func TestHiredWithoutToolUsesDepositedTools(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "bob", 100)
	first := f.newTool(t, "alice", domain.ToolPickaxe, 0)
	second := f.newTool(t, "alice", domain.ToolHoe, 0)

	require.NoError(t, f.manager.DepositTools(ctx, "alice", "land-9", []string{first.ID, second.ID}))

	// No deposit, no session.
	_, err := f.manager.StartHiredWithoutTool(ctx, "bob", "land-8", domain.LandMine, "alice")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)

	res, err := f.manager.StartHiredWithoutTool(ctx, "bob", "land-9", domain.LandMine, "alice")
	require.NoError(t, err)

	sess := res.Session
	assert.Equal(t, domain.MiningHiredWithoutTool, sess.Type)
	assert.Equal(t, 0.7, sess.UserShareRate)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, sess.ToolIDs)
	assert.Equal(t, 16.0, sess.OutputRate) // pickaxe 10 + hoe 6 on a x1.0 mine
	assert.Equal(t, 4.0, sess.GrainRate)

	// Ownership stays with the depositor while the hired miner works.
	bound, err := f.tools.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", bound.Owner)
	assert.Equal(t, sess.ID, bound.BoundSessionID)

	f.advance(time.Hour)
	_, err = f.manager.Stop(ctx, "bob", sess.ID)
	require.NoError(t, err)

	// Owner's share of the hour: gross 16, tax 1.6, miner 11.2, rest 3.2.
	ownerBal, err := f.ledger.GetBalance(ctx, "alice", domain.ResourceIron)
	require.NoError(t, err)
	assert.InDelta(t, 3.2, ownerBal.Amount, 1e-9)
	minerBal, err := f.ledger.GetBalance(ctx, "bob", domain.ResourceIron)
	require.NoError(t, err)
	assert.InDelta(t, 11.2, minerBal.Amount, 1e-9)

	released, err := f.tools.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolIdle, released.Status)
}

func TestUserScopeEnforced(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)
	pickaxe := f.newTool(t, "alice", domain.ToolPickaxe, 0)

	res, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{pickaxe.ID})
	require.NoError(t, err)

	_, err = f.manager.Pause(ctx, "bob", res.Session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.manager.GetSession(ctx, "bob", res.Session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.manager.Collect(ctx, "bob", res.Session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSettleDue(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)
	f.creditGrain(t, "bob", 100)
	alicePick := f.newTool(t, "alice", domain.ToolPickaxe, 0)
	bobPick := f.newTool(t, "bob", domain.ToolPickaxe, 0)

	aliceRes, err := f.manager.StartSelf(ctx, "alice", "land-1", domain.LandMine, "", []string{alicePick.ID})
	require.NoError(t, err)
	bobRes, err := f.manager.StartSelf(ctx, "bob", "land-2", domain.LandMine, "", []string{bobPick.ID})
	require.NoError(t, err)

	paused, err := f.manager.Pause(ctx, "bob", bobRes.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPaused, paused.Status)

	f.advance(time.Hour)
	settled, err := f.manager.SettleDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	sess, err := f.manager.GetSession(ctx, "alice", aliceRes.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, sess.AccumulatedOutput)
	assert.Equal(t, f.now, sess.LastSettlementTime)

	// Nothing further accrues when run again at the same instant.
	settled, err = f.manager.SettleDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	sess, err = f.manager.GetSession(ctx, "alice", aliceRes.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, sess.AccumulatedOutput)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.creditGrain(t, "alice", 100)

	for i := 0; i < 3; i++ {
		pick := f.newTool(t, "alice", domain.ToolPickaxe, 0)
		res, err := f.manager.StartSelf(ctx, "alice", fmt.Sprintf("land-%d", i), domain.LandMine, "", []string{pick.ID})
		require.NoError(t, err)
		f.advance(time.Minute)
		if i == 0 {
			_, err = f.manager.Stop(ctx, "alice", res.Session.ID)
			require.NoError(t, err)
		}
	}

	sessions, total, err := f.manager.ListSessions(ctx, "alice", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, sessions, 2)
}
