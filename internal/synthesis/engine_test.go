package synthesis

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldland/production-core/internal/concurrency"
	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/event"
	"github.com/yieldland/production-core/internal/ledger"
	"github.com/yieldland/production-core/internal/repository/memory"
	"github.com/yieldland/production-core/internal/tool"
)

type synthFixture struct {
	ledger ledger.Service
	tools  tool.Registry
	engine Engine
}

func newSynthFixture(t *testing.T, seed int64) *synthFixture {
	t.Helper()
	store := memory.NewStore()
	locks := concurrency.NewLockManager(200, time.Millisecond)
	ledgerSvc := ledger.NewService(store, locks)
	tools := tool.NewRegistry(store)
	engine := NewEngine(ledgerSvc, tools, DefaultTable(), event.NewMemoryBus(), rand.New(rand.NewSource(seed)))
	return &synthFixture{ledger: ledgerSvc, tools: tools, engine: engine}
}

// replaySuccesses replays the engine's per-unit draws with an identically
// seeded generator, giving the exact expected success count.
func replaySuccesses(seed int64, quantity int, rate float64) int {
	rng := rand.New(rand.NewSource(seed))
	n := 0
	for i := 0; i < quantity; i++ {
		if rng.Float64() < rate {
			n++
		}
	}
	return n
}

func TestSynthesizeToolDebitsFullCost(t *testing.T) {
	ctx := context.Background()
	const seed = 42
	f := newSynthFixture(t, seed)

	_, err := f.ledger.Credit(ctx, "alice", domain.ResourceIron, 10)
	require.NoError(t, err)
	_, err = f.ledger.Credit(ctx, "alice", domain.ResourceWood, 10)
	require.NoError(t, err)

	result, err := f.engine.SynthesizeTool(ctx, "alice", domain.OutputPickaxe, 3)
	require.NoError(t, err)

	// Pickaxe costs 2 iron + 1 wood per unit; the full cost for 3 units is
	// consumed whether or not every draw succeeds.
	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 6.0, result.ResourcesConsumed[domain.ResourceIron])
	assert.Equal(t, 3.0, result.ResourcesConsumed[domain.ResourceWood])

	iron, err := f.ledger.GetBalance(ctx, "alice", domain.ResourceIron)
	require.NoError(t, err)
	assert.Equal(t, 4.0, iron.Amount)
	wood, err := f.ledger.GetBalance(ctx, "alice", domain.ResourceWood)
	require.NoError(t, err)
	assert.Equal(t, 7.0, wood.Amount)

	want := replaySuccesses(seed, 3, 0.9)
	assert.Equal(t, want, result.Succeeded)
	require.Len(t, result.ItemsCreated, want)
	for _, created := range result.ItemsCreated {
		assert.Equal(t, domain.ToolPickaxe, created.Type)
		assert.Equal(t, "alice", created.Owner)
		assert.Equal(t, domain.MaxDurability, created.Durability)
		assert.Equal(t, domain.ToolIdle, created.Status)
	}

	_, total, err := f.tools.ListByOwner(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, want, total)
}

func TestSynthesizeToolInsufficientResources(t *testing.T) {
	ctx := context.Background()
	f := newSynthFixture(t, 1)

	_, err := f.ledger.Credit(ctx, "alice", domain.ResourceIron, 1)
	require.NoError(t, err)

	_, err = f.engine.SynthesizeTool(ctx, "alice", domain.OutputPickaxe, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientResources)

	// Nothing moved and nothing was minted.
	iron, err := f.ledger.GetBalance(ctx, "alice", domain.ResourceIron)
	require.NoError(t, err)
	assert.Equal(t, 1.0, iron.Amount)

	_, total, err := f.tools.ListByOwner(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestSynthesizeToolQuantityBounds(t *testing.T) {
	ctx := context.Background()
	f := newSynthFixture(t, 1)

	_, err := f.engine.SynthesizeTool(ctx, "alice", domain.OutputPickaxe, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.engine.SynthesizeTool(ctx, "alice", domain.OutputPickaxe, MaxQuantityPerRequest+1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.engine.SynthesizeTool(ctx, "alice", domain.OutputBrick, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSynthesizeBrick(t *testing.T) {
	ctx := context.Background()
	const seed = 7
	f := newSynthFixture(t, seed)

	_, err := f.ledger.Credit(ctx, "alice", domain.ResourceWood, 10)
	require.NoError(t, err)
	_, err = f.ledger.Credit(ctx, "alice", domain.ResourceStone, 30)
	require.NoError(t, err)

	result, err := f.engine.SynthesizeBrick(ctx, "alice", 4)
	require.NoError(t, err)

	// Brick costs 1 wood + 3 stone per unit and yields 2 bricks per success.
	assert.Equal(t, 4.0, result.ResourcesConsumed[domain.ResourceWood])
	assert.Equal(t, 12.0, result.ResourcesConsumed[domain.ResourceStone])

	want := replaySuccesses(seed, 4, 0.95)
	assert.Equal(t, want, result.Succeeded)
	assert.Equal(t, float64(want*2), result.BricksCreated)

	bricks, err := f.ledger.GetBalance(ctx, "alice", domain.ResourceBrick)
	require.NoError(t, err)
	assert.Equal(t, float64(want*2), bricks.Amount)
}

func TestRecipesListing(t *testing.T) {
	f := newSynthFixture(t, 1)

	recipes := f.engine.Recipes()
	require.Len(t, recipes, 4)
	// Sorted by output name.
	assert.Equal(t, domain.OutputAxe, recipes[0].Output)
	assert.Equal(t, domain.OutputBrick, recipes[1].Output)
	assert.Equal(t, domain.OutputHoe, recipes[2].Output)
	assert.Equal(t, domain.OutputPickaxe, recipes[3].Output)
}
