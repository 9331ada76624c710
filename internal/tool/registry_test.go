package tool

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/repository/memory"
)

func newTestRegistry() Registry {
	return NewRegistry(memory.NewStore())
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry()

	first, err := reg.Create(ctx, "alice", domain.ToolPickaxe, 0)
	require.NoError(t, err)
	second, err := reg.Create(ctx, "alice", domain.ToolPickaxe, 0)
	require.NoError(t, err)

	idPattern := regexp.MustCompile(`^PIC-\d{8}-\d{6}$`)
	assert.Regexp(t, idPattern, first.ID)
	assert.Regexp(t, idPattern, second.ID)
	assert.NotEqual(t, first.ID, second.ID)

	assert.Equal(t, domain.ToolIdle, first.Status)
	assert.Equal(t, domain.MaxDurability, first.Durability)
	assert.Equal(t, domain.MaxDurability, first.MaxDurability)
	assert.Equal(t, "alice", first.Owner)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry()

	_, err := reg.Create(ctx, "alice", domain.ToolType("shovel"), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetUnknownTool(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry()

	_, err := reg.Get(ctx, "PIC-20260831-999999")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestBindUnbindLifecycle(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry()

	created, err := reg.Create(ctx, "alice", domain.ToolAxe, 0)
	require.NoError(t, err)

	bound, err := reg.Bind(ctx, created.ID, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ToolWorking, bound.Status)
	assert.Equal(t, "sess-1", bound.BoundSessionID)

	// Already working; a second bind must fail.
	_, err = reg.Bind(ctx, created.ID, "sess-2")
	assert.ErrorIs(t, err, domain.ErrToolAlreadyWorking)

	// Unbind verifies the binding.
	_, err = reg.Unbind(ctx, created.ID, "sess-2")
	assert.ErrorIs(t, err, domain.ErrToolNotBound)

	idle, err := reg.Unbind(ctx, created.ID, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ToolIdle, idle.Status)
	assert.Empty(t, idle.BoundSessionID)
}

func TestApplyWearBreaksAndUnbinds(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry()

	created, err := reg.Create(ctx, "alice", domain.ToolPickaxe, 20)
	require.NoError(t, err)
	_, err = reg.Bind(ctx, created.ID, "sess-1")
	require.NoError(t, err)

	worn, err := reg.ApplyWear(ctx, created.ID, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0.0, worn.Durability)
	assert.Equal(t, domain.ToolDamaged, worn.Status)
	assert.Empty(t, worn.BoundSessionID)

	// Damaged tools cannot be bound.
	_, err = reg.Bind(ctx, created.ID, "sess-2")
	assert.ErrorIs(t, err, domain.ErrToolAlreadyWorking)
}

func TestDepositAndListDeposited(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry()

	first, err := reg.Create(ctx, "alice", domain.ToolPickaxe, 0)
	require.NoError(t, err)
	second, err := reg.Create(ctx, "alice", domain.ToolHoe, 0)
	require.NoError(t, err)

	require.NoError(t, reg.Deposit(ctx, "alice", "land-7", []string{first.ID, second.ID}))

	deposited, err := reg.ListDeposited(ctx, "land-7")
	require.NoError(t, err)
	require.Len(t, deposited, 2)
	for _, tl := range deposited {
		assert.Equal(t, domain.ToolWorking, tl.Status)
		assert.Equal(t, domain.DepositBinding("land-7"), tl.BoundSessionID)
	}

	// A deposited tool is no longer idle; depositing it again fails and the
	// whole batch rolls back.
	third, err := reg.Create(ctx, "alice", domain.ToolAxe, 0)
	require.NoError(t, err)
	err = reg.Deposit(ctx, "alice", "land-8", []string{third.ID, first.ID})
	assert.ErrorIs(t, err, domain.ErrToolAlreadyWorking)

	reg.Invalidate(third.ID)
	got, err := reg.Get(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolIdle, got.Status)
}

func TestDepositRejectsForeignTools(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry()

	created, err := reg.Create(ctx, "alice", domain.ToolPickaxe, 0)
	require.NoError(t, err)

	err = reg.Deposit(ctx, "bob", "land-7", []string{created.ID})
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestListByOwnerPagination(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry()

	for i := 0; i < 5; i++ {
		_, err := reg.Create(ctx, "alice", domain.ToolPickaxe, 0)
		require.NoError(t, err)
	}
	_, err := reg.Create(ctx, "bob", domain.ToolAxe, 0)
	require.NoError(t, err)

	page, total, err := reg.ListByOwner(ctx, "alice", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)

	page, total, err = reg.ListByOwner(ctx, "alice", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 1)
}
