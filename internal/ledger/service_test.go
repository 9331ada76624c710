package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldland/production-core/internal/concurrency"
	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/repository/memory"
)

func newTestService() Service {
	store := memory.NewStore()
	locks := concurrency.NewLockManager(200, time.Millisecond)
	return NewService(store, locks)
}

func TestCreditThenDebit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	res, err := svc.Credit(ctx, "alice", domain.ResourceIron, 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Amount)

	res, err = svc.Debit(ctx, "alice", domain.ResourceIron, 4)
	require.NoError(t, err)
	assert.Equal(t, 6.0, res.Amount)
	assert.Equal(t, 6.0, res.Available())
}

func TestDebitInsufficient(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Credit(ctx, "alice", domain.ResourceIron, 5)
	require.NoError(t, err)

	_, err = svc.Debit(ctx, "alice", domain.ResourceIron, 6)
	assert.ErrorIs(t, err, domain.ErrInsufficientResources)

	// Balance must be untouched by the failed debit.
	res, err := svc.GetBalance(ctx, "alice", domain.ResourceIron)
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Amount)
}

func TestDebitUnknownUserFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Debit(ctx, "nobody", domain.ResourceWood, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientResources)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Credit(ctx, "alice", domain.ResourceType("plutonium"), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Credit(ctx, "alice", domain.ResourceIron, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Debit(ctx, "alice", domain.ResourceIron, -3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDebitAllAtomic(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Credit(ctx, "alice", domain.ResourceIron, 10)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, "alice", domain.ResourceWood, 2)
	require.NoError(t, err)

	// Wood is short, so nothing may move.
	err = svc.DebitAll(ctx, "alice", map[domain.ResourceType]float64{
		domain.ResourceIron: 6,
		domain.ResourceWood: 3,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientResources)

	iron, err := svc.GetBalance(ctx, "alice", domain.ResourceIron)
	require.NoError(t, err)
	assert.Equal(t, 10.0, iron.Amount)
	wood, err := svc.GetBalance(ctx, "alice", domain.ResourceWood)
	require.NoError(t, err)
	assert.Equal(t, 2.0, wood.Amount)

	err = svc.DebitAll(ctx, "alice", map[domain.ResourceType]float64{
		domain.ResourceIron: 6,
		domain.ResourceWood: 1,
	})
	require.NoError(t, err)

	iron, err = svc.GetBalance(ctx, "alice", domain.ResourceIron)
	require.NoError(t, err)
	assert.Equal(t, 4.0, iron.Amount)
	wood, err = svc.GetBalance(ctx, "alice", domain.ResourceWood)
	require.NoError(t, err)
	assert.Equal(t, 1.0, wood.Amount)
}

func TestFreezeLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Credit(ctx, "alice", domain.ResourceYLD, 10)
	require.NoError(t, err)

	require.NoError(t, svc.Freeze(ctx, "alice", domain.ResourceYLD, 4))

	res, err := svc.GetBalance(ctx, "alice", domain.ResourceYLD)
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Amount)
	assert.Equal(t, 4.0, res.FrozenAmount)
	assert.Equal(t, 6.0, res.Available())

	// Frozen quantity is not debitable.
	_, err = svc.Debit(ctx, "alice", domain.ResourceYLD, 7)
	assert.ErrorIs(t, err, domain.ErrInsufficientResources)

	require.NoError(t, svc.Unfreeze(ctx, "alice", domain.ResourceYLD, 2))
	require.NoError(t, svc.ConsumeFrozen(ctx, "alice", domain.ResourceYLD, 2))

	res, err = svc.GetBalance(ctx, "alice", domain.ResourceYLD)
	require.NoError(t, err)
	assert.Equal(t, 8.0, res.Amount)
	assert.Equal(t, 0.0, res.FrozenAmount)

	err = svc.Unfreeze(ctx, "alice", domain.ResourceYLD, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientResources)
}

func TestConcurrentDebitsConserveBalance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Credit(ctx, "alice", domain.ResourceIron, 50)
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(ctx, "alice", domain.ResourceIron, 10); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	res, err := svc.GetBalance(ctx, "alice", domain.ResourceIron)
	require.NoError(t, err)
	assert.Equal(t, 50.0-10.0*float64(succeeded), res.Amount)
	assert.GreaterOrEqual(t, res.Amount, 0.0)
	assert.LessOrEqual(t, succeeded, 5)
}

func TestLockKeysSorted(t *testing.T) {
	keys := LockKeys("alice", []domain.ResourceType{domain.ResourceWood, domain.ResourceGrain, domain.ResourceIron})
	require.Len(t, keys, 3)
	assert.Equal(t, "ledger:alice:grain", keys[0])
	assert.Equal(t, "ledger:alice:iron", keys[1])
	assert.Equal(t, "ledger:alice:wood", keys[2])
}
