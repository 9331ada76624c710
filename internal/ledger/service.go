// Package ledger owns per-user, per-resource balances. All balance mutations
// in the system go through this package (or its tx-scoped helpers), which is
// what keeps the conservation invariant checkable in one place.
package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/yieldland/production-core/internal/concurrency"
	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/repository"
)

// Service defines the resource ledger operations.
//
// Operations on the same (user, resource_type) key are linearizable: each one
// holds the key's named lock for the duration of its read-modify-write.
type Service interface {
	// Credit increases the balance. qty must be > 0; credit never fails on
	// balance grounds.
	Credit(ctx context.Context, userID string, rt domain.ResourceType, qty float64) (*domain.UserResource, error)

	// Debit decreases the balance, failing with ErrInsufficientResources
	// when available < qty.
	Debit(ctx context.Context, userID string, rt domain.ResourceType, qty float64) (*domain.UserResource, error)

	// DebitAll debits several resource types atomically: either every
	// component is debited or none is.
	DebitAll(ctx context.Context, userID string, cost map[domain.ResourceType]float64) error

	// Freeze moves qty from available to frozen without changing amount.
	Freeze(ctx context.Context, userID string, rt domain.ResourceType, qty float64) error

	// Unfreeze releases frozen quantity back to available.
	Unfreeze(ctx context.Context, userID string, rt domain.ResourceType, qty float64) error

	// ConsumeFrozen destroys frozen quantity, decreasing amount.
	ConsumeFrozen(ctx context.Context, userID string, rt domain.ResourceType, qty float64) error

	GetBalance(ctx context.Context, userID string, rt domain.ResourceType) (*domain.UserResource, error)
	GetBalances(ctx context.Context, userID string) ([]domain.UserResource, error)
}

type service struct {
	store repository.Store
	locks *concurrency.LockManager
}

// NewService creates a new ledger service
func NewService(store repository.Store, locks *concurrency.LockManager) Service {
	return &service{store: store, locks: locks}
}

// LockKey returns the named-lock key for a (user, resource_type) pair.
// Sorting these keys lexicographically yields the global acquisition order
// for multi-resource operations.
func LockKey(userID string, rt domain.ResourceType) string {
	return "ledger:" + userID + ":" + string(rt)
}

// LockKeys returns the sorted lock keys for a set of resource types.
func LockKeys(userID string, types []domain.ResourceType) []string {
	keys := make([]string, 0, len(types))
	for _, rt := range types {
		keys = append(keys, LockKey(userID, rt))
	}
	sort.Strings(keys)
	return keys
}

func validate(rt domain.ResourceType, qty float64) error {
	if !rt.Valid() {
		return fmt.Errorf("%w: unknown resource type %q", domain.ErrInvalidInput, rt)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %v", domain.ErrInvalidInput, qty)
	}
	return nil
}

func (s *service) Credit(ctx context.Context, userID string, rt domain.ResourceType, qty float64) (*domain.UserResource, error) {
	if err := validate(rt, qty); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, LockKey(userID, rt))
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer repository.SafeRollback(ctx, tx)

	res, err := ApplyCredit(ctx, tx, userID, rt, qty)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.FromContext(ctx).Debug("Resource credited", "user", userID, "type", rt, "qty", qty, "amount", res.Amount)
	return res, nil
}

func (s *service) Debit(ctx context.Context, userID string, rt domain.ResourceType, qty float64) (*domain.UserResource, error) {
	if err := validate(rt, qty); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, LockKey(userID, rt))
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer repository.SafeRollback(ctx, tx)

	res, err := ApplyDebit(ctx, tx, userID, rt, qty)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.FromContext(ctx).Debug("Resource debited", "user", userID, "type", rt, "qty", qty, "amount", res.Amount)
	return res, nil
}

func (s *service) DebitAll(ctx context.Context, userID string, cost map[domain.ResourceType]float64) error {
	types := make([]domain.ResourceType, 0, len(cost))
	for rt, qty := range cost {
		if err := validate(rt, qty); err != nil {
			return err
		}
		types = append(types, rt)
	}
	if len(types) == 0 {
		return nil
	}

	release, err := s.locks.AcquireAll(ctx, LockKeys(userID, types))
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer repository.SafeRollback(ctx, tx)

	// Verify every component first so a short one aborts before any debit.
	for _, rt := range types {
		res, err := tx.GetResource(ctx, userID, rt)
		if err != nil {
			return fmt.Errorf("failed to get resource: %w", err)
		}
		if res.Available() < cost[rt] {
			return fmt.Errorf("%w: need %v %s, have %v available", domain.ErrInsufficientResources, cost[rt], rt, res.Available())
		}
	}
	for _, rt := range types {
		if _, err := ApplyDebit(ctx, tx, userID, rt, cost[rt]); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.FromContext(ctx).Debug("Resources debited", "user", userID, "cost", cost)
	return nil
}

func (s *service) Freeze(ctx context.Context, userID string, rt domain.ResourceType, qty float64) error {
	return s.mutateFrozen(ctx, userID, rt, qty, frozenFreeze)
}

func (s *service) Unfreeze(ctx context.Context, userID string, rt domain.ResourceType, qty float64) error {
	return s.mutateFrozen(ctx, userID, rt, qty, frozenUnfreeze)
}

func (s *service) ConsumeFrozen(ctx context.Context, userID string, rt domain.ResourceType, qty float64) error {
	return s.mutateFrozen(ctx, userID, rt, qty, frozenConsume)
}

type frozenOp int

const (
	frozenFreeze frozenOp = iota
	frozenUnfreeze
	frozenConsume
)

func (s *service) mutateFrozen(ctx context.Context, userID string, rt domain.ResourceType, qty float64, op frozenOp) error {
	if err := validate(rt, qty); err != nil {
		return err
	}

	release, err := s.locks.Acquire(ctx, LockKey(userID, rt))
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer repository.SafeRollback(ctx, tx)

	res, err := tx.GetResource(ctx, userID, rt)
	if err != nil {
		return fmt.Errorf("failed to get resource: %w", err)
	}

	switch op {
	case frozenFreeze:
		if res.Available() < qty {
			return fmt.Errorf("%w: cannot freeze %v %s, %v available", domain.ErrInsufficientResources, qty, rt, res.Available())
		}
		res.FrozenAmount += qty
	case frozenUnfreeze:
		if res.FrozenAmount < qty {
			return fmt.Errorf("%w: cannot unfreeze %v %s, %v frozen", domain.ErrInsufficientResources, qty, rt, res.FrozenAmount)
		}
		res.FrozenAmount -= qty
	case frozenConsume:
		if res.FrozenAmount < qty {
			return fmt.Errorf("%w: cannot consume %v %s, %v frozen", domain.ErrInsufficientResources, qty, rt, res.FrozenAmount)
		}
		res.FrozenAmount -= qty
		res.Amount -= qty
	}

	if err := tx.SaveResource(ctx, *res); err != nil {
		return fmt.Errorf("failed to save resource: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *service) GetBalance(ctx context.Context, userID string, rt domain.ResourceType) (*domain.UserResource, error) {
	if !rt.Valid() {
		return nil, fmt.Errorf("%w: unknown resource type %q", domain.ErrInvalidInput, rt)
	}
	return s.store.GetResource(ctx, userID, rt)
}

func (s *service) GetBalances(ctx context.Context, userID string) ([]domain.UserResource, error) {
	return s.store.ListResources(ctx, userID)
}
