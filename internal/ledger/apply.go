package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/repository"
)

// Tx-scoped mutation helpers. Settlement needs ledger mutations inside the
// same transaction as the session and tool updates; callers are responsible
// for holding the relevant ledger key locks before invoking these.

// ApplyCredit increases the balance within the given ops scope.
func ApplyCredit(ctx context.Context, ops repository.LedgerOps, userID string, rt domain.ResourceType, qty float64) (*domain.UserResource, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: credit quantity must be positive, got %v", domain.ErrInvalidInput, qty)
	}
	res, err := ops.GetResource(ctx, userID, rt)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	res.Amount += qty
	res.UpdatedAt = time.Now()
	if err := ops.SaveResource(ctx, *res); err != nil {
		return nil, fmt.Errorf("failed to save resource: %w", err)
	}
	return res, nil
}

// ApplyDebit decreases the balance within the given ops scope, failing with
// ErrInsufficientResources when available < qty.
func ApplyDebit(ctx context.Context, ops repository.LedgerOps, userID string, rt domain.ResourceType, qty float64) (*domain.UserResource, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: debit quantity must be positive, got %v", domain.ErrInvalidInput, qty)
	}
	res, err := ops.GetResource(ctx, userID, rt)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	if res.Available() < qty {
		return nil, fmt.Errorf("%w: need %v %s, have %v available", domain.ErrInsufficientResources, qty, rt, res.Available())
	}
	res.Amount -= qty
	res.UpdatedAt = time.Now()
	if err := ops.SaveResource(ctx, *res); err != nil {
		return nil, fmt.Errorf("failed to save resource: %w", err)
	}
	return res, nil
}
