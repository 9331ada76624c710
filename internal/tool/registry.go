// Package tool owns tool identity, durability and status lifecycle.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/repository"
)

// Registry defines the tool lifecycle operations.
type Registry interface {
	// Create mints a new tool at full durability in idle status. The
	// resource cost is assumed to be already debited by the caller.
	Create(ctx context.Context, owner string, toolType domain.ToolType, durability float64) (*domain.Tool, error)

	// Get returns the tool or domain.ErrToolNotFound.
	Get(ctx context.Context, toolID string) (*domain.Tool, error)

	// ListByOwner returns a page of the owner's tools plus the total count.
	ListByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.Tool, int, error)

	// Bind attaches an idle tool to a session; ErrToolAlreadyWorking if not idle.
	Bind(ctx context.Context, toolID, sessionID string) (*domain.Tool, error)

	// Unbind detaches the tool from the given session, returning it to idle
	// (or damaged when durability is 0).
	Unbind(ctx context.Context, toolID, sessionID string) (*domain.Tool, error)

	// ApplyWear decrements durability for elapsed working time, breaking
	// the tool when it reaches zero.
	ApplyWear(ctx context.Context, toolID string, elapsed time.Duration) (*domain.Tool, error)

	// Deposit parks idle tools on a land for a later hired session.
	Deposit(ctx context.Context, owner, landID string, toolIDs []string) error

	// ListDeposited returns tools parked on the land.
	ListDeposited(ctx context.Context, landID string) ([]domain.Tool, error)

	// Invalidate drops the tool from the read cache. Callers that mutate
	// tools inside their own transactions (settlement, session manager)
	// must invalidate after commit.
	Invalidate(toolID string)
}

type registry struct {
	store repository.Store
	cache *toolCache
}

// NewRegistry creates a new tool registry
func NewRegistry(store repository.Store) Registry {
	return &registry{
		store: store,
		cache: newToolCache(cacheSize, cacheTTL),
	}
}

func (r *registry) Create(ctx context.Context, owner string, toolType domain.ToolType, durability float64) (*domain.Tool, error) {
	log := logger.FromContext(ctx)

	if !toolType.Valid() {
		return nil, fmt.Errorf("%w: unknown tool type %q", domain.ErrInvalidInput, toolType)
	}
	if durability <= 0 {
		durability = domain.MaxDurability
	}

	now := time.Now()
	day := now.UTC().Format("20060102")
	seq, err := r.store.NextToolSequence(ctx, toolType.KindCode(), day)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve tool sequence: %w", err)
	}

	t := domain.Tool{
		ID:            fmt.Sprintf("%s-%s-%06d", toolType.KindCode(), day, seq),
		Type:          toolType,
		Owner:         owner,
		Durability:    durability,
		MaxDurability: durability,
		Status:        domain.ToolIdle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.store.CreateTool(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tool: %w", err)
	}

	log.Info("Tool created", "toolID", t.ID, "type", toolType, "owner", owner)
	r.cache.Set(&t)
	return &t, nil
}

func (r *registry) Get(ctx context.Context, toolID string) (*domain.Tool, error) {
	if t, ok := r.cache.Get(toolID); ok {
		return t, nil
	}
	t, err := r.store.GetTool(ctx, toolID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(t)
	return t, nil
}

func (r *registry) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.Tool, int, error) {
	return r.store.ListToolsByOwner(ctx, owner, limit, offset)
}

func (r *registry) Bind(ctx context.Context, toolID, sessionID string) (*domain.Tool, error) {
	t, err := r.store.GetTool(ctx, toolID)
	if err != nil {
		return nil, err
	}
	if err := BindTool(t, sessionID); err != nil {
		return nil, err
	}
	if err := r.store.SaveTool(ctx, *t); err != nil {
		return nil, fmt.Errorf("failed to save tool: %w", err)
	}
	r.cache.Set(t)
	return t, nil
}

func (r *registry) Unbind(ctx context.Context, toolID, sessionID string) (*domain.Tool, error) {
	t, err := r.store.GetTool(ctx, toolID)
	if err != nil {
		return nil, err
	}
	if err := UnbindTool(t, sessionID); err != nil {
		return nil, err
	}
	if err := r.store.SaveTool(ctx, *t); err != nil {
		return nil, fmt.Errorf("failed to save tool: %w", err)
	}
	r.cache.Set(t)
	return t, nil
}

func (r *registry) ApplyWear(ctx context.Context, toolID string, elapsed time.Duration) (*domain.Tool, error) {
	t, err := r.store.GetTool(ctx, toolID)
	if err != nil {
		return nil, err
	}
	_, broke := Wear(t, elapsed)
	t.UpdatedAt = time.Now()
	if err := r.store.SaveTool(ctx, *t); err != nil {
		return nil, fmt.Errorf("failed to save tool: %w", err)
	}
	if broke {
		logger.FromContext(ctx).Info("Tool broke", "toolID", t.ID, "type", t.Type)
	}
	r.cache.Set(t)
	return t, nil
}

func (r *registry) Deposit(ctx context.Context, owner, landID string, toolIDs []string) error {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer repository.SafeRollback(ctx, tx)

	binding := domain.DepositBinding(landID)
	for _, toolID := range toolIDs {
		t, err := tx.GetTool(ctx, toolID)
		if err != nil {
			return err
		}
		if t.Owner != owner {
			return fmt.Errorf("%w: %s", domain.ErrToolNotFound, toolID)
		}
		if t.Status != domain.ToolIdle {
			return fmt.Errorf("%w: %s", domain.ErrToolAlreadyWorking, toolID)
		}
		t.Status = domain.ToolWorking
		t.BoundSessionID = binding
		t.UpdatedAt = time.Now()
		if err := tx.SaveTool(ctx, *t); err != nil {
			return fmt.Errorf("failed to save tool: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, toolID := range toolIDs {
		r.cache.Invalidate(toolID)
	}
	logger.FromContext(ctx).Info("Tools deposited", "owner", owner, "land", landID, "count", len(toolIDs))
	return nil
}

func (r *registry) ListDeposited(ctx context.Context, landID string) ([]domain.Tool, error) {
	return r.store.ListDepositedTools(ctx, landID)
}

func (r *registry) Invalidate(toolID string) {
	r.cache.Invalidate(toolID)
}

// BindTool applies the idle -> working transition in memory.
func BindTool(t *domain.Tool, sessionID string) error {
	if t.Status != domain.ToolIdle {
		return fmt.Errorf("%w: %s is %s", domain.ErrToolAlreadyWorking, t.ID, t.Status)
	}
	t.Status = domain.ToolWorking
	t.BoundSessionID = sessionID
	t.UpdatedAt = time.Now()
	return nil
}

// UnbindTool applies the working -> idle/damaged transition in memory,
// verifying the current binding.
func UnbindTool(t *domain.Tool, sessionID string) error {
	if t.BoundSessionID != sessionID {
		return fmt.Errorf("%w: %s", domain.ErrToolNotBound, t.ID)
	}
	t.BoundSessionID = ""
	if t.Durability > 0 {
		t.Status = domain.ToolIdle
	} else {
		t.Status = domain.ToolDamaged
	}
	t.UpdatedAt = time.Now()
	return nil
}
