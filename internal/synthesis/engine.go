// Package synthesis converts raw resources into tools and bricks via the
// static recipe table. Crafting cost is non-refundable: per-unit success is
// drawn after the full cost is debited.
package synthesis

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/event"
	"github.com/yieldland/production-core/internal/ledger"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/metrics"
	"github.com/yieldland/production-core/internal/tool"
)

// MaxQuantityPerRequest bounds a single synthesis request.
const MaxQuantityPerRequest = 100

// Result reports a resolved synthesis request. ResourcesConsumed is the full
// debited cost regardless of how many units succeeded.
type Result struct {
	Output            domain.SynthesisOutput          `json:"output"`
	Attempted         int                             `json:"attempted"`
	Succeeded         int                             `json:"succeeded"`
	ItemsCreated      []domain.Tool                   `json:"items_created"`
	BricksCreated     float64                         `json:"bricks_created,omitempty"`
	ResourcesConsumed map[domain.ResourceType]float64 `json:"resources_consumed"`
}

// Engine defines the synthesis operations.
type Engine interface {
	// SynthesizeTool crafts quantity units of a tool recipe. The full cost
	// is debited atomically up front; each unit then succeeds independently.
	SynthesizeTool(ctx context.Context, userID string, output domain.SynthesisOutput, quantity int) (*Result, error)

	// SynthesizeBrick crafts bricks, crediting the brick balance for each
	// successful unit.
	SynthesizeBrick(ctx context.Context, userID string, quantity int) (*Result, error)

	// Recipes returns the loaded recipe table.
	Recipes() []domain.SynthesisRecipe
}

type engine struct {
	ledger ledger.Service
	tools  tool.Registry
	table  *Table
	bus    event.Bus

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates a new synthesis engine. rng is injected so success draws
// are reproducible under test.
func NewEngine(ledgerSvc ledger.Service, tools tool.Registry, table *Table, bus event.Bus, rng *rand.Rand) Engine {
	return &engine{
		ledger: ledgerSvc,
		tools:  tools,
		table:  table,
		bus:    bus,
		rng:    rng,
	}
}

func (e *engine) SynthesizeTool(ctx context.Context, userID string, output domain.SynthesisOutput, quantity int) (*Result, error) {
	toolType, ok := output.ToolType()
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a tool output", domain.ErrInvalidInput, output)
	}
	recipe, err := e.prepare(output, quantity)
	if err != nil {
		return nil, err
	}

	cost := recipe.Cost(quantity)
	if err := e.ledger.DebitAll(ctx, userID, cost); err != nil {
		return nil, err
	}

	result := &Result{
		Output:            output,
		Attempted:         quantity,
		ResourcesConsumed: cost,
		ItemsCreated:      []domain.Tool{},
	}
	for i := 0; i < quantity; i++ {
		if !e.draw(recipe.SuccessRate) {
			continue
		}
		for j := 0; j < recipe.OutputQuantity; j++ {
			t, err := e.tools.Create(ctx, userID, toolType, recipe.Durability)
			if err != nil {
				return nil, fmt.Errorf("failed to create tool: %w", err)
			}
			result.ItemsCreated = append(result.ItemsCreated, *t)
		}
		result.Succeeded++
	}

	e.finish(ctx, userID, result)
	return result, nil
}

func (e *engine) SynthesizeBrick(ctx context.Context, userID string, quantity int) (*Result, error) {
	recipe, err := e.prepare(domain.OutputBrick, quantity)
	if err != nil {
		return nil, err
	}

	cost := recipe.Cost(quantity)
	if err := e.ledger.DebitAll(ctx, userID, cost); err != nil {
		return nil, err
	}

	result := &Result{
		Output:            domain.OutputBrick,
		Attempted:         quantity,
		ResourcesConsumed: cost,
		ItemsCreated:      []domain.Tool{},
	}
	for i := 0; i < quantity; i++ {
		if e.draw(recipe.SuccessRate) {
			result.Succeeded++
		}
	}
	result.BricksCreated = float64(result.Succeeded * recipe.OutputQuantity)
	if result.BricksCreated > 0 {
		if _, err := e.ledger.Credit(ctx, userID, domain.ResourceBrick, result.BricksCreated); err != nil {
			return nil, fmt.Errorf("failed to credit bricks: %w", err)
		}
	}

	e.finish(ctx, userID, result)
	return result, nil
}

func (e *engine) Recipes() []domain.SynthesisRecipe {
	return e.table.Recipes()
}

func (e *engine) prepare(output domain.SynthesisOutput, quantity int) (domain.SynthesisRecipe, error) {
	if quantity < 1 || quantity > MaxQuantityPerRequest {
		return domain.SynthesisRecipe{}, fmt.Errorf("%w: quantity must be in [1,%d], got %d", domain.ErrInvalidInput, MaxQuantityPerRequest, quantity)
	}
	return e.table.Recipe(output)
}

// draw resolves one unit against the recipe success rate.
func (e *engine) draw(successRate float64) bool {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64() < successRate
}

func (e *engine) finish(ctx context.Context, userID string, result *Result) {
	metrics.SynthesisAttempts.WithLabelValues(string(result.Output)).Add(float64(result.Attempted))
	metrics.SynthesisSuccesses.WithLabelValues(string(result.Output)).Add(float64(result.Succeeded))

	if err := e.bus.Publish(ctx, event.NewSynthesisCompletedEvent(userID, result.Output, result.Attempted, result.Succeeded)); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish synthesis event", "error", err)
	}

	logger.FromContext(ctx).Info("Synthesis resolved",
		"user", userID,
		"output", result.Output,
		"attempted", result.Attempted,
		"succeeded", result.Succeeded)
}
