package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/logger"
)

type recipeFile struct {
	Version string                   `json:"version"`
	Recipes []domain.SynthesisRecipe `json:"recipes"`
}

// Table is the static recipe table, keyed by output.
type Table struct {
	recipes map[domain.SynthesisOutput]domain.SynthesisRecipe
}

// DefaultTable returns the built-in recipe table.
func DefaultTable() *Table {
	t := &Table{recipes: make(map[domain.SynthesisOutput]domain.SynthesisRecipe)}
	for _, r := range []domain.SynthesisRecipe{
		{Output: domain.OutputPickaxe, IronRatio: 2, WoodRatio: 1, OutputQuantity: 1, SuccessRate: 0.9, Durability: domain.MaxDurability},
		{Output: domain.OutputAxe, IronRatio: 1, WoodRatio: 2, OutputQuantity: 1, SuccessRate: 0.9, Durability: domain.MaxDurability},
		{Output: domain.OutputHoe, IronRatio: 1, WoodRatio: 1, OutputQuantity: 1, SuccessRate: 0.9, Durability: domain.MaxDurability},
		{Output: domain.OutputBrick, WoodRatio: 1, StoneRatio: 3, OutputQuantity: 2, SuccessRate: 0.95},
	} {
		t.recipes[r.Output] = r
	}
	return t
}

// LoadTable reads a recipe table from a JSON file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file %s: %w", path, err)
	}

	var file recipeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse recipe file %s: %w", path, err)
	}
	if len(file.Recipes) == 0 {
		return nil, fmt.Errorf("recipe file %s contains no recipes", path)
	}

	t := &Table{recipes: make(map[domain.SynthesisOutput]domain.SynthesisRecipe, len(file.Recipes))}
	for i, r := range file.Recipes {
		if err := validateRecipe(r); err != nil {
			return nil, fmt.Errorf("recipe %d in %s: %w", i, path, err)
		}
		if _, dup := t.recipes[r.Output]; dup {
			return nil, fmt.Errorf("recipe file %s: duplicate output %q", path, r.Output)
		}
		if _, isTool := r.Output.ToolType(); isTool && r.Durability <= 0 {
			r.Durability = domain.MaxDurability
		}
		t.recipes[r.Output] = r
	}
	return t, nil
}

// LoadTableOrDefault loads the table from path, falling back to the built-in
// defaults when the file is absent or invalid.
func LoadTableOrDefault(ctx context.Context, path string) *Table {
	log := logger.FromContext(ctx)
	if path == "" {
		return DefaultTable()
	}
	t, err := LoadTable(path)
	if err != nil {
		log.Warn("Falling back to built-in recipes", "path", path, "error", err)
		return DefaultTable()
	}
	log.Info("Recipe table loaded", "path", path, "recipes", len(t.recipes))
	return t
}

func validateRecipe(r domain.SynthesisRecipe) error {
	if _, isTool := r.Output.ToolType(); !isTool && r.Output != domain.OutputBrick {
		return fmt.Errorf("unknown output %q", r.Output)
	}
	if r.SuccessRate < 0 || r.SuccessRate > 1 {
		return fmt.Errorf("success_rate %v out of [0,1]", r.SuccessRate)
	}
	if r.OutputQuantity < 1 {
		return fmt.Errorf("output_quantity must be >= 1, got %d", r.OutputQuantity)
	}
	if r.IronRatio < 0 || r.WoodRatio < 0 || r.StoneRatio < 0 || r.YLDCost < 0 {
		return fmt.Errorf("negative cost ratio")
	}
	if len(r.Cost(1)) == 0 {
		return fmt.Errorf("recipe for %q has no cost", r.Output)
	}
	return nil
}

// Recipe returns the recipe for the given output or domain.ErrRecipeNotFound.
func (t *Table) Recipe(output domain.SynthesisOutput) (domain.SynthesisRecipe, error) {
	r, ok := t.recipes[output]
	if !ok {
		return domain.SynthesisRecipe{}, fmt.Errorf("%w: %s", domain.ErrRecipeNotFound, output)
	}
	return r, nil
}

// Recipes returns all recipes sorted by output for stable listings.
func (t *Table) Recipes() []domain.SynthesisRecipe {
	out := make([]domain.SynthesisRecipe, 0, len(t.recipes))
	for _, r := range t.recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Output < out[j].Output })
	return out
}
