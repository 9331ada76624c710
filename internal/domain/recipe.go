package domain

// SynthesisOutput identifies what a recipe produces.
type SynthesisOutput string

const (
	OutputPickaxe SynthesisOutput = "pickaxe"
	OutputAxe     SynthesisOutput = "axe"
	OutputHoe     SynthesisOutput = "hoe"
	OutputBrick   SynthesisOutput = "brick"
)

// ToolType returns the tool type for tool-producing recipes.
// ok is false for brick.
func (o SynthesisOutput) ToolType() (ToolType, bool) {
	switch o {
	case OutputPickaxe:
		return ToolPickaxe, true
	case OutputAxe:
		return ToolAxe, true
	case OutputHoe:
		return ToolHoe, true
	}
	return "", false
}

// SynthesisRecipe is a static crafting recipe. Immutable configuration,
// not user-owned state.
type SynthesisRecipe struct {
	Output         SynthesisOutput `json:"output"`
	IronRatio      float64         `json:"iron_ratio"`
	WoodRatio      float64         `json:"wood_ratio"`
	StoneRatio     float64         `json:"stone_ratio,omitempty"` // brick only
	YLDCost        float64         `json:"yld_cost"`
	OutputQuantity int             `json:"output_quantity"`
	SuccessRate    float64         `json:"success_rate"` // in [0,1]
	Durability     float64         `json:"durability,omitempty"`
}

// Cost returns the total resource cost for crafting quantity units,
// omitting zero components.
func (r SynthesisRecipe) Cost(quantity int) map[ResourceType]float64 {
	q := float64(quantity)
	cost := make(map[ResourceType]float64)
	if r.IronRatio > 0 {
		cost[ResourceIron] = r.IronRatio * q
	}
	if r.WoodRatio > 0 {
		cost[ResourceWood] = r.WoodRatio * q
	}
	if r.StoneRatio > 0 {
		cost[ResourceStone] = r.StoneRatio * q
	}
	if r.YLDCost > 0 {
		cost[ResourceYLD] = r.YLDCost * q
	}
	return cost
}
