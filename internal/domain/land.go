package domain

// LandKind classifies a plot of land. Ownership and pricing live in an
// external service; the core only needs the kind to derive production rates.
type LandKind string

const (
	LandMine   LandKind = "mine"
	LandForest LandKind = "forest"
	LandQuarry LandKind = "quarry"
	LandFarm   LandKind = "farm"
)

// Valid reports whether k is a known land kind.
func (k LandKind) Valid() bool {
	switch k {
	case LandMine, LandForest, LandQuarry, LandFarm:
		return true
	}
	return false
}

// LandProfile is the static production profile of a land kind.
type LandProfile struct {
	Kind             LandKind     `yaml:"kind" json:"kind"`
	Produces         ResourceType `yaml:"produces" json:"produces"`
	OutputMultiplier float64      `yaml:"output_multiplier" json:"output_multiplier"`
	BaseGrainRate    float64      `yaml:"base_grain_rate" json:"base_grain_rate"` // grain/hour per bound tool
	TaxRate          float64      `yaml:"tax_rate" json:"tax_rate"`
}
