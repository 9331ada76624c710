package tool

import "github.com/yieldland/production-core/internal/domain"

// Base production per hour of work, by tool type, before the land multiplier
// is applied.
var baseRatePerHour = map[domain.ToolType]float64{
	domain.ToolPickaxe: 10.0,
	domain.ToolAxe:     8.0,
	domain.ToolHoe:     6.0,
}

// BaseRate returns the base output per hour for the tool type.
func BaseRate(t domain.ToolType) float64 {
	if rate, ok := baseRatePerHour[t]; ok {
		return rate
	}
	return baseRatePerHour[domain.ToolPickaxe]
}
