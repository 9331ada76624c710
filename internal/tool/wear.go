package tool

import (
	"time"

	"github.com/yieldland/production-core/internal/domain"
)

// Durability lost per hour of working time, by tool type. Heavier tools wear
// faster.
var wearPerHour = map[domain.ToolType]float64{
	domain.ToolPickaxe: 25.0,
	domain.ToolAxe:     20.0,
	domain.ToolHoe:     15.0,
}

// WearRate returns the durability consumed per hour of work for the tool type.
func WearRate(t domain.ToolType) float64 {
	if rate, ok := wearPerHour[t]; ok {
		return rate
	}
	return wearPerHour[domain.ToolPickaxe]
}

// Wear mutates the tool for elapsed working time: durability decreases
// deterministically, clamped at 0. When durability hits 0 the tool is marked
// damaged and forcibly unbound. Returns the durability consumed and whether
// the tool broke in this application.
func Wear(t *domain.Tool, elapsed time.Duration) (consumed float64, broke bool) {
	if elapsed <= 0 || t.Durability <= 0 {
		return 0, false
	}
	consumed = WearRate(t.Type) * elapsed.Hours()
	if consumed >= t.Durability {
		consumed = t.Durability
		t.Durability = 0
		t.Status = domain.ToolDamaged
		t.BoundSessionID = ""
		return consumed, true
	}
	t.Durability -= consumed
	return consumed, false
}
