package domain

import "time"

// ResourceType identifies a resource denomination tracked by the ledger.
type ResourceType string

const (
	ResourceWood  ResourceType = "wood"
	ResourceIron  ResourceType = "iron"
	ResourceStone ResourceType = "stone"
	ResourceYLD   ResourceType = "yld"
	ResourceGrain ResourceType = "grain"
	ResourceSeed  ResourceType = "seed"
	ResourceBrick ResourceType = "brick"
)

// AllResourceTypes lists every valid resource type in lexicographic order,
// which is also the global lock acquisition order for multi-resource
// operations.
var AllResourceTypes = []ResourceType{
	ResourceBrick,
	ResourceGrain,
	ResourceIron,
	ResourceSeed,
	ResourceStone,
	ResourceWood,
	ResourceYLD,
}

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceWood, ResourceIron, ResourceStone, ResourceYLD, ResourceGrain, ResourceSeed, ResourceBrick:
		return true
	}
	return false
}

// UserResource is a single (user, resource_type) balance row.
// Invariants: Amount >= 0, 0 <= FrozenAmount <= Amount.
type UserResource struct {
	UserID       string       `json:"user_id"`
	ResourceType ResourceType `json:"resource_type"`
	Amount       float64      `json:"amount"`
	FrozenAmount float64      `json:"frozen_amount"`
	UpdatedAt    time.Time    `json:"updated_at,omitempty"`
}

// Available returns the spendable portion of the balance.
func (r UserResource) Available() float64 {
	return r.Amount - r.FrozenAmount
}
