package domain

import "time"

// ToolType identifies the kind of production tool.
type ToolType string

const (
	ToolPickaxe ToolType = "pickaxe"
	ToolAxe     ToolType = "axe"
	ToolHoe     ToolType = "hoe"
)

// Valid reports whether t is a known tool type.
func (t ToolType) Valid() bool {
	switch t {
	case ToolPickaxe, ToolAxe, ToolHoe:
		return true
	}
	return false
}

// KindCode returns the short code used as the tool ID prefix.
func (t ToolType) KindCode() string {
	switch t {
	case ToolPickaxe:
		return "PIC"
	case ToolAxe:
		return "AXE"
	case ToolHoe:
		return "HOE"
	}
	return "UNK"
}

// ToolStatus is the lifecycle state of a tool.
type ToolStatus string

const (
	ToolIdle    ToolStatus = "idle"
	ToolWorking ToolStatus = "working"
	ToolDamaged ToolStatus = "damaged"
)

// MaxDurability is the durability every tool is created with, for all types.
const MaxDurability = 1500.0

// DepositBinding is the binding key used when a tool is deposited on a land
// awaiting a hired session, rather than bound to a running session.
func DepositBinding(landID string) string {
	return "deposit:" + landID
}

// Tool is a durable production asset owned by a user.
// Invariants: Status == ToolDamaged iff Durability == 0; Status == ToolWorking
// iff BoundSessionID is non-empty; a tool is bound to at most one session.
type Tool struct {
	ID             string     `json:"tool_id"`
	Type           ToolType   `json:"tool_type"`
	Owner          string     `json:"owner"`
	Durability     float64    `json:"durability"`
	MaxDurability  float64    `json:"max_durability"`
	Status         ToolStatus `json:"status"`
	BoundSessionID string     `json:"bound_session_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty"`
}
