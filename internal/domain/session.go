package domain

import "time"

// MiningType distinguishes who supplies the labor and the tools.
type MiningType string

const (
	MiningSelf             MiningType = "self"
	MiningHiredWithTool    MiningType = "hired_with_tool"
	MiningHiredWithoutTool MiningType = "hired_without_tool"
)

// Valid reports whether t is a known mining type.
func (t MiningType) Valid() bool {
	switch t {
	case MiningSelf, MiningHiredWithTool, MiningHiredWithoutTool:
		return true
	}
	return false
}

// SessionStatus is the state of a mining session. Completed is terminal.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// MiningSession is a long-lived, time-accruing production session.
//
// AccumulatedOutput and AccumulatedTax are monotonically non-decreasing and
// only mutated by settlement. EndTime is set exactly once, at the transition
// into completed; no mutation is accepted afterwards.
type MiningSession struct {
	ID        string     `json:"session_id"`
	UserID    string     `json:"user_id"`
	LandID    string     `json:"land_id"`
	LandKind  LandKind   `json:"land_kind"`
	LandOwner string     `json:"land_owner,omitempty"`
	Type      MiningType `json:"mining_type"`

	Status SessionStatus `json:"status"`

	// Rates are fixed at session start or tool-set change, never
	// retroactively applied to already-elapsed time.
	OutputRate    float64 `json:"output_rate"`     // produced resource per hour
	TaxRate       float64 `json:"tax_rate"`        // fraction of gross output
	UserShareRate float64 `json:"user_share_rate"` // fraction of gross output
	GrainRate     float64 `json:"grain_rate"`      // grain consumed per hour

	// Produced is the resource type this session generates, derived from
	// the land kind at start.
	Produced ResourceType `json:"resource_type"`

	// ToolIDs is the ordered set of bound tools.
	ToolIDs []string `json:"tool_ids"`

	AccumulatedOutput float64 `json:"accumulated_output"`
	AccumulatedTax    float64 `json:"accumulated_tax"`

	StartTime          time.Time  `json:"start_time"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	LastSettlementTime time.Time  `json:"last_settlement_time"`
}

// HasTool reports whether the tool is in the session's bound set.
func (s *MiningSession) HasTool(toolID string) bool {
	for _, id := range s.ToolIDs {
		if id == toolID {
			return true
		}
	}
	return false
}

// RemoveTool drops the tool from the bound set, preserving order.
// Returns false if the tool was not bound.
func (s *MiningSession) RemoveTool(toolID string) bool {
	for i, id := range s.ToolIDs {
		if id == toolID {
			s.ToolIDs = append(s.ToolIDs[:i], s.ToolIDs[i+1:]...)
			return true
		}
	}
	return false
}
