package handler

import (
	"net/http"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/tool"
)

// ToolListStats aggregates the tools returned in one page.
type ToolListStats struct {
	IdleCount    int `json:"idle_count"`
	WorkingCount int `json:"working_count"`
	DamagedCount int `json:"damaged_count"`
}

// ToolHandler handles tool read requests
type ToolHandler struct {
	tools tool.Registry
}

// NewToolHandler creates a new tool handler
func NewToolHandler(tools tool.Registry) *ToolHandler {
	return &ToolHandler{tools: tools}
}

// HandleGetTool returns one tool.
func (h *ToolHandler) HandleGetTool(w http.ResponseWriter, r *http.Request) {
	toolID, ok := GetQueryParam(r, w, "tool_id")
	if !ok {
		return
	}

	t, err := h.tools.Get(r.Context(), toolID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "", t)
}

// HandleListTools returns the owner's tools, paginated with status counts.
func (h *ToolHandler) HandleListTools(w http.ResponseWriter, r *http.Request) {
	owner, ok := GetQueryParam(r, w, "owner")
	if !ok {
		return
	}
	limit, offset := ParsePagination(r)

	tools, total, err := h.tools.ListByOwner(r.Context(), owner, limit, offset)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list tools", "owner", owner, "error", err)
		respondServiceError(w, err)
		return
	}

	stats := ToolListStats{}
	for i := range tools {
		switch tools[i].Status {
		case domain.ToolIdle:
			stats.IdleCount++
		case domain.ToolWorking:
			stats.WorkingCount++
		case domain.ToolDamaged:
			stats.DamagedCount++
		}
	}

	respondSuccess(w, http.StatusOK, "", NewPage(r, total, limit, offset, tools, stats))
}
