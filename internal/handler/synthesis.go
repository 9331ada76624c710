package handler

import (
	"net/http"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/synthesis"
)

// SynthesizeToolRequest crafts tools from raw resources.
type SynthesizeToolRequest struct {
	UserID   string `json:"user_id" validate:"required,max=100"`
	ToolType string `json:"tool_type" validate:"required,tool_output"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=100"`
}

// SynthesizeBrickRequest crafts bricks from raw resources.
type SynthesizeBrickRequest struct {
	UserID   string `json:"user_id" validate:"required,max=100"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=100"`
}

// SynthesisHandler handles synthesis HTTP requests
type SynthesisHandler struct {
	engine synthesis.Engine
}

// NewSynthesisHandler creates a new synthesis handler
func NewSynthesisHandler(engine synthesis.Engine) *SynthesisHandler {
	return &SynthesisHandler{engine: engine}
}

// HandleSynthesizeTool crafts tools. The full resource cost is debited even
// when some units fail their success draw.
func (h *SynthesisHandler) HandleSynthesizeTool(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req SynthesizeToolRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Synthesize tool"); err != nil {
		return
	}

	result, err := h.engine.SynthesizeTool(r.Context(), req.UserID, domain.SynthesisOutput(req.ToolType), req.Quantity)
	if err != nil {
		log.Error("Synthesis failed", "user", req.UserID, "tool_type", req.ToolType, "error", err)
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Synthesis complete", result)
}

// HandleSynthesizeBrick crafts bricks.
func (h *SynthesisHandler) HandleSynthesizeBrick(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req SynthesizeBrickRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Synthesize brick"); err != nil {
		return
	}

	result, err := h.engine.SynthesizeBrick(r.Context(), req.UserID, req.Quantity)
	if err != nil {
		log.Error("Brick synthesis failed", "user", req.UserID, "error", err)
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Synthesis complete", result)
}

// HandleGetRecipes returns the static recipe table.
func (h *SynthesisHandler) HandleGetRecipes(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, "", h.engine.Recipes())
}
