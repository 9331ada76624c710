package handler

import (
	"net/http"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/mining"
)

// StartMiningRequest starts a session on a land. ToolIDs is required for
// self and hired-with-tool sessions and ignored for hired-without-tool.
type StartMiningRequest struct {
	UserID    string   `json:"user_id" validate:"required,max=100"`
	LandID    string   `json:"land_id" validate:"required,max=100"`
	LandKind  string   `json:"land_kind" validate:"required,land_kind"`
	LandOwner string   `json:"land_owner,omitempty" validate:"max=100"`
	ToolIDs   []string `json:"tool_ids,omitempty" validate:"max=20,dive,required"`
}

// SessionToolRequest targets one tool in one session.
type SessionToolRequest struct {
	UserID    string `json:"user_id" validate:"required,max=100"`
	SessionID string `json:"session_id" validate:"required"`
	ToolID    string `json:"tool_id" validate:"required"`
}

// SessionRequest targets one session.
type SessionRequest struct {
	UserID    string `json:"user_id" validate:"required,max=100"`
	SessionID string `json:"session_id" validate:"required"`
}

// DepositToolsRequest parks idle tools on a land.
type DepositToolsRequest struct {
	UserID  string   `json:"user_id" validate:"required,max=100"`
	LandID  string   `json:"land_id" validate:"required,max=100"`
	ToolIDs []string `json:"tool_ids" validate:"required,min=1,max=20,dive,required"`
}

// AddToolResponse carries the session with its recomputed rate.
type AddToolResponse struct {
	Session       *domain.MiningSession `json:"session"`
	NewOutputRate float64               `json:"new_output_rate"`
}

// RemoveToolResponse reports the removed tool's durability.
type RemoveToolResponse struct {
	ToolID              string  `json:"tool_id"`
	DurabilityConsumed  float64 `json:"durability_consumed"`
	RemainingDurability float64 `json:"remaining_durability"`
	NewOutputRate       float64 `json:"new_output_rate"`
}

// CollectResponse reports output realized by an on-demand settlement.
type CollectResponse struct {
	SessionID  string              `json:"session_id"`
	Collected  float64             `json:"collected_amount"`
	Resource   domain.ResourceType `json:"resource_type"`
	NewBalance float64             `json:"new_balance"`
}

// SessionListStats aggregates the sessions returned in one page.
type SessionListStats struct {
	ActiveCount       int     `json:"active_count"`
	PausedCount       int     `json:"paused_count"`
	CompletedCount    int     `json:"completed_count"`
	AccumulatedOutput float64 `json:"accumulated_output"`
	AccumulatedTax    float64 `json:"accumulated_tax"`
}

// MiningHandler handles mining session HTTP requests
type MiningHandler struct {
	manager mining.Manager
}

// NewMiningHandler creates a new mining handler
func NewMiningHandler(manager mining.Manager) *MiningHandler {
	return &MiningHandler{manager: manager}
}

type startFunc func(r *http.Request, req *StartMiningRequest) (*mining.StartResult, error)

func (h *MiningHandler) handleStart(w http.ResponseWriter, r *http.Request, action string, start startFunc) {
	log := logger.FromContext(r.Context())

	var req StartMiningRequest
	if err := DecodeAndValidateRequest(r, w, &req, action); err != nil {
		return
	}

	result, err := start(r, &req)
	if err != nil {
		log.Error("Failed to start mining", "action", action, "user", req.UserID, "land", req.LandID, "error", err)
		respondServiceError(w, err)
		return
	}

	var warnings []string
	if result.Warning != nil {
		warnings = append(warnings, WarnMsgGrainInsufficient)
	}
	respondSuccessWarn(w, http.StatusCreated, "Mining session started", result.Session, warnings)
}

// HandleStartSelf starts a self-mining session.
func (h *MiningHandler) HandleStartSelf(w http.ResponseWriter, r *http.Request) {
	h.handleStart(w, r, "Start self mining", func(r *http.Request, req *StartMiningRequest) (*mining.StartResult, error) {
		return h.manager.StartSelf(r.Context(), req.UserID, req.LandID, domain.LandKind(req.LandKind), req.LandOwner, req.ToolIDs)
	})
}

// HandleStartHiredWithTool starts a hired session with the caller's tools.
func (h *MiningHandler) HandleStartHiredWithTool(w http.ResponseWriter, r *http.Request) {
	h.handleStart(w, r, "Start hired mining with tool", func(r *http.Request, req *StartMiningRequest) (*mining.StartResult, error) {
		return h.manager.StartHiredWithTool(r.Context(), req.UserID, req.LandID, domain.LandKind(req.LandKind), req.LandOwner, req.ToolIDs)
	})
}

// HandleStartHiredWithoutTool starts a hired session on deposited tools.
func (h *MiningHandler) HandleStartHiredWithoutTool(w http.ResponseWriter, r *http.Request) {
	h.handleStart(w, r, "Start hired mining without tool", func(r *http.Request, req *StartMiningRequest) (*mining.StartResult, error) {
		return h.manager.StartHiredWithoutTool(r.Context(), req.UserID, req.LandID, domain.LandKind(req.LandKind), req.LandOwner)
	})
}

// HandleAddTool binds another tool to a running session.
func (h *MiningHandler) HandleAddTool(w http.ResponseWriter, r *http.Request) {
	var req SessionToolRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Add tool"); err != nil {
		return
	}

	sess, err := h.manager.AddTool(r.Context(), req.UserID, req.SessionID, req.ToolID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to add tool", "session", req.SessionID, "tool", req.ToolID, "error", err)
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Tool added", AddToolResponse{Session: sess, NewOutputRate: sess.OutputRate})
}

// HandleRemoveTool unbinds a tool from a running session.
func (h *MiningHandler) HandleRemoveTool(w http.ResponseWriter, r *http.Request) {
	var req SessionToolRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Remove tool"); err != nil {
		return
	}

	result, err := h.manager.RemoveTool(r.Context(), req.UserID, req.SessionID, req.ToolID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to remove tool", "session", req.SessionID, "tool", req.ToolID, "error", err)
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Tool removed", RemoveToolResponse{
		ToolID:              result.ToolID,
		DurabilityConsumed:  result.DurabilityConsumed,
		RemainingDurability: result.RemainingDurability,
		NewOutputRate:       result.Session.OutputRate,
	})
}

// HandlePause pauses a session after settling pending accrual.
func (h *MiningHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Pause session"); err != nil {
		return
	}

	sess, err := h.manager.Pause(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to pause session", "session", req.SessionID, "error", err)
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Session paused", sess)
}

// HandleResume reactivates a paused session.
func (h *MiningHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Resume session"); err != nil {
		return
	}

	sess, err := h.manager.Resume(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to resume session", "session", req.SessionID, "error", err)
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Session resumed", sess)
}

// HandleCollect settles and reports what this call realized.
func (h *MiningHandler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Collect output"); err != nil {
		return
	}

	result, err := h.manager.Collect(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to collect output", "session", req.SessionID, "error", err)
		respondServiceError(w, err)
		return
	}

	var warnings []string
	if result.Warning != nil {
		warnings = append(warnings, WarnMsgGrainInsufficient)
	}
	respondSuccessWarn(w, http.StatusOK, "Output collected", CollectResponse{
		SessionID:  result.SessionID,
		Collected:  result.Collected,
		Resource:   result.Resource,
		NewBalance: result.NewBalance,
	}, warnings)
}

// HandleStop completes a session after a final settlement.
func (h *MiningHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Stop production"); err != nil {
		return
	}

	sess, err := h.manager.Stop(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to stop session", "session", req.SessionID, "error", err)
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Production stopped", sess)
}

// HandleDepositTools parks idle tools on a land.
func (h *MiningHandler) HandleDepositTools(w http.ResponseWriter, r *http.Request) {
	var req DepositToolsRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Deposit tools"); err != nil {
		return
	}

	if err := h.manager.DepositTools(r.Context(), req.UserID, req.LandID, req.ToolIDs); err != nil {
		logger.FromContext(r.Context()).Error("Failed to deposit tools", "land", req.LandID, "error", err)
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Tools deposited", nil)
}

// HandleGetSession returns one session.
func (h *MiningHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetQueryParam(r, w, "user_id")
	if !ok {
		return
	}
	sessionID, ok := GetQueryParam(r, w, "session_id")
	if !ok {
		return
	}

	sess, err := h.manager.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "", sess)
}

// HandleListSessions returns the user's sessions, paginated with aggregates.
func (h *MiningHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetQueryParam(r, w, "user_id")
	if !ok {
		return
	}
	limit, offset := ParsePagination(r)

	sessions, total, err := h.manager.ListSessions(r.Context(), userID, limit, offset)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list sessions", "user", userID, "error", err)
		respondServiceError(w, err)
		return
	}

	stats := SessionListStats{}
	for i := range sessions {
		switch sessions[i].Status {
		case domain.SessionActive:
			stats.ActiveCount++
		case domain.SessionPaused:
			stats.PausedCount++
		case domain.SessionCompleted:
			stats.CompletedCount++
		}
		stats.AccumulatedOutput += sessions[i].AccumulatedOutput
		stats.AccumulatedTax += sessions[i].AccumulatedTax
	}

	respondSuccess(w, http.StatusOK, "", NewPage(r, total, limit, offset, sessions, stats))
}
