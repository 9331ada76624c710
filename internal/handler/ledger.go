package handler

import (
	"net/http"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/ledger"
	"github.com/yieldland/production-core/internal/logger"
)

// LedgerHandler handles balance read requests
type LedgerHandler struct {
	ledger ledger.Service
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerSvc ledger.Service) *LedgerHandler {
	return &LedgerHandler{ledger: ledgerSvc}
}

// HandleGetBalance returns one (user, resource_type) balance row.
func (h *LedgerHandler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetQueryParam(r, w, "user_id")
	if !ok {
		return
	}
	resourceType, ok := GetQueryParam(r, w, "resource_type")
	if !ok {
		return
	}

	res, err := h.ledger.GetBalance(r.Context(), userID, domain.ResourceType(resourceType))
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to get balance", "user", userID, "type", resourceType, "error", err)
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "", res)
}

// HandleGetBalances returns every balance row for the user.
func (h *LedgerHandler) HandleGetBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetQueryParam(r, w, "user_id")
	if !ok {
		return
	}

	balances, err := h.ledger.GetBalances(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list balances", "user", userID, "error", err)
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "", balances)
}
