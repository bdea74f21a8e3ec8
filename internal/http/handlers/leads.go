package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/leadbridge-au/leadbridge/internal/leads"
	"github.com/leadbridge-au/leadbridge/internal/notify"
	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

type leadDispatcher interface {
	Dispatch(ctx context.Context, req *leads.SubmitLeadRequest) (notify.Outcome, error)
}

// LeadResponse is the intake reply returned to the watcher agent.
type LeadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	LeadID  string `json:"leadId,omitempty"`
	CallID  string `json:"callId,omitempty"`
}

// LeadHandler accepts new leads from the watcher agent and hands them to the
// dispatcher.
type LeadHandler struct {
	dispatcher leadDispatcher
	logger     *logging.Logger
}

// NewLeadHandler builds the intake handler.
func NewLeadHandler(dispatcher leadDispatcher, logger *logging.Logger) *LeadHandler {
	if dispatcher == nil {
		panic("handlers: dispatcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SubmitLead handles POST /newlead.
func (h *LeadHandler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	var req leads.SubmitLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, LeadResponse{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}

	outcome, err := h.dispatcher.Dispatch(r.Context(), &req)
	if err != nil {
		if errors.Is(err, leads.ErrMissingLeadID) || errors.Is(err, leads.ErrMissingTradiePhone) {
			writeJSON(w, http.StatusBadRequest, LeadResponse{
				Success: false,
				Message: "Missing required fields: leadId, tradiePhone",
				LeadID:  req.LeadID,
			})
			return
		}
		h.logger.Error("lead dispatch failed", "error", err, "lead_id", req.LeadID)
		writeJSON(w, http.StatusInternalServerError, LeadResponse{
			Success: false,
			Message: "Internal error processing lead",
			LeadID:  req.LeadID,
		})
		return
	}

	switch outcome.Kind {
	case notify.OutcomeSuppressed:
		writeJSON(w, http.StatusOK, LeadResponse{
			Success: true,
			Message: "Lead received; notification suppressed during do-not-disturb hours",
			LeadID:  req.LeadID,
		})
	case notify.OutcomeFailed:
		h.logger.Error("notification call failed", "error", outcome.Err, "lead_id", req.LeadID)
		writeJSON(w, http.StatusInternalServerError, LeadResponse{
			Success: false,
			Message: fmt.Sprintf("Lead received but notification call failed: %v", outcome.Err),
			LeadID:  req.LeadID,
		})
	default:
		writeJSON(w, http.StatusOK, LeadResponse{
			Success: true,
			Message: "Lead received and notification call placed",
			LeadID:  req.LeadID,
			CallID:  outcome.CallID,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
