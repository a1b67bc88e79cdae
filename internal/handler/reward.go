package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/str3am/backend-go/internal/middleware"
	"github.com/str3am/backend-go/internal/service"
)

// RewardHandler handles creator token registration and viewer reward
// summaries.
type RewardHandler struct {
	rewards *service.RewardService
	logger  *slog.Logger
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(rewards *service.RewardService, logger *slog.Logger) *RewardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RewardHandler{rewards: rewards, logger: logger}
}

// ServeHTTP routes creator token and reward requests.
func (h *RewardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/v1/creator-tokens") {
		h.serveTokens(w, r)
		return
	}
	h.serveRewards(w, r)
}

func (h *RewardHandler) serveTokens(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/creator-tokens")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case parts[0] == "" && r.Method == http.MethodPost:
		h.handleCreateToken(w, r)
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		h.handleGetToken(w, r, parts[0])
	default:
		sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
	}
}

func (h *RewardHandler) serveRewards(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/rewards")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		h.handleViewerSummary(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "claim" && r.Method == http.MethodPost:
		h.handleClaim(w, r, parts[0])
	default:
		sendError(w, http.StatusNotFound, "not found", "", nil)
	}
}

// ClaimRequest asks for an immediate reward reconciliation against one
// creator's token, instead of waiting for the background worker.
type ClaimRequest struct {
	Creator string `json:"creator"`
}

func (h *RewardHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerWallet(r.Context())
	if caller == "" {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}

	token, err := h.rewards.CreateCreatorToken(r.Context(), caller)
	if err != nil {
		sendServiceError(w, h.logger, "create creator token", err)
		return
	}

	sendJSON(w, http.StatusCreated, token)
}

func (h *RewardHandler) handleGetToken(w http.ResponseWriter, r *http.Request, creator string) {
	token, err := h.rewards.GetCreatorToken(r.Context(), creator)
	if err != nil {
		sendServiceError(w, h.logger, "get creator token", err)
		return
	}
	sendJSON(w, http.StatusOK, token)
}

func (h *RewardHandler) handleClaim(w http.ResponseWriter, r *http.Request, viewer string) {
	caller := middleware.CallerWallet(r.Context())
	if caller == "" {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}
	if caller != viewer && !middleware.IsAdmin(r.Context()) {
		sendError(w, http.StatusForbidden, "forbidden", "caller may not claim for this wallet", nil)
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}
	if req.Creator == "" {
		sendError(w, http.StatusBadRequest, "validation failed", "creator is required", nil)
		return
	}

	minted, err := h.rewards.AccrueAndMint(r.Context(), viewer, req.Creator)
	if err != nil {
		sendServiceError(w, h.logger, "claim rewards", err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{"minted": minted})
}

func (h *RewardHandler) handleViewerSummary(w http.ResponseWriter, r *http.Request, viewer string) {
	summary, err := h.rewards.ViewerSummary(r.Context(), viewer)
	if err != nil {
		sendServiceError(w, h.logger, "viewer rewards summary", err)
		return
	}
	sendJSON(w, http.StatusOK, summary)
}
