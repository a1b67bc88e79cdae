package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/str3am/backend-go/internal/auth"
	"github.com/str3am/backend-go/internal/middleware"
	"github.com/str3am/backend-go/internal/service"
)

// AccessHandler handles payment recording, access verification and
// watch time reporting.
type AccessHandler struct {
	access     *service.AccessService
	authorizer auth.Authorizer
	logger     *slog.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(access *service.AccessService, authorizer auth.Authorizer, logger *slog.Logger) *AccessHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessHandler{access: access, authorizer: authorizer, logger: logger}
}

// PaymentRequest records a confirmed on-chain payment for a video.
type PaymentRequest struct {
	VideoID      uuid.UUID `json:"video_id"`
	Wallet       string    `json:"wallet,omitempty"`
	AccessPubkey string    `json:"access_pubkey"`
	TxSignature  string    `json:"tx_signature"`
}

// WatchTimeRequest reports cumulative watch time for a grant.
type WatchTimeRequest struct {
	Wallet       string `json:"wallet,omitempty"`
	WatchSeconds int64  `json:"watch_seconds"`
	Completed    *bool  `json:"completed,omitempty"`
}

var errMissingCaller = errors.New("missing caller identity")

// resolveWallet picks the target wallet for a request and verifies the
// caller is allowed to act for it.
func (h *AccessHandler) resolveWallet(r *http.Request, requested string) (string, error) {
	caller := middleware.CallerWallet(r.Context())
	if requested == "" {
		requested = caller
	}
	if requested == "" {
		return "", errMissingCaller
	}
	if middleware.IsAdmin(r.Context()) {
		return requested, nil
	}
	if err := h.authorizer.Authorize(r.Context(), caller, requested); err != nil {
		return "", err
	}
	return requested, nil
}

// ServeHTTP routes payment and access requests.
func (h *AccessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/v1/payments") {
		h.servePayments(w, r)
		return
	}
	h.serveAccess(w, r)
}

func (h *AccessHandler) servePayments(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/payments")
	if path != "" && path != "/" {
		sendError(w, http.StatusNotFound, "not found", "", nil)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.handleRecordPayment(w, r)
	case http.MethodGet:
		h.handleListPurchases(w, r)
	default:
		sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
	}
}

func (h *AccessHandler) serveAccess(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/access")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] == "" {
		sendError(w, http.StatusNotFound, "not found", "", nil)
		return
	}

	videoID, err := parseUUID(parts[0])
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid video ID", err.Error(), nil)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleVerifyAccess(w, r, videoID)
	case len(parts) == 2 && parts[1] == "watch-time" && r.Method == http.MethodPut:
		h.handleUpdateWatchTime(w, r, videoID)
	default:
		sendError(w, http.StatusNotFound, "not found", "", nil)
	}
}

func (h *AccessHandler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}

	wallet, err := h.resolveWallet(r, req.Wallet)
	if err != nil {
		h.sendAuthError(w, err)
		return
	}

	access, err := h.access.RecordPayment(r.Context(), req.VideoID, wallet, req.AccessPubkey, req.TxSignature)
	if err != nil {
		sendServiceError(w, h.logger, "record payment", err)
		return
	}

	sendJSON(w, http.StatusCreated, access)
}

func (h *AccessHandler) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.resolveWallet(r, r.URL.Query().Get("wallet"))
	if err != nil {
		h.sendAuthError(w, err)
		return
	}

	purchases, err := h.access.ListPurchases(r.Context(), wallet)
	if err != nil {
		sendServiceError(w, h.logger, "list purchases", err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"purchases": purchases,
		"count":     len(purchases),
	})
}

func (h *AccessHandler) handleVerifyAccess(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		wallet = middleware.CallerWallet(r.Context())
	}

	status, err := h.access.VerifyAccess(r.Context(), videoID, wallet)
	if err != nil {
		sendServiceError(w, h.logger, "verify access", err)
		return
	}

	sendJSON(w, http.StatusOK, status)
}

func (h *AccessHandler) handleUpdateWatchTime(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	var req WatchTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}

	wallet, err := h.resolveWallet(r, req.Wallet)
	if err != nil {
		h.sendAuthError(w, err)
		return
	}

	access, err := h.access.UpdateWatchTime(r.Context(), videoID, wallet, req.WatchSeconds, req.Completed)
	if err != nil {
		sendServiceError(w, h.logger, "update watch time", err)
		return
	}

	sendJSON(w, http.StatusOK, access)
}

func (h *AccessHandler) sendAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrNotAuthorized) {
		sendError(w, http.StatusForbidden, "forbidden", "caller may not act for this wallet", nil)
		return
	}
	sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
}
