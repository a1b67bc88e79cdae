package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/str3am/backend-go/internal/auth"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/middleware"
	"github.com/str3am/backend-go/internal/service"
)

const maxPictureBytes = 8 << 20

// UserHandler handles wallet-keyed user profiles.
type UserHandler struct {
	profiles   *service.ProfileService
	authorizer auth.Authorizer
	logger     *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(profiles *service.ProfileService, authorizer auth.Authorizer, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{profiles: profiles, authorizer: authorizer, logger: logger}
}

// UpdateProfileRequest carries the editable profile fields; nil means
// unchanged.
type UpdateProfileRequest struct {
	Username  *string `json:"username,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Twitter   *string `json:"twitter,omitempty"`
	Instagram *string `json:"instagram,omitempty"`
	Website   *string `json:"website,omitempty"`
}

// ServeHTTP routes user profile requests.
func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/users")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] == "" {
		sendError(w, http.StatusNotFound, "not found", "", nil)
		return
	}

	// The creator leaderboard lives under the users prefix but is not
	// keyed by wallet.
	if parts[0] == "creators" {
		if len(parts) == 2 && parts[1] == "top" && r.Method == http.MethodGet {
			h.handleTopCreators(w, r)
			return
		}
		sendError(w, http.StatusNotFound, "not found", "", nil)
		return
	}

	wallet := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, wallet)
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.handleUpdate(w, r, wallet)
	case len(parts) == 2 && parts[1] == "stats" && r.Method == http.MethodGet:
		h.handleStats(w, r, wallet)
	case len(parts) == 2 && parts[1] == "picture" && r.Method == http.MethodPost:
		h.handleSetPicture(w, r, wallet)
	default:
		sendError(w, http.StatusNotFound, "not found", "", nil)
	}
}

func (h *UserHandler) authorize(r *http.Request, wallet string) bool {
	if middleware.IsAdmin(r.Context()) {
		return true
	}
	caller := middleware.CallerWallet(r.Context())
	return h.authorizer.Authorize(r.Context(), caller, wallet) == nil
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request, wallet string) {
	user, err := h.profiles.GetProfile(r.Context(), wallet)
	if err != nil {
		sendServiceError(w, h.logger, "get profile", err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

func (h *UserHandler) handleStats(w http.ResponseWriter, r *http.Request, wallet string) {
	stats, err := h.profiles.GetStats(r.Context(), wallet)
	if err != nil {
		sendServiceError(w, h.logger, "get user stats", err)
		return
	}
	sendJSON(w, http.StatusOK, stats)
}

func (h *UserHandler) handleTopCreators(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	creators, err := h.profiles.TopCreators(r.Context(), limit)
	if err != nil {
		sendServiceError(w, h.logger, "list top creators", err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"creators": creators,
		"count":    len(creators),
	})
}

func (h *UserHandler) handleUpdate(w http.ResponseWriter, r *http.Request, wallet string) {
	if !h.authorize(r, wallet) {
		sendError(w, http.StatusForbidden, "forbidden", "caller may not edit this profile", nil)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), wallet, &repository.ProfileUpdate{
		Username:  req.Username,
		Bio:       req.Bio,
		Twitter:   req.Twitter,
		Instagram: req.Instagram,
		Website:   req.Website,
	})
	if err != nil {
		sendServiceError(w, h.logger, "update profile", err)
		return
	}

	sendJSON(w, http.StatusOK, user)
}

func (h *UserHandler) handleSetPicture(w http.ResponseWriter, r *http.Request, wallet string) {
	if !h.authorize(r, wallet) {
		sendError(w, http.StatusForbidden, "forbidden", "caller may not edit this profile", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPictureBytes)
	if err := r.ParseMultipartForm(maxPictureBytes); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", "expected multipart form within size limit", nil)
		return
	}

	picture, header, err := r.FormFile("picture")
	if err != nil {
		sendError(w, http.StatusBadRequest, "validation failed", "picture file is required", nil)
		return
	}
	defer picture.Close()

	cid, err := h.profiles.SetProfilePicture(r.Context(), wallet, picture, header.Header.Get("Content-Type"))
	if err != nil {
		sendServiceError(w, h.logger, "set profile picture", err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"cid": cid,
		"url": h.profiles.PictureURL(cid),
	})
}
