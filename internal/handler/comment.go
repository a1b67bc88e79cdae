package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/str3am/backend-go/internal/middleware"
	"github.com/str3am/backend-go/internal/service"
)

// CommentHandler handles edits, deletions and votes on existing
// comments. Creating and listing comments lives under the video routes.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentHandler{comments: comments, logger: logger}
}

// UpdateCommentRequest replaces a comment's content.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// CommentVoteRequest applies an upvote or downvote.
type CommentVoteRequest struct {
	Upvote bool `json:"upvote"`
}

// ServeHTTP routes comment requests.
func (h *CommentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/comments")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] == "" {
		sendError(w, http.StatusNotFound, "not found", "", nil)
		return
	}

	commentID, err := parseUUID(parts[0])
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid comment ID", err.Error(), nil)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodPatch:
		h.handleUpdate(w, r, commentID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleDelete(w, r, commentID)
	case len(parts) == 2 && parts[1] == "votes" && r.Method == http.MethodPost:
		h.handleVote(w, r, commentID)
	default:
		sendError(w, http.StatusNotFound, "not found", "", nil)
	}
}

func (h *CommentHandler) handleUpdate(w http.ResponseWriter, r *http.Request, commentID uuid.UUID) {
	caller := middleware.CallerWallet(r.Context())
	if caller == "" {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}

	var req UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}

	comment, err := h.comments.UpdateComment(r.Context(), commentID, caller, req.Content)
	if err != nil {
		sendServiceError(w, h.logger, "update comment", err)
		return
	}

	sendJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) handleDelete(w http.ResponseWriter, r *http.Request, commentID uuid.UUID) {
	caller := middleware.CallerWallet(r.Context())
	admin := middleware.IsAdmin(r.Context())
	if caller == "" && !admin {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}

	if err := h.comments.DeleteComment(r.Context(), commentID, caller, admin); err != nil {
		sendServiceError(w, h.logger, "delete comment", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CommentHandler) handleVote(w http.ResponseWriter, r *http.Request, commentID uuid.UUID) {
	var req CommentVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}

	comment, err := h.comments.VoteComment(r.Context(), commentID, req.Upvote)
	if err != nil {
		sendServiceError(w, h.logger, "vote comment", err)
		return
	}

	sendJSON(w, http.StatusOK, comment)
}
