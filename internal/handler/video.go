package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/middleware"
	"github.com/str3am/backend-go/internal/service"
)

// VideoHandler handles the video catalog, moderation settings and
// engagement endpoints.
type VideoHandler struct {
	catalog        *service.CatalogService
	engagement     *service.EngagementService
	comments       *service.CommentService
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(
	catalog *service.CatalogService,
	engagement *service.EngagementService,
	comments *service.CommentService,
	maxUploadBytes int64,
	logger *slog.Logger,
) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{
		catalog:        catalog,
		engagement:     engagement,
		comments:       comments,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// VideoResponse decorates a video with resolved media URLs.
type VideoResponse struct {
	*models.Video
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

func (h *VideoHandler) videoResponse(video *models.Video) *VideoResponse {
	resp := &VideoResponse{
		Video:    video,
		VideoURL: h.catalog.MediaURL(video.CID),
	}
	if video.ThumbnailCID != nil {
		resp.ThumbnailURL = h.catalog.MediaURL(*video.ThumbnailCID)
	}
	return resp
}

// UpdateVideoRequest represents owner edits to a video.
type UpdateVideoRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// UpdateThresholdsRequest tunes the moderation settings.
type UpdateThresholdsRequest struct {
	DislikeThreshold    *float64 `json:"dislike_threshold,omitempty"`
	MinimumInteractions *int64   `json:"minimum_interactions,omitempty"`
}

// InteractionRequest applies a like, dislike or share.
type InteractionRequest struct {
	Type     string `json:"type"`
	SharedTo string `json:"shared_to,omitempty"`
}

// CommentRequest posts a comment or reply.
type CommentRequest struct {
	Content  string     `json:"content"`
	UserName string     `json:"user_name,omitempty"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

// ServeHTTP routes video requests.
func (h *VideoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/videos")

	if path == "" || path == "/" {
		switch r.Method {
		case http.MethodPost:
			h.handleUpload(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
		}
		return
	}

	if path == "/top" {
		if r.Method != http.MethodGet {
			sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
			return
		}
		h.handleTop(w, r)
		return
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	videoID, err := parseUUID(parts[0])
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid video ID", err.Error(), nil)
		return
	}

	switch len(parts) {
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, videoID)
		case http.MethodPatch:
			h.handleUpdate(w, r, videoID)
		case http.MethodDelete:
			h.handleDelete(w, r, videoID)
		default:
			sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
		}
	case 2:
		switch parts[1] {
		case "view":
			if r.Method != http.MethodPost {
				sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
				return
			}
			h.handleRecordView(w, r, videoID)
		case "stats":
			if r.Method != http.MethodGet {
				sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
				return
			}
			h.handleStats(w, r, videoID)
		case "thresholds":
			if r.Method != http.MethodPatch {
				sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
				return
			}
			h.handleUpdateThresholds(w, r, videoID)
		case "interactions":
			switch r.Method {
			case http.MethodPost:
				h.handleApplyInteraction(w, r, videoID)
			case http.MethodGet:
				h.handleListInteractions(w, r, videoID)
			default:
				sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
			}
		case "comments":
			switch r.Method {
			case http.MethodPost:
				h.handleAddComment(w, r, videoID)
			case http.MethodGet:
				h.handleListComments(w, r, videoID)
			default:
				sendError(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
			}
		default:
			sendError(w, http.StatusNotFound, "not found", "", nil)
		}
	case 3:
		if parts[1] != "interactions" || r.Method != http.MethodGet {
			sendError(w, http.StatusNotFound, "not found", "", nil)
			return
		}
		h.handleUserInteractions(w, r, videoID, parts[2])
	default:
		sendError(w, http.StatusNotFound, "not found", "", nil)
	}
}

func (h *VideoHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerWallet(r.Context())
	if caller == "" {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", "expected multipart form within size limit", nil)
		return
	}

	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "validation failed", "price must be a number", nil)
		return
	}
	duration, _ := strconv.ParseInt(r.FormValue("duration"), 10, 64)

	var tags []string
	if rawTags := r.FormValue("tags"); rawTags != "" {
		for _, tag := range strings.Split(rawTags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	media, mediaHeader, err := r.FormFile("video")
	if err != nil {
		sendError(w, http.StatusBadRequest, "validation failed", "video file is required", nil)
		return
	}
	defer media.Close()

	upload := &service.VideoUpload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tags:        tags,
		Price:       price,
		Duration:    duration,
		VideoPubkey: r.FormValue("video_pubkey"),
		Media:       media,
		MediaType:   mediaHeader.Header.Get("Content-Type"),
	}

	if thumb, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumb.Close()
		upload.Thumbnail = thumb
		upload.ThumbType = thumbHeader.Header.Get("Content-Type")
	}

	video, err := h.catalog.UploadVideo(r.Context(), caller, upload)
	if err != nil {
		sendServiceError(w, h.logger, "upload video", err)
		return
	}

	sendJSON(w, http.StatusCreated, h.videoResponse(video))
}

func (h *VideoHandler) handleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if includeInactive, err := parseBool(r, "include_inactive"); err == nil && includeInactive != nil && *includeInactive {
		activeOnly = false
	}

	filters := &repository.VideoFilters{
		Category:   r.URL.Query().Get("category"),
		Search:     r.URL.Query().Get("search"),
		Uploader:   r.URL.Query().Get("uploader"),
		ActiveOnly: activeOnly,
		Limit:      parseLimit(r),
		Offset:     parseOffset(r),
	}

	videos, total, err := h.catalog.ListVideos(r.Context(), filters)
	if err != nil {
		sendServiceError(w, h.logger, "list videos", err)
		return
	}

	items := make([]*VideoResponse, 0, len(videos))
	for _, video := range videos {
		items = append(items, h.videoResponse(video))
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"videos": items,
		"count":  len(items),
		"total":  total,
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}

func (h *VideoHandler) handleTop(w http.ResponseWriter, r *http.Request) {
	video, err := h.catalog.TopVideo(r.Context())
	if err != nil {
		sendServiceError(w, h.logger, "get top video", err)
		return
	}
	sendJSON(w, http.StatusOK, h.videoResponse(video))
}

func (h *VideoHandler) handleGet(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	video, err := h.catalog.GetVideo(r.Context(), videoID)
	if err != nil {
		sendServiceError(w, h.logger, "get video", err)
		return
	}
	sendJSON(w, http.StatusOK, h.videoResponse(video))
}

func (h *VideoHandler) handleUpdate(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	caller := middleware.CallerWallet(r.Context())
	if caller == "" {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}

	var req UpdateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}

	video, err := h.catalog.UpdateVideo(r.Context(), videoID, caller, &repository.VideoUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
	})
	if err != nil {
		sendServiceError(w, h.logger, "update video", err)
		return
	}

	sendJSON(w, http.StatusOK, h.videoResponse(video))
}

func (h *VideoHandler) handleDelete(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	caller := middleware.CallerWallet(r.Context())
	admin := middleware.IsAdmin(r.Context())
	if caller == "" && !admin {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}

	video, refunds, err := h.engagement.TakedownVideo(r.Context(), videoID, caller, admin)
	if err != nil {
		sendServiceError(w, h.logger, "delete video", err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"video":   h.videoResponse(video),
		"refunds": refunds,
	})
}

func (h *VideoHandler) handleRecordView(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	viewCount, err := h.catalog.RecordView(r.Context(), videoID)
	if err != nil {
		sendServiceError(w, h.logger, "record view", err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"view_count": viewCount})
}

func (h *VideoHandler) handleStats(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	stats, err := h.engagement.Stats(r.Context(), videoID)
	if err != nil {
		sendServiceError(w, h.logger, "get interaction stats", err)
		return
	}
	sendJSON(w, http.StatusOK, stats)
}

func (h *VideoHandler) handleUpdateThresholds(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	caller := middleware.CallerWallet(r.Context())
	if caller == "" {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}

	var req UpdateThresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}

	video, err := h.engagement.UpdateThresholds(r.Context(), videoID, caller, req.DislikeThreshold, req.MinimumInteractions)
	if err != nil {
		sendServiceError(w, h.logger, "update thresholds", err)
		return
	}

	sendJSON(w, http.StatusOK, h.videoResponse(video))
}

func (h *VideoHandler) handleApplyInteraction(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	caller := middleware.CallerWallet(r.Context())
	if caller == "" {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}

	var req InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}

	result, err := h.engagement.ApplyInteraction(r.Context(), videoID, caller, req.Type, req.SharedTo)
	if err != nil {
		sendServiceError(w, h.logger, "apply interaction", err)
		return
	}

	sendJSON(w, http.StatusOK, result)
}

func (h *VideoHandler) handleListInteractions(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	interactions, err := h.engagement.VideoInteractions(r.Context(), videoID, r.URL.Query().Get("type"))
	if err != nil {
		sendServiceError(w, h.logger, "list interactions", err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"interactions": interactions,
		"count":        len(interactions),
	})
}

func (h *VideoHandler) handleUserInteractions(w http.ResponseWriter, r *http.Request, videoID uuid.UUID, wallet string) {
	interactions, err := h.engagement.UserInteractions(r.Context(), videoID, wallet)
	if err != nil {
		sendServiceError(w, h.logger, "get user interactions", err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"interactions": interactions,
		"count":        len(interactions),
	})
}

func (h *VideoHandler) handleAddComment(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	caller := middleware.CallerWallet(r.Context())
	if caller == "" {
		sendError(w, http.StatusUnauthorized, "unauthorized", "wallet identity required", nil)
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err.Error(), nil)
		return
	}

	comment, err := h.comments.AddComment(r.Context(), videoID, caller, req.UserName, req.Content, req.ParentID)
	if err != nil {
		sendServiceError(w, h.logger, "add comment", err)
		return
	}

	sendJSON(w, http.StatusCreated, comment)
}

func (h *VideoHandler) handleListComments(w http.ResponseWriter, r *http.Request, videoID uuid.UUID) {
	filters := &repository.CommentFilters{
		Limit:  parseLimit(r),
		Offset: parseOffset(r),
	}
	if rawParent := r.URL.Query().Get("parent_id"); rawParent != "" {
		parentID, err := parseUUID(rawParent)
		if err != nil {
			sendError(w, http.StatusBadRequest, "invalid parent ID", err.Error(), nil)
			return
		}
		filters.ParentID = parentID
	}

	comments, total, err := h.comments.ListComments(r.Context(), videoID, filters)
	if err != nil {
		sendServiceError(w, h.logger, "list comments", err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"comments": comments,
		"count":    len(comments),
		"total":    total,
		"limit":    filters.Limit,
		"offset":   filters.Offset,
	})
}
