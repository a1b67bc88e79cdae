package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/str3am/backend-go/internal/content"
	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/validation"
	"github.com/str3am/backend-go/pkg/logger"
)

// VideoUpload carries everything needed to publish a new video.
type VideoUpload struct {
	Title       string
	Description string
	Category    string
	Tags        []string
	Price       float64
	Duration    int64
	VideoPubkey string
	Media       io.Reader
	MediaType   string
	Thumbnail   io.Reader
	ThumbType   string
}

// CatalogService manages the video catalog: publishing, discovery and
// owner edits.
type CatalogService struct {
	videos    repository.VideoRepository
	users     repository.UserRepository
	store     content.Store
	validator *validation.Validator
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	videos repository.VideoRepository,
	users repository.UserRepository,
	store content.Store,
	validator *validation.Validator,
) *CatalogService {
	return &CatalogService{
		videos:    videos,
		users:     users,
		store:     store,
		validator: validator,
	}
}

// UploadVideo stores the media, registers the video and credits the
// uploader's counters.
func (s *CatalogService) UploadVideo(ctx context.Context, uploader string, upload *VideoUpload) (*models.Video, error) {
	if err := s.validator.ValidateWallet(uploader); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := s.validator.ValidateVideoUpload(upload.Title, upload.Description, upload.Price, upload.Tags); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if upload.Media == nil {
		return nil, &ValidationError{Message: "video media is required"}
	}

	cid, err := s.store.Put(upload.Media, upload.MediaType)
	if err != nil {
		return nil, &ProcessingError{Message: "failed to store video media", Cause: err}
	}

	video := models.NewVideo(upload.Title, upload.Description, upload.Category, cid, uploader, upload.VideoPubkey, upload.Price)
	video.Tags = upload.Tags
	video.Duration = upload.Duration

	if upload.Thumbnail != nil {
		thumbCID, err := s.store.Put(upload.Thumbnail, upload.ThumbType)
		if err != nil {
			return nil, &ProcessingError{Message: "failed to store thumbnail", Cause: err}
		}
		video.ThumbnailCID = &thumbCID
	}

	if err := s.users.EnsureExists(ctx, uploader, true); err != nil {
		return nil, err
	}

	if err := s.videos.Create(ctx, video); err != nil {
		return nil, err
	}

	if err := s.users.AddCounters(ctx, uploader, &repository.UserCounters{VideosUploaded: 1}); err != nil {
		logger.Log.Warn("failed to update uploader counters",
			zap.String("uploader", uploader),
			zap.Error(err),
		)
	}

	logger.Log.Info("video published",
		zap.String("videoId", video.ID.String()),
		zap.String("uploader", uploader),
		zap.String("cid", cid),
	)

	return video, nil
}

// GetVideo returns a video by id, active or not.
func (s *CatalogService) GetVideo(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	return s.videos.GetByID(ctx, videoID)
}

// ListVideos returns catalog entries matching the filters plus the
// total match count.
func (s *CatalogService) ListVideos(ctx context.Context, filters *repository.VideoFilters) ([]*models.Video, int, error) {
	return s.videos.List(ctx, filters)
}

// TopVideo returns the most viewed active video.
func (s *CatalogService) TopVideo(ctx context.Context) (*models.Video, error) {
	return s.videos.GetTopVideo(ctx)
}

// UpdateVideo applies owner edits to title, description, category or
// price.
func (s *CatalogService) UpdateVideo(ctx context.Context, videoID uuid.UUID, caller string, update *repository.VideoUpdate) (*models.Video, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.Uploader != caller {
		return nil, ErrForbidden
	}
	if !video.IsActive {
		return nil, ErrInactiveVideo
	}

	if update.Title != nil || update.Description != nil || update.Price != nil {
		title := video.Title
		if update.Title != nil {
			title = *update.Title
		}
		description := video.Description
		if update.Description != nil {
			description = *update.Description
		}
		price := video.Price
		if update.Price != nil {
			price = *update.Price
		}
		if err := s.validator.ValidateVideoUpload(title, description, price, video.Tags); err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
	}

	return s.videos.UpdateDetails(ctx, videoID, update)
}

// RecordView bumps the view counter and returns the new total.
func (s *CatalogService) RecordView(ctx context.Context, videoID uuid.UUID) (int64, error) {
	return s.videos.IncrementViewCount(ctx, videoID)
}

// MediaURL resolves a stored content id to its public URL.
func (s *CatalogService) MediaURL(cid string) string {
	return s.store.URL(cid)
}
