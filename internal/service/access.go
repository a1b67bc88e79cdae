package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/queue"
	"github.com/str3am/backend-go/internal/validation"
	"github.com/str3am/backend-go/pkg/logger"
)

// Access reasons reported by VerifyAccess.
const (
	AccessReasonPurchased = "purchased"
	AccessReasonUploader  = "uploader"
	AccessReasonFree      = "free"
)

// AccessStatus is the result of an access check.
type AccessStatus struct {
	HasAccess       bool                `json:"has_access"`
	Reason          string              `json:"reason,omitempty"`
	PaymentRequired bool                `json:"payment_required"`
	Price           float64             `json:"price,omitempty"`
	VideoActive     bool                `json:"video_active"`
	Access          *models.VideoAccess `json:"access,omitempty"`
}

// AccessService maintains the paid-access ledger: recording payments,
// verifying access and tracking watch time.
type AccessService struct {
	videos    repository.VideoRepository
	access    repository.VideoAccessRepository
	users     repository.UserRepository
	queue     queue.Enqueuer
	validator *validation.Validator
	metrics   *Metrics
}

// NewAccessService creates a new AccessService.
func NewAccessService(
	videos repository.VideoRepository,
	access repository.VideoAccessRepository,
	users repository.UserRepository,
	enqueuer queue.Enqueuer,
	validator *validation.Validator,
	metrics *Metrics,
) *AccessService {
	return &AccessService{
		videos:    videos,
		access:    access,
		users:     users,
		queue:     enqueuer,
		validator: validator,
		metrics:   metrics,
	}
}

// RecordPayment records a settled payment as an access grant. The grant
// is keyed by (video, viewer): a second payment for the same pair is a
// conflict carrying the existing grant, never a second row.
func (s *AccessService) RecordPayment(ctx context.Context, videoID uuid.UUID, viewerWallet, accessPubkey, txSignature string) (*models.VideoAccess, error) {
	if err := s.validator.ValidateWallet(viewerWallet); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if !s.validator.IsValidSignature(txSignature) {
		return nil, &ValidationError{Message: "invalid transaction signature format"}
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.IsActive {
		return nil, ErrInactiveVideo
	}
	if video.Uploader == viewerWallet {
		return nil, &ValidationError{Message: "uploader already has access to own video"}
	}

	grant := models.NewVideoAccess(video.ID, viewerWallet, video.VideoPubkey, accessPubkey, txSignature, video.Price)

	if err := s.access.Create(ctx, grant); err != nil {
		if db.IsDuplicateKey(err) {
			s.metrics.RecordPayment("duplicate")
			existing, getErr := s.access.Get(ctx, video.ID, viewerWallet)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &ConflictError{
				Message:  "payment already recorded for this video",
				Existing: existing,
			}
		}
		s.metrics.RecordPayment("error")
		return nil, &ProcessingError{Message: "failed to record payment", Cause: err}
	}

	s.metrics.RecordPayment("recorded")

	// Lifetime counters are advisory; a failed update never unwinds
	// the recorded grant.
	if err := s.users.AddCounters(ctx, viewerWallet, &repository.UserCounters{
		VideosWatched: 1,
		TokensSpent:   video.Price,
	}); err != nil {
		logger.Log.Warn("failed to update viewer counters",
			zap.String("viewer", viewerWallet),
			zap.Error(err),
		)
	}
	if err := s.users.AddCounters(ctx, video.Uploader, &repository.UserCounters{
		TokensEarned: video.Price,
	}); err != nil {
		logger.Log.Warn("failed to update uploader counters",
			zap.String("uploader", video.Uploader),
			zap.Error(err),
		)
	}

	logger.Log.Info("payment recorded",
		zap.String("videoId", video.ID.String()),
		zap.String("viewer", viewerWallet),
		zap.Float64("tokensPaid", video.Price),
	)

	return grant, nil
}

// VerifyAccess reports whether a wallet may watch a video. Uploaders
// hold implicit access and free videos are open to everyone. A grant
// survives takedown and refund; VideoActive tells the caller whether
// playback should proceed.
func (s *AccessService) VerifyAccess(ctx context.Context, videoID uuid.UUID, wallet string) (*AccessStatus, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	status := &AccessStatus{VideoActive: video.IsActive}

	if wallet != "" && video.Uploader == wallet {
		status.HasAccess = true
		status.Reason = AccessReasonUploader
		return status, nil
	}
	if video.Price == 0 {
		status.HasAccess = true
		status.Reason = AccessReasonFree
		return status, nil
	}
	if wallet == "" {
		status.PaymentRequired = true
		status.Price = video.Price
		return status, nil
	}

	grant, err := s.access.Get(ctx, videoID, wallet)
	if err != nil {
		if db.IsNotFound(err) {
			status.PaymentRequired = true
			status.Price = video.Price
			return status, nil
		}
		return nil, err
	}

	status.HasAccess = true
	status.Reason = AccessReasonPurchased
	status.Access = grant
	return status, nil
}

// UpdateWatchTime advances the viewer's cumulative watch time for a
// video and schedules reward reconciliation against the creator's
// token. Watch time is monotonic: stale or replayed samples never
// shrink it.
func (s *AccessService) UpdateWatchTime(ctx context.Context, videoID uuid.UUID, viewerWallet string, watchTime int64, completed *bool) (*models.VideoAccess, error) {
	if err := s.validator.ValidateWatchTime(watchTime); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	grant, err := s.access.Get(ctx, videoID, viewerWallet)
	if err != nil {
		return nil, err
	}

	updated, err := s.access.UpdateWatchTime(ctx, grant.ID, watchTime, completed)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordWatchSeconds(updated.WatchTime - grant.WatchTime)

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	// Fire-and-forget: the worker reconciles accrued rewards, and a
	// dropped task is repaired by the next watch-time report.
	if s.queue == nil {
		return updated, nil
	}
	if err := s.queue.EnqueueRewardMint(ctx, viewerWallet, video.Uploader); err != nil {
		logger.Log.Warn("failed to enqueue reward mint",
			zap.String("viewer", viewerWallet),
			zap.String("creator", video.Uploader),
			zap.Error(err),
		)
	}

	return updated, nil
}

// ListPurchases returns a viewer's access grants with video details.
func (s *AccessService) ListPurchases(ctx context.Context, viewerWallet string) ([]*repository.Purchase, error) {
	if err := s.validator.ValidateWallet(viewerWallet); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return s.access.ListPurchases(ctx, viewerWallet)
}

// GetAccess returns the raw access record for a (video, viewer) pair.
func (s *AccessService) GetAccess(ctx context.Context, videoID uuid.UUID, viewerWallet string) (*models.VideoAccess, error) {
	return s.access.Get(ctx, videoID, viewerWallet)
}
