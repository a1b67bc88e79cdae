package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/pkg/logger"
)

// RefundService credits back every purchase of a taken-down video.
type RefundService struct {
	videos    repository.VideoRepository
	access    repository.VideoAccessRepository
	users     repository.UserRepository
	publisher EventPublisher
	metrics   *Metrics
}

// NewRefundService creates a new RefundService.
func NewRefundService(
	videos repository.VideoRepository,
	access repository.VideoAccessRepository,
	users repository.UserRepository,
	publisher EventPublisher,
	metrics *Metrics,
) *RefundService {
	return &RefundService{
		videos:    videos,
		access:    access,
		users:     users,
		publisher: publisher,
		metrics:   metrics,
	}
}

// ProcessRefunds credits tokens_refunded for every unrefunded purchase
// of a video. The refunded flag is claimed atomically up front, so
// concurrent sweeps and repeated takedown deliveries credit each
// purchase at most once. Access grants are never revoked.
func (s *RefundService) ProcessRefunds(ctx context.Context, videoID uuid.UUID, reason string) (int, int, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return 0, 0, err
	}

	claimed, err := s.access.ClaimUnrefunded(ctx, videoID)
	if err != nil {
		return 0, 0, &ProcessingError{Message: "failed to claim refunds", Cause: err}
	}
	if len(claimed) == 0 {
		return 0, 0, nil
	}

	var refunded, failed int
	for _, grant := range claimed {
		err := s.users.AddCounters(ctx, grant.ViewerWallet, &repository.UserCounters{
			TokensRefunded: grant.TokensPaid,
		})
		if err != nil {
			failed++
			logger.Log.Error("failed to credit refund",
				zap.String("videoId", videoID.String()),
				zap.String("viewer", grant.ViewerWallet),
				zap.Float64("tokensPaid", grant.TokensPaid),
				zap.Error(err),
			)
			continue
		}
		refunded++
	}

	s.metrics.RecordRefund("credited", refunded)
	s.metrics.RecordRefund("failed", failed)

	logger.Log.Info("refund sweep finished",
		zap.String("videoId", videoID.String()),
		zap.String("reason", reason),
		zap.Int("refunded", refunded),
		zap.Int("failed", failed),
	)

	if s.publisher != nil && refunded > 0 {
		event := &ModerationEvent{
			ID:            uuid.New(),
			Type:          EventVideoRefunded,
			VideoID:       videoID,
			Uploader:      video.Uploader,
			Reason:        reason,
			RefundedCount: refunded,
			FailedRefunds: failed,
			OccurredAt:    time.Now(),
		}
		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			logger.Log.Error("failed to publish refund event",
				zap.String("videoId", videoID.String()),
				zap.Error(err),
			)
		}
	}

	return refunded, failed, nil
}
