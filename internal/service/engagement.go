package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/queue"
	"github.com/str3am/backend-go/internal/validation"
	"github.com/str3am/backend-go/pkg/logger"
)

// TxBeginner starts database transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RefundProcessor sweeps refunds over the purchases of a taken-down
// video.
type RefundProcessor interface {
	ProcessRefunds(ctx context.Context, videoID uuid.UUID, reason string) (refunded, failed int, err error)
}

// RefundSummary reports how many purchases a takedown's refund sweep
// credited, out of the total it claimed.
type RefundSummary struct {
	Refunded int `json:"refunded"`
	Total    int `json:"total"`
}

// InteractionResult describes the outcome of applying an interaction.
type InteractionResult struct {
	Interaction *models.Interaction `json:"interaction"`
	Video       *models.Video       `json:"video"`
	TakenDown   bool                `json:"taken_down"`
	Refunds     *RefundSummary      `json:"refunds,omitempty"`
}

// EngagementService aggregates likes, dislikes and shares into video
// counters, maintains the dislike ratio and enforces ratio-driven
// takedowns.
type EngagementService struct {
	pool         TxBeginner
	videos       repository.VideoRepository
	interactions repository.InteractionRepository
	access       repository.VideoAccessRepository
	queue        queue.Enqueuer
	publisher    EventPublisher
	refunds      RefundProcessor
	validator    *validation.Validator
	metrics      *Metrics
}

// NewEngagementService creates a new EngagementService.
func NewEngagementService(
	pool TxBeginner,
	videos repository.VideoRepository,
	interactions repository.InteractionRepository,
	access repository.VideoAccessRepository,
	enqueuer queue.Enqueuer,
	publisher EventPublisher,
	refunds RefundProcessor,
	validator *validation.Validator,
	metrics *Metrics,
) *EngagementService {
	return &EngagementService{
		pool:         pool,
		videos:       videos,
		interactions: interactions,
		access:       access,
		queue:        enqueuer,
		publisher:    publisher,
		refunds:      refunds,
		validator:    validator,
		metrics:      metrics,
	}
}

// requirePaidAccess gates engagement on a purchase. The uploader and
// free videos pass implicitly, everyone else needs a recorded access
// grant.
func requirePaidAccess(ctx context.Context, access repository.VideoAccessRepository, video *models.Video, wallet string) error {
	if video.Uploader == wallet || video.Price == 0 {
		return nil
	}
	if _, err := access.Get(ctx, video.ID, wallet); err != nil {
		if db.IsNotFound(err) {
			return ErrPaymentRequired
		}
		return err
	}
	return nil
}

// ApplyInteraction applies a like, dislike or share for a user on a
// video. Votes toggle: reapplying an active vote retracts it, and
// activating one vote retracts the opposite vote. Shares accumulate.
// The whole transition runs in one transaction under a row lock, so
// counters, the ratio and the takedown decision always agree.
func (s *EngagementService) ApplyInteraction(ctx context.Context, videoID uuid.UUID, userWallet, interactionType, shareTarget string) (*InteractionResult, error) {
	if err := s.validator.ValidateWallet(userWallet); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := s.validator.ValidateInteraction(interactionType, shareTarget); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &ProcessingError{Message: "failed to begin transaction", Cause: err}
	}
	defer tx.Rollback(ctx)

	videos := s.videos.WithTx(tx)
	interactions := s.interactions.WithTx(tx)

	video, err := videos.GetByIDForUpdate(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.IsActive {
		return nil, ErrInactiveVideo
	}
	if err := requirePaidAccess(ctx, s.access, video, userWallet); err != nil {
		return nil, err
	}

	var result *InteractionResult
	if interactionType == models.InteractionShare {
		result, err = s.applyShare(ctx, videos, interactions, video, userWallet, shareTarget)
	} else {
		result, err = s.applyVote(ctx, videos, interactions, video, userWallet, interactionType)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &ProcessingError{Message: "failed to commit interaction", Cause: err}
	}

	if result.TakenDown {
		result.Refunds = s.afterTakedown(ctx, result.Video, models.TakedownDislikeRatio)
	}

	return result, nil
}

func (s *EngagementService) applyShare(ctx context.Context, videos repository.VideoRepository, interactions repository.InteractionRepository, video *models.Video, userWallet, shareTarget string) (*InteractionResult, error) {
	existing, err := interactions.Get(ctx, video.ID, userWallet, models.InteractionShare)
	switch {
	case err == nil:
		if err := interactions.UpdateShareTarget(ctx, existing.ID, shareTarget); err != nil {
			return nil, err
		}
		existing.SharedTo = &shareTarget
	case db.IsNotFound(err):
		existing = &models.Interaction{
			ID:         uuid.New(),
			VideoID:    video.ID,
			UserWallet: userWallet,
			Type:       models.InteractionShare,
			SharedTo:   &shareTarget,
			Active:     true,
		}
		if err := interactions.Create(ctx, existing); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	// Every share event counts, including repeat shares to a new
	// destination.
	shareCount, err := videos.IncrementShareCount(ctx, video.ID)
	if err != nil {
		return nil, err
	}
	video.ShareCount = shareCount

	s.metrics.RecordInteraction(models.InteractionShare, "recorded")

	return &InteractionResult{Interaction: existing, Video: video}, nil
}

func (s *EngagementService) applyVote(ctx context.Context, videos repository.VideoRepository, interactions repository.InteractionRepository, video *models.Video, userWallet, voteType string) (*InteractionResult, error) {
	var likeDelta, dislikeDelta int64
	transition := "activated"

	row, err := interactions.Get(ctx, video.ID, userWallet, voteType)
	switch {
	case err == nil && row.Active:
		// Reapplying an active vote retracts it.
		if err := interactions.SetActive(ctx, row.ID, false); err != nil {
			return nil, err
		}
		row.Active = false
		addVoteDelta(voteType, -1, &likeDelta, &dislikeDelta)
		transition = "retracted"
	case err == nil:
		if err := interactions.SetActive(ctx, row.ID, true); err != nil {
			return nil, err
		}
		row.Active = true
		addVoteDelta(voteType, 1, &likeDelta, &dislikeDelta)
	case db.IsNotFound(err):
		row = &models.Interaction{
			ID:         uuid.New(),
			VideoID:    video.ID,
			UserWallet: userWallet,
			Type:       voteType,
			Active:     true,
		}
		if err := interactions.Create(ctx, row); err != nil {
			return nil, err
		}
		addVoteDelta(voteType, 1, &likeDelta, &dislikeDelta)
	default:
		return nil, err
	}

	// Mutual exclusion: activating a vote retracts the opposite one.
	if row.Active {
		opposite, err := interactions.Get(ctx, video.ID, userWallet, models.OppositeVote(voteType))
		if err == nil && opposite.Active {
			if err := interactions.SetActive(ctx, opposite.ID, false); err != nil {
				return nil, err
			}
			addVoteDelta(opposite.Type, -1, &likeDelta, &dislikeDelta)
		} else if err != nil && !db.IsNotFound(err) {
			return nil, err
		}
	}

	likeCount, dislikeCount, err := videos.AddVotes(ctx, video.ID, likeDelta, dislikeDelta)
	if err != nil {
		return nil, err
	}
	video.LikeCount = likeCount
	video.DislikeCount = dislikeCount

	ratio := dislikeRatio(likeCount, dislikeCount)
	if err := videos.SetDislikeRatio(ctx, video.ID, ratio); err != nil {
		return nil, err
	}
	video.DislikeRatio = ratio

	s.metrics.RecordInteraction(voteType, transition)

	result := &InteractionResult{Interaction: row, Video: video}

	// The ratio is only consulted once the vote total reaches the
	// video's minimum interaction count.
	if video.RatioConsulted() && ratio >= video.DislikeThreshold {
		tookDown, err := videos.Takedown(ctx, video.ID, models.TakedownDislikeRatio)
		if err != nil {
			return nil, err
		}
		if tookDown {
			video.IsActive = false
			reason := models.TakedownDislikeRatio
			video.TakedownReason = &reason
			result.TakenDown = true
		}
	}

	return result, nil
}

// UpdateThresholds lets the video owner tune the moderation settings.
// Tightening them can immediately trip a takedown.
func (s *EngagementService) UpdateThresholds(ctx context.Context, videoID uuid.UUID, caller string, dislikeThreshold *float64, minimumInteractions *int64) (*models.Video, error) {
	if dislikeThreshold != nil || minimumInteractions != nil {
		threshold := models.DefaultDislikeThreshold
		if dislikeThreshold != nil {
			threshold = *dislikeThreshold
		}
		minimum := int64(models.DefaultMinimumInteractions)
		if minimumInteractions != nil {
			minimum = *minimumInteractions
		}
		if err := s.validator.ValidateThresholds(threshold, int(minimum)); err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
	}

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

	updated, err := s.videos.UpdateThresholds(ctx, videoID, dislikeThreshold, minimumInteractions)
	if err != nil {
		return nil, err
	}

	if updated.RatioConsulted() && updated.DislikeRatio >= updated.DislikeThreshold {
		tookDown, err := s.videos.Takedown(ctx, videoID, models.TakedownDislikeRatio)
		if err != nil {
			return nil, err
		}
		if tookDown {
			updated.IsActive = false
			reason := models.TakedownDislikeRatio
			updated.TakedownReason = &reason
			s.afterTakedown(ctx, updated, models.TakedownDislikeRatio)
		}
	}

	return updated, nil
}

// TakedownVideo removes a video from the catalog on behalf of its
// uploader or an admin. Like ratio-driven takedowns it is terminal and
// sweeps refunds over every recorded purchase, reporting the counts
// back to the caller.
func (s *EngagementService) TakedownVideo(ctx context.Context, videoID uuid.UUID, caller string, admin bool) (*models.Video, *RefundSummary, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, nil, err
	}

	reason := models.TakedownUploaderRemoved
	switch {
	case admin:
		reason = models.TakedownAdminAction
	case video.Uploader == caller:
	default:
		return nil, nil, ErrForbidden
	}

	tookDown, err := s.videos.Takedown(ctx, videoID, reason)
	if err != nil {
		return nil, nil, err
	}
	if !tookDown {
		return nil, nil, ErrInactiveVideo
	}

	video.IsActive = false
	video.TakedownReason = &reason
	refunds := s.afterTakedown(ctx, video, reason)

	return video, refunds, nil
}

// InteractionStats summarizes a video's engagement counters.
type InteractionStats struct {
	LikeCount    int64   `json:"like_count"`
	DislikeCount int64   `json:"dislike_count"`
	ShareCount   int64   `json:"share_count"`
	CommentCount int64   `json:"comment_count"`
	DislikeRatio float64 `json:"dislike_ratio"`
}

// Stats returns a video's engagement counters and dislike ratio.
func (s *EngagementService) Stats(ctx context.Context, videoID uuid.UUID) (*InteractionStats, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return &InteractionStats{
		LikeCount:    video.LikeCount,
		DislikeCount: video.DislikeCount,
		ShareCount:   video.ShareCount,
		CommentCount: video.CommentCount,
		DislikeRatio: video.DislikeRatio,
	}, nil
}

// VideoInteractions lists a video's interactions, optionally filtered
// by type.
func (s *EngagementService) VideoInteractions(ctx context.Context, videoID uuid.UUID, interactionType string) ([]*models.Interaction, error) {
	if interactionType != "" && !models.IsValidInteractionType(interactionType) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid interaction type: %s", interactionType)}
	}
	return s.interactions.ListByVideo(ctx, videoID, interactionType)
}

// UserInteractions lists a user's active interactions on a video.
func (s *EngagementService) UserInteractions(ctx context.Context, videoID uuid.UUID, userWallet string) ([]*models.Interaction, error) {
	if err := s.validator.ValidateWallet(userWallet); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return s.interactions.ActiveByUser(ctx, videoID, userWallet)
}

// afterTakedown runs the consequences of a committed takedown: metrics,
// the refund sweep and the moderation event. None of them can unwind
// the takedown, so failures are logged rather than returned. Refunds
// are swept inline and the counts reported back; the queued sweep picks
// up anything the inline pass left uncredited.
func (s *EngagementService) afterTakedown(ctx context.Context, video *models.Video, reason string) *RefundSummary {
	s.metrics.RecordTakedown(reason)

	logger.Log.Info("video taken down",
		zap.String("videoId", video.ID.String()),
		zap.String("reason", reason),
		zap.Float64("dislikeRatio", video.DislikeRatio),
		zap.Int64("voteTotal", video.VoteTotal()),
	)

	summary := &RefundSummary{}
	if s.refunds != nil {
		refunded, failed, err := s.refunds.ProcessRefunds(ctx, video.ID, reason)
		if err != nil {
			logger.Log.Error("inline refund sweep failed",
				zap.String("videoId", video.ID.String()),
				zap.Error(err),
			)
		} else {
			summary.Refunded = refunded
			summary.Total = refunded + failed
		}
	}

	if s.queue != nil {
		if err := s.queue.EnqueueRefundSweep(ctx, video.ID, reason); err != nil {
			logger.Log.Error("failed to enqueue refund sweep",
				zap.String("videoId", video.ID.String()),
				zap.Error(err),
			)
		}
	}

	if s.publisher != nil {
		event := &ModerationEvent{
			ID:           uuid.New(),
			Type:         EventVideoTakedown,
			VideoID:      video.ID,
			Uploader:     video.Uploader,
			Reason:       reason,
			DislikeRatio: video.DislikeRatio,
			OccurredAt:   time.Now(),
		}
		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			logger.Log.Error("failed to publish takedown event",
				zap.String("videoId", video.ID.String()),
				zap.Error(err),
			)
		}
	}

	return summary
}

func addVoteDelta(voteType string, delta int64, likeDelta, dislikeDelta *int64) {
	if voteType == models.InteractionLike {
		*likeDelta += delta
	} else {
		*dislikeDelta += delta
	}
}

func dislikeRatio(likeCount, dislikeCount int64) float64 {
	total := likeCount + dislikeCount
	if total == 0 {
		return 0
	}
	return float64(dislikeCount) / float64(total)
}
