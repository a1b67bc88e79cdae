package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/str3am/backend-go/pkg/logger"
)

// RewardMinter reconciles accrued watch time against minted tokens for
// a viewer/creator pair and mints the outstanding delta.
type RewardMinter interface {
	AccrueAndMint(ctx context.Context, viewer, creator string) (int64, error)
}

// RefundProcessor refunds all unrefunded purchases of a video.
type RefundProcessor interface {
	ProcessRefunds(ctx context.Context, videoID uuid.UUID, reason string) (refunded, failed int, err error)
}

// TaskHandler handles background tasks for reward accrual and refund
// sweeps.
type TaskHandler struct {
	rewards RewardMinter
	refunds RefundProcessor
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(rewards RewardMinter, refunds RefundProcessor) *TaskHandler {
	return &TaskHandler{
		rewards: rewards,
		refunds: refunds,
	}
}

// HandleRewardMintTask returns an asynq.HandlerFunc for reward accrual
func (h *TaskHandler) HandleRewardMintTask() asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := UnmarshalRewardMintPayload(task.Payload())
		if err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		minted, err := h.rewards.AccrueAndMint(ctx, payload.Viewer, payload.Creator)
		if err != nil {
			return fmt.Errorf("failed to accrue rewards for viewer %s: %w", payload.Viewer, err)
		}

		logger.Log.Info("processed reward mint task",
			zap.String("viewer", payload.Viewer),
			zap.String("creator", payload.Creator),
			zap.Int64("minted", minted),
		)
		return nil
	}
}

// HandleRefundSweepTask returns an asynq.HandlerFunc for refund sweeps
func (h *TaskHandler) HandleRefundSweepTask() asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := UnmarshalRefundSweepPayload(task.Payload())
		if err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		refunded, failed, err := h.refunds.ProcessRefunds(ctx, payload.VideoID, payload.Reason)
		if err != nil {
			return fmt.Errorf("failed to sweep refunds for video %s: %w", payload.VideoID, err)
		}

		logger.Log.Info("processed refund sweep task",
			zap.String("video_id", payload.VideoID.String()),
			zap.Int("refunded", refunded),
			zap.Int("failed", failed),
		)

		// The refunded flags were claimed up front, so a retry would
		// find nothing left to credit. Failed credits surface in the
		// logs and the refund metrics.
		return nil
	}
}

// Server wraps asynq server for processing tasks
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
}

// NewServer creates a new task processing server
func NewServer(redisAddr string, concurrency int, handler *TaskHandler) (*Server, error) {
	redisOpt, err := ParseRedisURL(redisAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"refunds": 6,
				"rewards": 4,
			},
			StrictPriority: false,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Log.Error("task failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRewardMint, handler.HandleRewardMintTask())
	mux.HandleFunc(TypeRefundSweep, handler.HandleRefundSweepTask())

	return &Server{
		asynqServer: srv,
		mux:         mux,
	}, nil
}

// Start starts the server
func (s *Server) Start() error {
	return s.asynqServer.Start(s.mux)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	s.asynqServer.Shutdown()
}
