package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/str3am/backend-go/pkg/logger"
)

// Enqueuer is the subset of queue operations the services need.
type Enqueuer interface {
	EnqueueRewardMint(ctx context.Context, viewer, creator string) error
	EnqueueRefundSweep(ctx context.Context, videoID uuid.UUID, reason string) error
}

// Client wraps asynq client for enqueueing tasks
type Client struct {
	asynqClient *asynq.Client
}

// NewClient creates a new queue client
func NewClient(redisAddr string) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
	}, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueRewardMint enqueues a reward accrual task for a viewer/creator
// pair. Tasks for the same pair are deduplicated while one is pending.
func (c *Client) EnqueueRewardMint(ctx context.Context, viewer, creator string) error {
	payload, err := NewRewardMintTask(viewer, creator, map[string]interface{}{
		"enqueued_at": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeRewardMint, payloadBytes)

	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("rewards"),
		asynq.TaskID(fmt.Sprintf("reward:%s:%s", creator, viewer)),
	)
	if err != nil {
		// A pending task for the pair already covers this accrual.
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Log.Debug("enqueued reward mint task",
		zap.String("viewer", viewer),
		zap.String("creator", creator),
		zap.String("task_id", info.ID),
	)

	return nil
}

// EnqueueRefundSweep enqueues a refund sweep for a taken-down video.
func (c *Client) EnqueueRefundSweep(ctx context.Context, videoID uuid.UUID, reason string) error {
	payload, err := NewRefundSweepTask(videoID, reason, map[string]interface{}{
		"enqueued_at": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeRefundSweep, payloadBytes)

	_, err = c.asynqClient.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("refunds"),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}
