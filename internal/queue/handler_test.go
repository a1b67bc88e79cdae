package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type stubRefundProcessor struct {
	refunded int
	failed   int
	err      error
	calls    int
}

func (s *stubRefundProcessor) ProcessRefunds(ctx context.Context, videoID uuid.UUID, reason string) (int, int, error) {
	s.calls++
	return s.refunded, s.failed, s.err
}

func refundSweepTask(t *testing.T, videoID uuid.UUID) *asynq.Task {
	t.Helper()

	payload, err := NewRefundSweepTask(videoID, "dislike_ratio", nil)
	if err != nil {
		t.Fatalf("NewRefundSweepTask() error = %v", err)
	}
	data, err := payload.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return asynq.NewTask(TypeRefundSweep, data)
}

func TestHandleRefundSweepTask(t *testing.T) {
	processor := &stubRefundProcessor{refunded: 3}
	handler := NewTaskHandler(nil, processor)

	err := handler.HandleRefundSweepTask()(context.Background(), refundSweepTask(t, uuid.New()))
	if err != nil {
		t.Errorf("HandleRefundSweepTask() error = %v", err)
	}
	if processor.calls != 1 {
		t.Errorf("expected 1 sweep, got %d", processor.calls)
	}
}

func TestHandleRefundSweepTask_PartialFailureCompletes(t *testing.T) {
	// The sweep claims the refunded flags up front, so a retry after a
	// failed credit would find nothing to process. The task must not
	// report an error that would requeue it.
	processor := &stubRefundProcessor{refunded: 2, failed: 1}
	handler := NewTaskHandler(nil, processor)

	err := handler.HandleRefundSweepTask()(context.Background(), refundSweepTask(t, uuid.New()))
	if err != nil {
		t.Errorf("HandleRefundSweepTask() error = %v, want nil on partial failure", err)
	}
}

func TestHandleRefundSweepTask_SweepError(t *testing.T) {
	processor := &stubRefundProcessor{err: errors.New("db down")}
	handler := NewTaskHandler(nil, processor)

	err := handler.HandleRefundSweepTask()(context.Background(), refundSweepTask(t, uuid.New()))
	if err == nil {
		t.Error("HandleRefundSweepTask() did not surface the sweep error")
	}
}
