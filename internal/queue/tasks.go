package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Task types
const (
	TypeRewardMint  = "reward:mint"
	TypeRefundSweep = "refund:sweep"
)

// RewardMintPayload is the payload for reward accrual tasks. One task
// reconciles a single viewer/creator pair.
type RewardMintPayload struct {
	Viewer   string                 `json:"viewer"`
	Creator  string                 `json:"creator"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NewRewardMintTask creates a new reward accrual task payload
func NewRewardMintTask(viewer, creator string, metadata map[string]interface{}) (*RewardMintPayload, error) {
	if viewer == "" {
		return nil, fmt.Errorf("viewer wallet is required")
	}
	if creator == "" {
		return nil, fmt.Errorf("creator wallet is required")
	}

	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &RewardMintPayload{
		Viewer:   viewer,
		Creator:  creator,
		Metadata: metadata,
	}, nil
}

// Marshal serializes the payload to JSON
func (p *RewardMintPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalRewardMintPayload deserializes JSON to payload
func UnmarshalRewardMintPayload(data []byte) (*RewardMintPayload, error) {
	var payload RewardMintPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}

// RefundSweepPayload is the payload for refund sweep tasks issued when
// a video is taken down.
type RefundSweepPayload struct {
	VideoID  uuid.UUID              `json:"video_id"`
	Reason   string                 `json:"reason"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NewRefundSweepTask creates a new refund sweep task payload
func NewRefundSweepTask(videoID uuid.UUID, reason string, metadata map[string]interface{}) (*RefundSweepPayload, error) {
	if videoID == uuid.Nil {
		return nil, fmt.Errorf("video ID is required")
	}

	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &RefundSweepPayload{
		VideoID:  videoID,
		Reason:   reason,
		Metadata: metadata,
	}, nil
}

// Marshal serializes the payload to JSON
func (p *RefundSweepPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalRefundSweepPayload deserializes JSON to payload
func UnmarshalRefundSweepPayload(data []byte) (*RefundSweepPayload, error) {
	var payload RefundSweepPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
