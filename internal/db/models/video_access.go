package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoAccess is the proof that a viewer paid for a specific video.
// Rows are append-only: access persists even after a takedown, and a
// refund only marks the row rather than revoking it.
type VideoAccess struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	VideoID              uuid.UUID `db:"video_id" json:"video_id"`
	ViewerWallet         string    `db:"viewer_wallet" json:"viewer_wallet"`
	VideoPubkey          string    `db:"video_pubkey" json:"video_pubkey"`
	AccessPubkey         string    `db:"access_pubkey" json:"access_pubkey"`
	TokensPaid           float64   `db:"tokens_paid" json:"tokens_paid"`
	TransactionSignature string    `db:"transaction_signature" json:"transaction_signature"`
	WatchTime            int64     `db:"watch_time" json:"watch_time"`
	Completed            bool      `db:"completed" json:"completed"`
	Refunded             bool      `db:"refunded" json:"refunded"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// NewVideoAccess creates an access record for a recorded payment.
// TokensPaid freezes the amount charged; later price changes on the
// video do not affect it.
func NewVideoAccess(videoID uuid.UUID, viewerWallet, videoPubkey, accessPubkey, txSignature string, tokensPaid float64) *VideoAccess {
	now := time.Now()
	return &VideoAccess{
		ID:                   uuid.New(),
		VideoID:              videoID,
		ViewerWallet:         viewerWallet,
		VideoPubkey:          videoPubkey,
		AccessPubkey:         accessPubkey,
		TokensPaid:           tokensPaid,
		TransactionSignature: txSignature,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}
