package models

import (
	"time"

	"github.com/google/uuid"
)

// Takedown reason constants. A takedown is terminal: once IsActive flips
// to false there is no path back to active.
const (
	TakedownDislikeRatio    = "dislike_ratio"
	TakedownAdminAction     = "admin_action"
	TakedownUploaderRemoved = "uploader_removed"
)

// Default moderation parameters applied to new videos.
const (
	DefaultDislikeThreshold    = 0.8
	DefaultMinimumInteractions = 100
)

// Video represents a pay-per-view video in the catalog.
type Video struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	Title               string    `db:"title" json:"title"`
	Description         string    `db:"description" json:"description"`
	Category            string    `db:"category" json:"category"`
	Tags                []string  `db:"tags" json:"tags"`
	CID                 string    `db:"cid" json:"cid"`
	ThumbnailCID        *string   `db:"thumbnail_cid" json:"thumbnail_cid,omitempty"`
	Price               float64   `db:"price" json:"price"`
	Uploader            string    `db:"uploader" json:"uploader"`
	VideoPubkey         string    `db:"video_pubkey" json:"video_pubkey"`
	Duration            int64     `db:"duration" json:"duration"`
	ViewCount           int64     `db:"view_count" json:"view_count"`
	LikeCount           int64     `db:"like_count" json:"like_count"`
	DislikeCount        int64     `db:"dislike_count" json:"dislike_count"`
	ShareCount          int64     `db:"share_count" json:"share_count"`
	CommentCount        int64     `db:"comment_count" json:"comment_count"`
	DislikeRatio        float64   `db:"dislike_ratio" json:"dislike_ratio"`
	DislikeThreshold    float64   `db:"dislike_threshold" json:"dislike_threshold"`
	MinimumInteractions int64     `db:"minimum_interactions" json:"minimum_interactions"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	TakedownReason      *string   `db:"takedown_reason" json:"takedown_reason,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// NewVideo creates a new active Video with default moderation settings.
func NewVideo(title, description, category, cid, uploader, videoPubkey string, price float64) *Video {
	now := time.Now()
	return &Video{
		ID:                  uuid.New(),
		Title:               title,
		Description:         description,
		Category:            category,
		CID:                 cid,
		Price:               price,
		Uploader:            uploader,
		VideoPubkey:         videoPubkey,
		DislikeThreshold:    DefaultDislikeThreshold,
		MinimumInteractions: DefaultMinimumInteractions,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// VoteTotal returns the number of like+dislike votes counted toward the
// dislike ratio.
func (v *Video) VoteTotal() int64 {
	return v.LikeCount + v.DislikeCount
}

// RatioConsulted reports whether the dislike ratio is meaningful yet,
// i.e. the vote total has reached the minimum interaction count.
func (v *Video) RatioConsulted() bool {
	return v.VoteTotal() >= v.MinimumInteractions
}
