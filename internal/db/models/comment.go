package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxCommentLength bounds user-supplied comment content.
const MaxCommentLength = 1000

// Comment is a flat-threaded comment on a video. ParentID is nil for
// top-level comments and points at another comment for replies.
type Comment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	VideoID    uuid.UUID  `db:"video_id" json:"video_id"`
	UserWallet string     `db:"user_wallet" json:"user_wallet"`
	UserName   string     `db:"user_name" json:"user_name"`
	Content    string     `db:"content" json:"content"`
	ParentID   *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	Upvotes    int64      `db:"upvotes" json:"upvotes"`
	Downvotes  int64      `db:"downvotes" json:"downvotes"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// NewComment creates an active comment.
func NewComment(videoID uuid.UUID, userWallet, userName, content string, parentID *uuid.UUID) *Comment {
	now := time.Now()
	return &Comment{
		ID:         uuid.New(),
		VideoID:    videoID,
		UserWallet: userWallet,
		UserName:   userName,
		Content:    content,
		ParentID:   parentID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
