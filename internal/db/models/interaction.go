package models

import (
	"time"

	"github.com/google/uuid"
)

// Interaction type constants.
const (
	InteractionLike    = "like"
	InteractionDislike = "dislike"
	InteractionShare   = "share"
)

// Valid share targets.
var ShareTargets = map[string]bool{
	"twitter":  true,
	"facebook": true,
	"telegram": true,
	"whatsapp": true,
	"email":    true,
	"other":    true,
}

// Interaction is a single viewer's reaction to a video. At most one row
// exists per (video, viewer, type); like/dislike rows toggle Active
// while share rows accumulate into the video's share counter.
type Interaction struct {
	ID         uuid.UUID `db:"id" json:"id"`
	VideoID    uuid.UUID `db:"video_id" json:"video_id"`
	UserWallet string    `db:"user_wallet" json:"user_wallet"`
	Type       string    `db:"type" json:"type"`
	SharedTo   *string   `db:"shared_to" json:"shared_to,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// IsValidInteractionType reports whether t is a recognized interaction type.
func IsValidInteractionType(t string) bool {
	return t == InteractionLike || t == InteractionDislike || t == InteractionShare
}

// OppositeVote returns the mutually exclusive vote type for like/dislike,
// or empty for anything else.
func OppositeVote(t string) string {
	switch t {
	case InteractionLike:
		return InteractionDislike
	case InteractionDislike:
		return InteractionLike
	default:
		return ""
	}
}
