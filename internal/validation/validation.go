package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/str3am/backend-go/internal/db/models"
)

var (
	// Base58 without 0, O, I, l. Solana-style addresses are 32 to 44
	// characters long.
	walletRegex    = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	signatureRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{64,88}$`)
	cidRegex       = regexp.MustCompile(`^[a-zA-Z0-9]{32,128}$`)
)

// MaxTitleLength and MaxDescriptionLength mirror the CHECK constraints
// on the videos table, so oversized input fails here instead of at the
// database.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxTags              = 20
	MaxTagLength         = 30
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) IsValidWallet(wallet string) bool {
	return walletRegex.MatchString(wallet)
}

func (v *Validator) IsValidSignature(signature string) bool {
	return signatureRegex.MatchString(signature)
}

func (v *Validator) IsValidContentID(cid string) bool {
	return cidRegex.MatchString(cid)
}

// ValidateWallet checks the wallet address format.
func (v *Validator) ValidateWallet(wallet string) error {
	if !walletRegex.MatchString(wallet) {
		return fmt.Errorf("invalid wallet address format: %s", wallet)
	}
	return nil
}

// ValidateVideoUpload checks the user-supplied fields of a new video.
func (v *Validator) ValidateVideoUpload(title, description string, price float64, tags []string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLength {
		return fmt.Errorf("title exceeds maximum length of %d characters", MaxTitleLength)
	}
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("description exceeds maximum length of %d characters", MaxDescriptionLength)
	}
	if price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if len(tags) > MaxTags {
		return fmt.Errorf("too many tags: %d (max %d)", len(tags), MaxTags)
	}
	for _, tag := range tags {
		if tag == "" || len(tag) > MaxTagLength {
			return fmt.Errorf("invalid tag: %q", tag)
		}
	}
	return nil
}

// ValidateInteraction checks the interaction type and, for shares, the
// share target.
func (v *Validator) ValidateInteraction(interactionType, shareTarget string) error {
	if !models.IsValidInteractionType(interactionType) {
		return fmt.Errorf("invalid interaction type: %s", interactionType)
	}
	if interactionType == models.InteractionShare {
		if !models.ShareTargets[shareTarget] {
			return fmt.Errorf("invalid share target: %s", shareTarget)
		}
	}
	return nil
}

// ValidateComment checks comment content bounds.
func (v *Validator) ValidateComment(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("comment content is required")
	}
	if len(content) > models.MaxCommentLength {
		return fmt.Errorf("comment exceeds maximum length of %d characters", models.MaxCommentLength)
	}
	return nil
}

// ValidateThresholds checks takedown threshold parameters.
func (v *Validator) ValidateThresholds(dislikeThreshold float64, minimumInteractions int) error {
	if dislikeThreshold <= 0 || dislikeThreshold > 1 {
		return fmt.Errorf("dislike threshold must be in (0, 1], got %v", dislikeThreshold)
	}
	if minimumInteractions < 1 {
		return fmt.Errorf("minimum interactions must be at least 1, got %d", minimumInteractions)
	}
	return nil
}

// ValidateWatchTime checks a reported watch time sample.
func (v *Validator) ValidateWatchTime(seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("watch time must not be negative")
	}
	return nil
}
