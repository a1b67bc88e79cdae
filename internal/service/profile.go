package service

import (
	"context"
	"io"

	"github.com/str3am/backend-go/internal/content"
	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/validation"
)

const defaultTopCreators = 10

// UserStats summarizes a user's lifetime platform counters.
type UserStats struct {
	VideosUploaded int64   `json:"videos_uploaded"`
	VideosWatched  int64   `json:"videos_watched"`
	TokensEarned   float64 `json:"tokens_earned"`
	TokensSpent    float64 `json:"tokens_spent"`
	TokensRefunded float64 `json:"tokens_refunded"`
}

// ProfileService manages wallet-keyed user profiles.
type ProfileService struct {
	users     repository.UserRepository
	store     content.Store
	validator *validation.Validator
}

// NewProfileService creates a new ProfileService.
func NewProfileService(users repository.UserRepository, store content.Store, validator *validation.Validator) *ProfileService {
	return &ProfileService{
		users:     users,
		store:     store,
		validator: validator,
	}
}

// GetProfile returns the profile for a wallet.
func (s *ProfileService) GetProfile(ctx context.Context, walletAddress string) (*models.User, error) {
	if err := s.validator.ValidateWallet(walletAddress); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return s.users.GetByWallet(ctx, walletAddress)
}

// GetStats returns the lifetime counters for a wallet.
func (s *ProfileService) GetStats(ctx context.Context, walletAddress string) (*UserStats, error) {
	if err := s.validator.ValidateWallet(walletAddress); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	user, err := s.users.GetByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		VideosUploaded: user.VideosUploaded,
		VideosWatched:  user.VideosWatched,
		TokensEarned:   user.TokensEarned,
		TokensSpent:    user.TokensSpent,
		TokensRefunded: user.TokensRefunded,
	}, nil
}

// TopCreators lists creators ranked by lifetime tokens earned.
func (s *ProfileService) TopCreators(ctx context.Context, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = defaultTopCreators
	}
	return s.users.TopCreators(ctx, limit)
}

// UpdateProfile upserts the profile and applies the edits.
func (s *ProfileService) UpdateProfile(ctx context.Context, walletAddress string, update *repository.ProfileUpdate) (*models.User, error) {
	if err := s.validator.ValidateWallet(walletAddress); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return s.users.UpdateProfile(ctx, walletAddress, update)
}

// SetProfilePicture stores an uploaded picture and records its content
// id on the profile.
func (s *ProfileService) SetProfilePicture(ctx context.Context, walletAddress string, picture io.Reader, contentType string) (string, error) {
	if err := s.validator.ValidateWallet(walletAddress); err != nil {
		return "", &ValidationError{Message: err.Error()}
	}

	cid, err := s.store.Put(picture, contentType)
	if err != nil {
		return "", &ProcessingError{Message: "failed to store profile picture", Cause: err}
	}

	if err := s.users.EnsureExists(ctx, walletAddress, false); err != nil {
		return "", err
	}
	if err := s.users.SetProfilePicture(ctx, walletAddress, cid); err != nil {
		return "", err
	}

	return cid, nil
}

// PictureURL resolves a stored picture content id to its public URL.
func (s *ProfileService) PictureURL(cid string) string {
	return s.store.URL(cid)
}
