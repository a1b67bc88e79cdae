package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
)

// UserCounters carries atomic adjustments applied to a user's lifetime
// counters. Zero-valued fields are no-ops.
type UserCounters struct {
	VideosUploaded int64
	VideosWatched  int64
	TokensSpent    float64
	TokensEarned   float64
	TokensRefunded float64
}

// ProfileUpdate carries the user-editable profile fields; nil means
// unchanged.
type ProfileUpdate struct {
	Username  *string
	Bio       *string
	Twitter   *string
	Instagram *string
	Website   *string
}

// UserRepository defines operations for wallet-keyed user profiles.
type UserRepository interface {
	// GetByWallet retrieves a user by wallet address.
	GetByWallet(ctx context.Context, walletAddress string) (*models.User, error)

	// EnsureExists creates the user row if it does not exist yet.
	EnsureExists(ctx context.Context, walletAddress string, isCreator bool) error

	// UpdateProfile upserts the user and applies profile edits.
	UpdateProfile(ctx context.Context, walletAddress string, update *ProfileUpdate) (*models.User, error)

	// SetProfilePicture stores the content id of an uploaded picture.
	SetProfilePicture(ctx context.Context, walletAddress, pictureCID string) error

	// AddCounters applies counter deltas atomically, creating the user
	// row on first touch.
	AddCounters(ctx context.Context, walletAddress string, counters *UserCounters) error

	// TopCreators lists creators ranked by lifetime tokens earned.
	TopCreators(ctx context.Context, limit int) ([]*models.User, error)
}

type userRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(q Querier) UserRepository {
	return &userRepository{q: q}
}

const userColumns = `
	wallet_address, username, profile_picture_cid, bio, videos_uploaded,
	videos_watched, tokens_spent, tokens_earned, tokens_refunded,
	twitter, instagram, website, is_creator, is_verified, created_at, updated_at`

func (r *userRepository) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE wallet_address = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, walletAddress))
	if err != nil {
		return nil, db.WrapError(err, "get user by wallet")
	}

	return user, nil
}

func (r *userRepository) EnsureExists(ctx context.Context, walletAddress string, isCreator bool) error {
	query := `
		INSERT INTO users (wallet_address, is_creator)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address)
		DO UPDATE SET is_creator = users.is_creator OR EXCLUDED.is_creator, updated_at = now()
	`

	if _, err := r.q.Exec(ctx, query, walletAddress, isCreator); err != nil {
		return db.WrapError(err, "ensure user exists")
	}

	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, walletAddress string, update *ProfileUpdate) (*models.User, error) {
	query := `
		INSERT INTO users (wallet_address, username, bio, twitter, instagram, website)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (wallet_address)
		DO UPDATE SET
			username = COALESCE(EXCLUDED.username, users.username),
			bio = COALESCE(EXCLUDED.bio, users.bio),
			twitter = COALESCE(EXCLUDED.twitter, users.twitter),
			instagram = COALESCE(EXCLUDED.instagram, users.instagram),
			website = COALESCE(EXCLUDED.website, users.website),
			updated_at = now()
		RETURNING` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, walletAddress,
		update.Username, update.Bio, update.Twitter, update.Instagram, update.Website))
	if err != nil {
		return nil, db.WrapError(err, "update user profile")
	}

	return user, nil
}

func (r *userRepository) SetProfilePicture(ctx context.Context, walletAddress, pictureCID string) error {
	query := `
		INSERT INTO users (wallet_address, profile_picture_cid)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address)
		DO UPDATE SET profile_picture_cid = EXCLUDED.profile_picture_cid, updated_at = now()
	`

	if _, err := r.q.Exec(ctx, query, walletAddress, pictureCID); err != nil {
		return db.WrapError(err, "set profile picture")
	}

	return nil
}

func (r *userRepository) AddCounters(ctx context.Context, walletAddress string, counters *UserCounters) error {
	query := `
		INSERT INTO users (
			wallet_address, videos_uploaded, videos_watched,
			tokens_spent, tokens_earned, tokens_refunded
		)
		VALUES ($1, GREATEST(0, $2), GREATEST(0, $3), GREATEST(0, $4), GREATEST(0, $5), GREATEST(0, $6))
		ON CONFLICT (wallet_address)
		DO UPDATE SET
			videos_uploaded = GREATEST(0, users.videos_uploaded + $2),
			videos_watched = GREATEST(0, users.videos_watched + $3),
			tokens_spent = GREATEST(0, users.tokens_spent + $4),
			tokens_earned = GREATEST(0, users.tokens_earned + $5),
			tokens_refunded = GREATEST(0, users.tokens_refunded + $6),
			updated_at = now()
	`

	_, err := r.q.Exec(ctx, query, walletAddress,
		counters.VideosUploaded,
		counters.VideosWatched,
		counters.TokensSpent,
		counters.TokensEarned,
		counters.TokensRefunded,
	)
	if err != nil {
		return db.WrapError(err, "add user counters")
	}

	return nil
}

func (r *userRepository) TopCreators(ctx context.Context, limit int) ([]*models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE is_creator
		ORDER BY tokens_earned DESC, wallet_address
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, db.WrapError(err, "list top creators")
	}
	defer rows.Close()

	var creators []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, db.WrapError(err, "list top creators")
		}
		creators = append(creators, user)
	}
	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "list top creators")
	}

	return creators, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.WalletAddress,
		&user.Username,
		&user.ProfilePictureCID,
		&user.Bio,
		&user.VideosUploaded,
		&user.VideosWatched,
		&user.TokensSpent,
		&user.TokensEarned,
		&user.TokensRefunded,
		&user.Twitter,
		&user.Instagram,
		&user.Website,
		&user.IsCreator,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
