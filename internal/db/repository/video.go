package repository

import (
	"fmt"
	"strings"

	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
)

// VideoFilters narrows catalog listings.
type VideoFilters struct {
	Category   string
	Search     string
	Uploader   string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// VideoUpdate carries the owner-editable fields; nil means unchanged.
type VideoUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Price       *float64
}

// VideoRepository defines operations for managing videos.
type VideoRepository interface {
	// Create inserts a new video.
	Create(ctx context.Context, video *models.Video) error

	// GetByID retrieves a single video by ID.
	GetByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error)

	// GetByIDForUpdate retrieves a video and row-locks it for the
	// duration of the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, videoID uuid.UUID) (*models.Video, error)

	// List retrieves videos matching the filters plus the total count.
	List(ctx context.Context, filters *VideoFilters) ([]*models.Video, int, error)

	// GetTopVideo returns the most viewed active video.
	GetTopVideo(ctx context.Context) (*models.Video, error)

	// UpdateDetails applies owner edits and returns the updated video.
	UpdateDetails(ctx context.Context, videoID uuid.UUID, update *VideoUpdate) (*models.Video, error)

	// IncrementViewCount bumps the view counter atomically and returns
	// the new value.
	IncrementViewCount(ctx context.Context, videoID uuid.UUID) (int64, error)

	// AddVotes adjusts like/dislike counters atomically, clamping at
	// zero, and returns the resulting counts.
	AddVotes(ctx context.Context, videoID uuid.UUID, likeDelta, dislikeDelta int64) (likeCount, dislikeCount int64, err error)

	// IncrementShareCount bumps the share counter atomically and
	// returns the new value.
	IncrementShareCount(ctx context.Context, videoID uuid.UUID) (int64, error)

	// AddCommentCount adjusts the comment counter atomically, clamping
	// at zero.
	AddCommentCount(ctx context.Context, videoID uuid.UUID, delta int64) error

	// SetDislikeRatio stores the recomputed ratio.
	SetDislikeRatio(ctx context.Context, videoID uuid.UUID, ratio float64) error

	// Takedown deactivates the video with the given reason. Returns
	// false if the video was already inactive; the first takedown wins
	// and its reason is never overwritten.
	Takedown(ctx context.Context, videoID uuid.UUID, reason string) (bool, error)

	// UpdateThresholds updates the moderation settings and returns the
	// updated video.
	UpdateThresholds(ctx context.Context, videoID uuid.UUID, dislikeThreshold *float64, minimumInteractions *int64) (*models.Video, error)

	// WithTx returns a copy of the repository scoped to the transaction.
	WithTx(tx pgx.Tx) VideoRepository
}

type videoRepository struct {
	q Querier
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(q Querier) VideoRepository {
	return &videoRepository{q: q}
}

func (r *videoRepository) WithTx(tx pgx.Tx) VideoRepository {
	return &videoRepository{q: tx}
}

const videoColumns = `
	id, title, description, category, tags, cid, thumbnail_cid, price,
	uploader, video_pubkey, duration, view_count, like_count, dislike_count,
	share_count, comment_count, dislike_ratio, dislike_threshold,
	minimum_interactions, is_active, takedown_reason, created_at, updated_at`

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (
			id, title, description, category, tags, cid, thumbnail_cid, price,
			uploader, video_pubkey, duration, dislike_threshold, minimum_interactions
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		video.ID,
		video.Title,
		video.Description,
		video.Category,
		video.Tags,
		video.CID,
		video.ThumbnailCID,
		video.Price,
		video.Uploader,
		video.VideoPubkey,
		video.Duration,
		video.DislikeThreshold,
		video.MinimumInteractions,
	).Scan(&video.CreatedAt, &video.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create video")
	}

	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	query := `SELECT` + videoColumns + ` FROM videos WHERE id = $1`

	video, err := scanVideo(r.q.QueryRow(ctx, query, videoID))
	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) GetByIDForUpdate(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	query := `SELECT` + videoColumns + ` FROM videos WHERE id = $1 FOR UPDATE`

	video, err := scanVideo(r.q.QueryRow(ctx, query, videoID))
	if err != nil {
		return nil, db.WrapError(err, "get video for update")
	}

	return video, nil
}

func (r *videoRepository) List(ctx context.Context, filters *VideoFilters) ([]*models.Video, int, error) {
	var conditions []string
	var args []any

	if filters.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filters.Category != "" {
		args = append(args, filters.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filters.Uploader != "" {
		args = append(args, filters.Uploader)
		conditions = append(conditions, fmt.Sprintf("uploader = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, filters.Search)
		conditions = append(conditions, fmt.Sprintf(
			"to_tsvector('english', title || ' ' || description) @@ plainto_tsquery('english', $%d)", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM videos` + where
	var total int
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, db.WrapError(err, "count videos")
	}

	args = append(args, filters.Limit, filters.Offset)
	listQuery := fmt.Sprintf(`SELECT%s FROM videos%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		videoColumns, where, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, db.WrapError(err, "list videos")
	}
	defer rows.Close()

	videos, err := scanVideos(rows)
	if err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

func (r *videoRepository) GetTopVideo(ctx context.Context) (*models.Video, error) {
	query := `SELECT` + videoColumns + ` FROM videos WHERE is_active = TRUE ORDER BY view_count DESC LIMIT 1`

	video, err := scanVideo(r.q.QueryRow(ctx, query))
	if err != nil {
		return nil, db.WrapError(err, "get top video")
	}

	return video, nil
}

func (r *videoRepository) UpdateDetails(ctx context.Context, videoID uuid.UUID, update *VideoUpdate) (*models.Video, error) {
	query := `
		UPDATE videos
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    category = COALESCE($4, category),
		    price = COALESCE($5, price),
		    updated_at = now()
		WHERE id = $1
		RETURNING` + videoColumns

	video, err := scanVideo(r.q.QueryRow(ctx, query, videoID,
		update.Title, update.Description, update.Category, update.Price))
	if err != nil {
		return nil, db.WrapError(err, "update video details")
	}

	return video, nil
}

func (r *videoRepository) IncrementViewCount(ctx context.Context, videoID uuid.UUID) (int64, error) {
	query := `
		UPDATE videos
		SET view_count = view_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING view_count
	`

	var viewCount int64
	if err := r.q.QueryRow(ctx, query, videoID).Scan(&viewCount); err != nil {
		return 0, db.WrapError(err, "increment view count")
	}

	return viewCount, nil
}

func (r *videoRepository) AddVotes(ctx context.Context, videoID uuid.UUID, likeDelta, dislikeDelta int64) (int64, int64, error) {
	query := `
		UPDATE videos
		SET like_count = GREATEST(0, like_count + $2),
		    dislike_count = GREATEST(0, dislike_count + $3),
		    updated_at = now()
		WHERE id = $1
		RETURNING like_count, dislike_count
	`

	var likeCount, dislikeCount int64
	if err := r.q.QueryRow(ctx, query, videoID, likeDelta, dislikeDelta).Scan(&likeCount, &dislikeCount); err != nil {
		return 0, 0, db.WrapError(err, "add votes")
	}

	return likeCount, dislikeCount, nil
}

func (r *videoRepository) IncrementShareCount(ctx context.Context, videoID uuid.UUID) (int64, error) {
	query := `
		UPDATE videos
		SET share_count = share_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING share_count
	`

	var shareCount int64
	if err := r.q.QueryRow(ctx, query, videoID).Scan(&shareCount); err != nil {
		return 0, db.WrapError(err, "increment share count")
	}

	return shareCount, nil
}

func (r *videoRepository) AddCommentCount(ctx context.Context, videoID uuid.UUID, delta int64) error {
	query := `
		UPDATE videos
		SET comment_count = GREATEST(0, comment_count + $2), updated_at = now()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, videoID, delta)
	if err != nil {
		return db.WrapError(err, "add comment count")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "add comment count")
	}

	return nil
}

func (r *videoRepository) SetDislikeRatio(ctx context.Context, videoID uuid.UUID, ratio float64) error {
	query := `UPDATE videos SET dislike_ratio = $2, updated_at = now() WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, videoID, ratio)
	if err != nil {
		return db.WrapError(err, "set dislike ratio")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "set dislike ratio")
	}

	return nil
}

func (r *videoRepository) Takedown(ctx context.Context, videoID uuid.UUID, reason string) (bool, error) {
	// The is_active guard makes the true->false transition terminal:
	// a second takedown attempt affects zero rows.
	query := `
		UPDATE videos
		SET is_active = FALSE, takedown_reason = $2, updated_at = now()
		WHERE id = $1 AND is_active = TRUE
	`

	tag, err := r.q.Exec(ctx, query, videoID, reason)
	if err != nil {
		return false, db.WrapError(err, "takedown video")
	}

	return tag.RowsAffected() == 1, nil
}

func (r *videoRepository) UpdateThresholds(ctx context.Context, videoID uuid.UUID, dislikeThreshold *float64, minimumInteractions *int64) (*models.Video, error) {
	query := `
		UPDATE videos
		SET dislike_threshold = COALESCE($2, dislike_threshold),
		    minimum_interactions = COALESCE($3, minimum_interactions),
		    updated_at = now()
		WHERE id = $1
		RETURNING` + videoColumns

	video, err := scanVideo(r.q.QueryRow(ctx, query, videoID, dislikeThreshold, minimumInteractions))
	if err != nil {
		return nil, db.WrapError(err, "update thresholds")
	}

	return video, nil
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	video := &models.Video{}
	err := row.Scan(
		&video.ID,
		&video.Title,
		&video.Description,
		&video.Category,
		&video.Tags,
		&video.CID,
		&video.ThumbnailCID,
		&video.Price,
		&video.Uploader,
		&video.VideoPubkey,
		&video.Duration,
		&video.ViewCount,
		&video.LikeCount,
		&video.DislikeCount,
		&video.ShareCount,
		&video.CommentCount,
		&video.DislikeRatio,
		&video.DislikeThreshold,
		&video.MinimumInteractions,
		&video.IsActive,
		&video.TakedownReason,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return video, nil
}

// Helper function to scan multiple videos from query results
func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	var videos []*models.Video

	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}
