package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
)

// CommentFilters narrows comment listings. ParentID of uuid.Nil selects
// top-level comments; a concrete id selects replies to that comment.
type CommentFilters struct {
	ParentID uuid.UUID
	Limit    int
	Offset   int
}

// CommentRepository defines operations for video comments.
type CommentRepository interface {
	// Create inserts a new comment.
	Create(ctx context.Context, comment *models.Comment) error

	// GetByID retrieves a comment by ID.
	GetByID(ctx context.Context, commentID uuid.UUID) (*models.Comment, error)

	// ListByVideo lists active comments for a video with pagination,
	// newest first, plus the total matching count.
	ListByVideo(ctx context.Context, videoID uuid.UUID, filters *CommentFilters) ([]*models.Comment, int, error)

	// UpdateContent replaces the comment body.
	UpdateContent(ctx context.Context, commentID uuid.UUID, content string) (*models.Comment, error)

	// SoftDelete deactivates a comment. Returns false if it was
	// already inactive.
	SoftDelete(ctx context.Context, commentID uuid.UUID) (bool, error)

	// AddVote bumps the upvote or downvote counter atomically and
	// returns the new totals.
	AddVote(ctx context.Context, commentID uuid.UUID, upvote bool) (upvotes, downvotes int64, err error)

	// WithTx returns a copy of the repository scoped to the transaction.
	WithTx(tx pgx.Tx) CommentRepository
}

type commentRepository struct {
	q Querier
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(q Querier) CommentRepository {
	return &commentRepository{q: q}
}

func (r *commentRepository) WithTx(tx pgx.Tx) CommentRepository {
	return &commentRepository{q: tx}
}

const commentColumns = `
	id, video_id, user_wallet, user_name, content, parent_id, is_active,
	upvotes, downvotes, created_at, updated_at`

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, video_id, user_wallet, user_name, content, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		comment.ID,
		comment.VideoID,
		comment.UserWallet,
		comment.UserName,
		comment.Content,
		comment.ParentID,
	).Scan(&comment.CreatedAt, &comment.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create comment")
	}

	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, commentID uuid.UUID) (*models.Comment, error) {
	query := `SELECT` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.q.QueryRow(ctx, query, commentID))
	if err != nil {
		return nil, db.WrapError(err, "get comment by id")
	}

	return comment, nil
}

func (r *commentRepository) ListByVideo(ctx context.Context, videoID uuid.UUID, filters *CommentFilters) ([]*models.Comment, int, error) {
	where := `WHERE video_id = $1 AND is_active = TRUE AND parent_id IS NULL`
	args := []any{videoID}
	if filters.ParentID != uuid.Nil {
		where = `WHERE video_id = $1 AND is_active = TRUE AND parent_id = $2`
		args = append(args, filters.ParentID)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM comments ` + where
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, db.WrapError(err, "count comments")
	}

	args = append(args, filters.Limit, filters.Offset)
	listQuery := fmt.Sprintf(`SELECT%s FROM comments %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		commentColumns, where, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, db.WrapError(err, "list comments")
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, total, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, commentID uuid.UUID, content string) (*models.Comment, error) {
	query := `
		UPDATE comments
		SET content = $2, updated_at = now()
		WHERE id = $1
		RETURNING` + commentColumns

	comment, err := scanComment(r.q.QueryRow(ctx, query, commentID, content))
	if err != nil {
		return nil, db.WrapError(err, "update comment content")
	}

	return comment, nil
}

func (r *commentRepository) SoftDelete(ctx context.Context, commentID uuid.UUID) (bool, error) {
	query := `
		UPDATE comments
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active = TRUE
	`

	tag, err := r.q.Exec(ctx, query, commentID)
	if err != nil {
		return false, db.WrapError(err, "soft delete comment")
	}

	return tag.RowsAffected() == 1, nil
}

func (r *commentRepository) AddVote(ctx context.Context, commentID uuid.UUID, upvote bool) (int64, int64, error) {
	query := `
		UPDATE comments
		SET upvotes = upvotes + CASE WHEN $2 THEN 1 ELSE 0 END,
		    downvotes = downvotes + CASE WHEN $2 THEN 0 ELSE 1 END,
		    updated_at = now()
		WHERE id = $1
		RETURNING upvotes, downvotes
	`

	var upvotes, downvotes int64
	if err := r.q.QueryRow(ctx, query, commentID, upvote).Scan(&upvotes, &downvotes); err != nil {
		return 0, 0, db.WrapError(err, "vote comment")
	}

	return upvotes, downvotes, nil
}

func scanComment(row pgx.Row) (*models.Comment, error) {
	comment := &models.Comment{}
	err := row.Scan(
		&comment.ID,
		&comment.VideoID,
		&comment.UserWallet,
		&comment.UserName,
		&comment.Content,
		&comment.ParentID,
		&comment.IsActive,
		&comment.Upvotes,
		&comment.Downvotes,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return comment, nil
}
