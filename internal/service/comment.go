package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/validation"
)

// CommentService manages flat-threaded comments and keeps the video's
// comment counter in step with them.
type CommentService struct {
	pool     TxBeginner
	videos   repository.VideoRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	access   repository.VideoAccessRepository

	validator *validation.Validator
}

// NewCommentService creates a new CommentService.
func NewCommentService(
	pool TxBeginner,
	videos repository.VideoRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	access repository.VideoAccessRepository,
	validator *validation.Validator,
) *CommentService {
	return &CommentService{
		pool:      pool,
		videos:    videos,
		comments:  comments,
		users:     users,
		access:    access,
		validator: validator,
	}
}

// AddComment posts a comment or reply on an active video.
func (s *CommentService) AddComment(ctx context.Context, videoID uuid.UUID, userWallet, userName, commentContent string, parentID *uuid.UUID) (*models.Comment, error) {
	if err := s.validator.ValidateWallet(userWallet); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := s.validator.ValidateComment(commentContent); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.IsActive {
		return nil, ErrInactiveVideo
	}
	if err := requirePaidAccess(ctx, s.access, video, userWallet); err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.comments.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.VideoID != videoID {
			return nil, &ValidationError{Message: "parent comment belongs to a different video"}
		}
		// Replies stay one level deep.
		if parent.ParentID != nil {
			parentID = parent.ParentID
		}
	}

	if err := s.users.EnsureExists(ctx, userWallet, false); err != nil {
		return nil, err
	}

	comment := models.NewComment(videoID, userWallet, userName, commentContent, parentID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &ProcessingError{Message: "failed to begin transaction", Cause: err}
	}
	defer tx.Rollback(ctx)

	if err := s.comments.WithTx(tx).Create(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.videos.WithTx(tx).AddCommentCount(ctx, videoID, 1); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &ProcessingError{Message: "failed to commit comment", Cause: err}
	}

	return comment, nil
}

// ListComments returns a page of comments for a video along with the
// total count. A parent id selects the replies under that comment.
func (s *CommentService) ListComments(ctx context.Context, videoID uuid.UUID, filters *repository.CommentFilters) ([]*models.Comment, int, error) {
	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		return nil, 0, err
	}
	return s.comments.ListByVideo(ctx, videoID, filters)
}

// UpdateComment edits a comment's body. Only the author may edit.
func (s *CommentService) UpdateComment(ctx context.Context, commentID uuid.UUID, caller, commentContent string) (*models.Comment, error) {
	if err := s.validator.ValidateComment(commentContent); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserWallet != caller {
		return nil, ErrForbidden
	}
	if !comment.IsActive {
		return nil, db.ErrNotFound
	}

	return s.comments.UpdateContent(ctx, commentID, commentContent)
}

// DeleteComment removes a comment. The author, the video owner and
// admins may delete.
func (s *CommentService) DeleteComment(ctx context.Context, commentID uuid.UUID, caller string, admin bool) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	if !admin && comment.UserWallet != caller {
		video, err := s.videos.GetByID(ctx, comment.VideoID)
		if err != nil {
			return err
		}
		if video.Uploader != caller {
			return ErrForbidden
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &ProcessingError{Message: "failed to begin transaction", Cause: err}
	}
	defer tx.Rollback(ctx)

	deleted, err := s.comments.WithTx(tx).SoftDelete(ctx, commentID)
	if err != nil {
		return err
	}
	if deleted {
		if err := s.videos.WithTx(tx).AddCommentCount(ctx, comment.VideoID, -1); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &ProcessingError{Message: "failed to commit comment deletion", Cause: err}
	}

	return nil
}

// VoteComment bumps a comment's upvote or downvote counter.
func (s *CommentService) VoteComment(ctx context.Context, commentID uuid.UUID, upvote bool) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !comment.IsActive {
		return nil, db.ErrNotFound
	}

	upvotes, downvotes, err := s.comments.AddVote(ctx, commentID, upvote)
	if err != nil {
		return nil, err
	}
	comment.Upvotes = upvotes
	comment.Downvotes = downvotes

	return comment, nil
}
