package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
)

// InteractionRepository defines operations for like/dislike/share rows.
type InteractionRepository interface {
	// Get retrieves the interaction row for (video, user, type).
	Get(ctx context.Context, videoID uuid.UUID, userWallet, interactionType string) (*models.Interaction, error)

	// Create inserts a new interaction row.
	Create(ctx context.Context, interaction *models.Interaction) error

	// SetActive toggles the active flag on an existing row.
	SetActive(ctx context.Context, interactionID uuid.UUID, active bool) error

	// UpdateShareTarget overwrites the share destination on a share row.
	UpdateShareTarget(ctx context.Context, interactionID uuid.UUID, sharedTo string) error

	// ListByVideo lists interactions for a video, optionally filtered
	// by type. Votes are filtered to active rows; shares are not.
	ListByVideo(ctx context.Context, videoID uuid.UUID, interactionType string) ([]*models.Interaction, error)

	// ActiveByUser lists the user's active interactions on a video.
	ActiveByUser(ctx context.Context, videoID uuid.UUID, userWallet string) ([]*models.Interaction, error)

	// WithTx returns a copy of the repository scoped to the transaction.
	WithTx(tx pgx.Tx) InteractionRepository
}

type interactionRepository struct {
	q Querier
}

// NewInteractionRepository creates a new InteractionRepository.
func NewInteractionRepository(q Querier) InteractionRepository {
	return &interactionRepository{q: q}
}

func (r *interactionRepository) WithTx(tx pgx.Tx) InteractionRepository {
	return &interactionRepository{q: tx}
}

const interactionColumns = `
	id, video_id, user_wallet, type, shared_to, active, created_at, updated_at`

func (r *interactionRepository) Get(ctx context.Context, videoID uuid.UUID, userWallet, interactionType string) (*models.Interaction, error) {
	query := `SELECT` + interactionColumns + `
		FROM interactions
		WHERE video_id = $1 AND user_wallet = $2 AND type = $3`

	interaction, err := scanInteraction(r.q.QueryRow(ctx, query, videoID, userWallet, interactionType))
	if err != nil {
		return nil, db.WrapError(err, "get interaction")
	}

	return interaction, nil
}

func (r *interactionRepository) Create(ctx context.Context, interaction *models.Interaction) error {
	query := `
		INSERT INTO interactions (id, video_id, user_wallet, type, shared_to, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		interaction.ID,
		interaction.VideoID,
		interaction.UserWallet,
		interaction.Type,
		interaction.SharedTo,
		interaction.Active,
	).Scan(&interaction.CreatedAt, &interaction.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create interaction")
	}

	return nil
}

func (r *interactionRepository) SetActive(ctx context.Context, interactionID uuid.UUID, active bool) error {
	query := `UPDATE interactions SET active = $2, updated_at = now() WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, interactionID, active)
	if err != nil {
		return db.WrapError(err, "set interaction active")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "set interaction active")
	}

	return nil
}

func (r *interactionRepository) UpdateShareTarget(ctx context.Context, interactionID uuid.UUID, sharedTo string) error {
	query := `UPDATE interactions SET shared_to = $2, updated_at = now() WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, interactionID, sharedTo)
	if err != nil {
		return db.WrapError(err, "update share target")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "update share target")
	}

	return nil
}

func (r *interactionRepository) ListByVideo(ctx context.Context, videoID uuid.UUID, interactionType string) ([]*models.Interaction, error) {
	query := `SELECT` + interactionColumns + ` FROM interactions WHERE video_id = $1`
	args := []any{videoID}

	if interactionType != "" {
		query += ` AND type = $2`
		args = append(args, interactionType)

		// A toggled-off vote no longer counts; historical share rows do.
		if interactionType == models.InteractionLike || interactionType == models.InteractionDislike {
			query += ` AND active = TRUE`
		}
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.WrapError(err, "list interactions by video")
	}
	defer rows.Close()

	return scanInteractions(rows)
}

func (r *interactionRepository) ActiveByUser(ctx context.Context, videoID uuid.UUID, userWallet string) ([]*models.Interaction, error) {
	query := `SELECT` + interactionColumns + `
		FROM interactions
		WHERE video_id = $1 AND user_wallet = $2 AND active = TRUE`

	rows, err := r.q.Query(ctx, query, videoID, userWallet)
	if err != nil {
		return nil, db.WrapError(err, "list active interactions by user")
	}
	defer rows.Close()

	return scanInteractions(rows)
}

func scanInteraction(row pgx.Row) (*models.Interaction, error) {
	interaction := &models.Interaction{}
	err := row.Scan(
		&interaction.ID,
		&interaction.VideoID,
		&interaction.UserWallet,
		&interaction.Type,
		&interaction.SharedTo,
		&interaction.Active,
		&interaction.CreatedAt,
		&interaction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return interaction, nil
}

func scanInteractions(rows pgx.Rows) ([]*models.Interaction, error) {
	var interactions []*models.Interaction

	for rows.Next() {
		interaction, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interactions = append(interactions, interaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}

	return interactions, nil
}
