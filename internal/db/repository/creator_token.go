package repository

import (
	"context"
	"fmt"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
)

// CreatorTokenRepository defines operations for creator token records.
// Each creator wallet has at most one token.
type CreatorTokenRepository interface {
	// Create registers a creator token. Returns db.ErrDuplicateKey if
	// the creator already has one.
	Create(ctx context.Context, token *models.CreatorToken) error

	// GetByCreator retrieves the token registered for a creator wallet.
	GetByCreator(ctx context.Context, creator string) (*models.CreatorToken, error)

	// ListByCreators retrieves tokens for the given creator wallets,
	// skipping creators without one.
	ListByCreators(ctx context.Context, creators []string) ([]*models.CreatorToken, error)
}

type creatorTokenRepository struct {
	q Querier
}

// NewCreatorTokenRepository creates a new CreatorTokenRepository.
func NewCreatorTokenRepository(q Querier) CreatorTokenRepository {
	return &creatorTokenRepository{q: q}
}

const creatorTokenColumns = `
	creator, mint, token_address, mint_bump, created_at`

func (r *creatorTokenRepository) Create(ctx context.Context, token *models.CreatorToken) error {
	query := `
		INSERT INTO creator_tokens (creator, mint, token_address, mint_bump)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		token.Creator,
		token.Mint,
		token.TokenAddress,
		token.MintBump,
	).Scan(&token.CreatedAt)

	if err != nil {
		return db.WrapError(err, "create creator token")
	}

	return nil
}

func (r *creatorTokenRepository) GetByCreator(ctx context.Context, creator string) (*models.CreatorToken, error) {
	query := `SELECT` + creatorTokenColumns + ` FROM creator_tokens WHERE creator = $1`

	token := &models.CreatorToken{}
	err := r.q.QueryRow(ctx, query, creator).Scan(
		&token.Creator,
		&token.Mint,
		&token.TokenAddress,
		&token.MintBump,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get creator token")
	}

	return token, nil
}

func (r *creatorTokenRepository) ListByCreators(ctx context.Context, creators []string) ([]*models.CreatorToken, error) {
	if len(creators) == 0 {
		return nil, nil
	}

	query := `SELECT` + creatorTokenColumns + ` FROM creator_tokens WHERE creator = ANY($1)`

	rows, err := r.q.Query(ctx, query, creators)
	if err != nil {
		return nil, db.WrapError(err, "list creator tokens")
	}
	defer rows.Close()

	var tokens []*models.CreatorToken
	for rows.Next() {
		token := &models.CreatorToken{}
		err := rows.Scan(
			&token.Creator,
			&token.Mint,
			&token.TokenAddress,
			&token.MintBump,
			&token.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan creator token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creator tokens: %w", err)
	}

	return tokens, nil
}
