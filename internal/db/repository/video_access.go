package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
)

// CreatorWatchTime aggregates a viewer's cumulative watch time across
// one creator's catalog.
type CreatorWatchTime struct {
	Creator      string
	TotalSeconds int64
}

// Purchase is an access record joined with its video's display fields.
type Purchase struct {
	Access     *models.VideoAccess
	VideoTitle string
	VideoCID   string
	Uploader   string
	IsActive   bool
}

// VideoAccessRepository defines operations for the paid-access ledger.
type VideoAccessRepository interface {
	// Create inserts an access record. The (video_id, viewer_wallet)
	// unique constraint makes concurrent duplicate payments safe:
	// exactly one insert wins, the rest surface ErrDuplicateKey.
	Create(ctx context.Context, access *models.VideoAccess) error

	// Get retrieves the access record for a (video, viewer) pair.
	Get(ctx context.Context, videoID uuid.UUID, viewerWallet string) (*models.VideoAccess, error)

	// GetByID retrieves an access record by its ID.
	GetByID(ctx context.Context, accessID uuid.UUID) (*models.VideoAccess, error)

	// UpdateWatchTime advances the stored watch time. Watch time is
	// monotonic: a stale, lower client report never regresses the
	// stored value. Completed latches once set.
	UpdateWatchTime(ctx context.Context, accessID uuid.UUID, watchTime int64, completed *bool) (*models.VideoAccess, error)

	// CountByVideo returns the number of access records for a video.
	CountByVideo(ctx context.Context, videoID uuid.UUID) (int, error)

	// ClaimUnrefunded atomically marks every unrefunded access row for
	// the video as refunded and returns the claimed rows. Calling it
	// again returns nothing, which is what makes refund processing
	// safe to re-run.
	ClaimUnrefunded(ctx context.Context, videoID uuid.UUID) ([]*models.VideoAccess, error)

	// ListPurchases returns a viewer's purchases with video details.
	ListPurchases(ctx context.Context, viewerWallet string) ([]*Purchase, error)

	// TotalWatchTime sums the viewer's watch time across every video
	// uploaded by the creator.
	TotalWatchTime(ctx context.Context, viewerWallet, creator string) (int64, error)

	// WatchTimeByCreator sums the viewer's watch time grouped by the
	// uploader of each watched video.
	WatchTimeByCreator(ctx context.Context, viewerWallet string) ([]*CreatorWatchTime, error)
}

type videoAccessRepository struct {
	q Querier
}

// NewVideoAccessRepository creates a new VideoAccessRepository.
func NewVideoAccessRepository(q Querier) VideoAccessRepository {
	return &videoAccessRepository{q: q}
}

const accessColumns = `
	id, video_id, viewer_wallet, video_pubkey, access_pubkey, tokens_paid,
	transaction_signature, watch_time, completed, refunded, created_at, updated_at`

func (r *videoAccessRepository) Create(ctx context.Context, access *models.VideoAccess) error {
	query := `
		INSERT INTO video_access (
			id, video_id, viewer_wallet, video_pubkey, access_pubkey,
			tokens_paid, transaction_signature
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		access.ID,
		access.VideoID,
		access.ViewerWallet,
		access.VideoPubkey,
		access.AccessPubkey,
		access.TokensPaid,
		access.TransactionSignature,
	).Scan(&access.CreatedAt, &access.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create video access")
	}

	return nil
}

func (r *videoAccessRepository) Get(ctx context.Context, videoID uuid.UUID, viewerWallet string) (*models.VideoAccess, error) {
	query := `SELECT` + accessColumns + ` FROM video_access WHERE video_id = $1 AND viewer_wallet = $2`

	access, err := scanAccess(r.q.QueryRow(ctx, query, videoID, viewerWallet))
	if err != nil {
		return nil, db.WrapError(err, "get video access")
	}

	return access, nil
}

func (r *videoAccessRepository) GetByID(ctx context.Context, accessID uuid.UUID) (*models.VideoAccess, error) {
	query := `SELECT` + accessColumns + ` FROM video_access WHERE id = $1`

	access, err := scanAccess(r.q.QueryRow(ctx, query, accessID))
	if err != nil {
		return nil, db.WrapError(err, "get video access by id")
	}

	return access, nil
}

func (r *videoAccessRepository) UpdateWatchTime(ctx context.Context, accessID uuid.UUID, watchTime int64, completed *bool) (*models.VideoAccess, error) {
	query := `
		UPDATE video_access
		SET watch_time = GREATEST(watch_time, $2),
		    completed = completed OR COALESCE($3, FALSE),
		    updated_at = now()
		WHERE id = $1
		RETURNING` + accessColumns

	access, err := scanAccess(r.q.QueryRow(ctx, query, accessID, watchTime, completed))
	if err != nil {
		return nil, db.WrapError(err, "update watch time")
	}

	return access, nil
}

func (r *videoAccessRepository) CountByVideo(ctx context.Context, videoID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM video_access WHERE video_id = $1`, videoID).Scan(&count)
	if err != nil {
		return 0, db.WrapError(err, "count video access")
	}

	return count, nil
}

func (r *videoAccessRepository) ClaimUnrefunded(ctx context.Context, videoID uuid.UUID) ([]*models.VideoAccess, error) {
	query := `
		UPDATE video_access
		SET refunded = TRUE, updated_at = now()
		WHERE video_id = $1 AND refunded = FALSE
		RETURNING` + accessColumns

	rows, err := r.q.Query(ctx, query, videoID)
	if err != nil {
		return nil, db.WrapError(err, "claim unrefunded access")
	}
	defer rows.Close()

	return scanAccesses(rows)
}

func (r *videoAccessRepository) ListPurchases(ctx context.Context, viewerWallet string) ([]*Purchase, error) {
	query := `
		SELECT
			a.id, a.video_id, a.viewer_wallet, a.video_pubkey, a.access_pubkey,
			a.tokens_paid, a.transaction_signature, a.watch_time, a.completed,
			a.refunded, a.created_at, a.updated_at,
			v.title, v.cid, v.uploader, v.is_active
		FROM video_access a
		JOIN videos v ON v.id = a.video_id
		WHERE a.viewer_wallet = $1
		ORDER BY a.created_at DESC
	`

	rows, err := r.q.Query(ctx, query, viewerWallet)
	if err != nil {
		return nil, db.WrapError(err, "list purchases")
	}
	defer rows.Close()

	var purchases []*Purchase
	for rows.Next() {
		access := &models.VideoAccess{}
		p := &Purchase{Access: access}
		err := rows.Scan(
			&access.ID,
			&access.VideoID,
			&access.ViewerWallet,
			&access.VideoPubkey,
			&access.AccessPubkey,
			&access.TokensPaid,
			&access.TransactionSignature,
			&access.WatchTime,
			&access.Completed,
			&access.Refunded,
			&access.CreatedAt,
			&access.UpdatedAt,
			&p.VideoTitle,
			&p.VideoCID,
			&p.Uploader,
			&p.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}

	return purchases, nil
}

func (r *videoAccessRepository) TotalWatchTime(ctx context.Context, viewerWallet, creator string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(a.watch_time), 0)
		FROM video_access a
		JOIN videos v ON v.id = a.video_id
		WHERE a.viewer_wallet = $1 AND v.uploader = $2
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, viewerWallet, creator).Scan(&total); err != nil {
		return 0, db.WrapError(err, "total watch time")
	}

	return total, nil
}

func (r *videoAccessRepository) WatchTimeByCreator(ctx context.Context, viewerWallet string) ([]*CreatorWatchTime, error) {
	query := `
		SELECT v.uploader, COALESCE(SUM(a.watch_time), 0)
		FROM video_access a
		JOIN videos v ON v.id = a.video_id
		WHERE a.viewer_wallet = $1
		GROUP BY v.uploader
		ORDER BY v.uploader
	`

	rows, err := r.q.Query(ctx, query, viewerWallet)
	if err != nil {
		return nil, db.WrapError(err, "watch time by creator")
	}
	defer rows.Close()

	var totals []*CreatorWatchTime
	for rows.Next() {
		cw := &CreatorWatchTime{}
		if err := rows.Scan(&cw.Creator, &cw.TotalSeconds); err != nil {
			return nil, fmt.Errorf("scan creator watch time: %w", err)
		}
		totals = append(totals, cw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creator watch time: %w", err)
	}

	return totals, nil
}

func scanAccess(row pgx.Row) (*models.VideoAccess, error) {
	access := &models.VideoAccess{}
	err := row.Scan(
		&access.ID,
		&access.VideoID,
		&access.ViewerWallet,
		&access.VideoPubkey,
		&access.AccessPubkey,
		&access.TokensPaid,
		&access.TransactionSignature,
		&access.WatchTime,
		&access.Completed,
		&access.Refunded,
		&access.CreatedAt,
		&access.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return access, nil
}

func scanAccesses(rows pgx.Rows) ([]*models.VideoAccess, error) {
	var accesses []*models.VideoAccess

	for rows.Next() {
		access, err := scanAccess(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video access: %w", err)
		}
		accesses = append(accesses, access)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video access: %w", err)
	}

	return accesses, nil
}
