package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/ledger"
	"github.com/str3am/backend-go/internal/validation"
	"github.com/str3am/backend-go/pkg/logger"
)

// CreatorRewards summarizes a viewer's standing with one creator's
// token.
type CreatorRewards struct {
	Creator           string  `json:"creator"`
	Mint              string  `json:"mint"`
	TotalWatchSeconds int64   `json:"total_watch_seconds"`
	EarnedTokens      int64   `json:"earned_tokens"`
	OnChainBalance    int64   `json:"on_chain_balance"`
	PendingTokens     int64   `json:"pending_tokens"`
	Progress          float64 `json:"progress"`
}

// ViewerRewards is the reward summary across all creators the viewer
// has watched.
type ViewerRewards struct {
	Viewer   string            `json:"viewer"`
	Creators []*CreatorRewards `json:"creators"`
}

// RewardService converts cumulative watch time into creator token
// mints. Earned tokens are a pure function of total watch time; mints
// only ever cover the gap between earned and on-chain balance, so
// replays and retries cannot over-mint.
type RewardService struct {
	tokens           repository.CreatorTokenRepository
	access           repository.VideoAccessRepository
	users            repository.UserRepository
	ledger           ledger.Client
	validator        *validation.Validator
	metrics          *Metrics
	thresholdSeconds int64
}

// NewRewardService creates a new RewardService.
func NewRewardService(
	tokens repository.CreatorTokenRepository,
	access repository.VideoAccessRepository,
	users repository.UserRepository,
	ledgerClient ledger.Client,
	validator *validation.Validator,
	metrics *Metrics,
	thresholdSeconds int64,
) *RewardService {
	return &RewardService{
		tokens:           tokens,
		access:           access,
		users:            users,
		ledger:           ledgerClient,
		validator:        validator,
		metrics:          metrics,
		thresholdSeconds: thresholdSeconds,
	}
}

// EarnedTokens returns how many whole tokens a watch-time total is
// worth.
func (s *RewardService) EarnedTokens(totalSeconds int64) int64 {
	if totalSeconds <= 0 {
		return 0
	}
	return totalSeconds / s.thresholdSeconds
}

// CreateCreatorToken onboards a creator to the reward program by
// deriving and registering their token addresses. Registration happens
// once; a repeat call conflicts with the existing record.
func (s *RewardService) CreateCreatorToken(ctx context.Context, creator string) (*models.CreatorToken, error) {
	if err := s.validator.ValidateWallet(creator); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	addrs, err := s.ledger.DeriveTokenAddress(ctx, creator)
	if err != nil {
		return nil, err
	}

	token := &models.CreatorToken{
		Creator:      creator,
		Mint:         addrs.Mint,
		TokenAddress: addrs.TokenAddress,
		MintBump:     addrs.MintBump,
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		if db.IsDuplicateKey(err) {
			existing, getErr := s.tokens.GetByCreator(ctx, creator)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &ConflictError{
				Message:  "creator token already registered",
				Existing: existing,
			}
		}
		return nil, err
	}

	logger.Log.Info("creator token registered",
		zap.String("creator", creator),
		zap.String("mint", token.Mint),
	)

	return token, nil
}

// GetCreatorToken returns the registered token for a creator.
func (s *RewardService) GetCreatorToken(ctx context.Context, creator string) (*models.CreatorToken, error) {
	return s.tokens.GetByCreator(ctx, creator)
}

// AccrueAndMint reconciles a viewer's accrued rewards for one creator
// and mints the outstanding delta. Returns the number of tokens minted.
// A creator without a registered token accrues nothing.
func (s *RewardService) AccrueAndMint(ctx context.Context, viewer, creator string) (int64, error) {
	_, err := s.tokens.GetByCreator(ctx, creator)
	if err != nil {
		if db.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}

	total, err := s.access.TotalWatchTime(ctx, viewer, creator)
	if err != nil {
		return 0, err
	}

	earned := s.EarnedTokens(total)
	if earned == 0 {
		return 0, nil
	}

	balance, err := s.ledger.TokenBalance(ctx, creator, viewer)
	if err != nil {
		return 0, err
	}

	delta := earned - balance
	if delta <= 0 {
		return 0, nil
	}

	signature, err := s.ledger.Mint(ctx, creator, viewer, delta, uuid.New())
	if err != nil {
		return 0, err
	}

	s.metrics.RecordMint(delta)

	if err := s.users.AddCounters(ctx, viewer, &repository.UserCounters{
		TokensEarned: float64(delta),
	}); err != nil {
		logger.Log.Warn("failed to update viewer reward counters",
			zap.String("viewer", viewer),
			zap.Error(err),
		)
	}

	logger.Log.Info("minted reward tokens",
		zap.String("viewer", viewer),
		zap.String("creator", creator),
		zap.Int64("minted", delta),
		zap.Int64("totalWatchSeconds", total),
		zap.String("signature", signature),
	)

	return delta, nil
}

// ViewerSummary reports the viewer's reward standing per creator:
// accrued watch time, earned and on-chain tokens, and progress toward
// the next token.
func (s *RewardService) ViewerSummary(ctx context.Context, viewer string) (*ViewerRewards, error) {
	if err := s.validator.ValidateWallet(viewer); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	watchTimes, err := s.access.WatchTimeByCreator(ctx, viewer)
	if err != nil {
		return nil, err
	}

	summary := &ViewerRewards{Viewer: viewer, Creators: []*CreatorRewards{}}
	if len(watchTimes) == 0 {
		return summary, nil
	}

	creators := make([]string, 0, len(watchTimes))
	for _, wt := range watchTimes {
		creators = append(creators, wt.Creator)
	}

	tokens, err := s.tokens.ListByCreators(ctx, creators)
	if err != nil {
		return nil, err
	}
	tokenByCreator := make(map[string]*models.CreatorToken, len(tokens))
	for _, token := range tokens {
		tokenByCreator[token.Creator] = token
	}

	for _, wt := range watchTimes {
		token, ok := tokenByCreator[wt.Creator]
		if !ok {
			continue
		}

		balance, err := s.ledger.TokenBalance(ctx, wt.Creator, viewer)
		if err != nil {
			return nil, err
		}

		earned := s.EarnedTokens(wt.TotalSeconds)
		pending := earned - balance
		if pending < 0 {
			pending = 0
		}

		summary.Creators = append(summary.Creators, &CreatorRewards{
			Creator:           wt.Creator,
			Mint:              token.Mint,
			TotalWatchSeconds: wt.TotalSeconds,
			EarnedTokens:      earned,
			OnChainBalance:    balance,
			PendingTokens:     pending,
			Progress:          float64(wt.TotalSeconds%s.thresholdSeconds) / float64(s.thresholdSeconds),
		})
	}

	return summary, nil
}
