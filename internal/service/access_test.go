package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/queue"
	"github.com/str3am/backend-go/internal/validation"
)

type mockAccessRepo struct {
	mock.Mock
}

func (m *mockAccessRepo) Create(ctx context.Context, access *models.VideoAccess) error {
	args := m.Called(ctx, access)
	return args.Error(0)
}

func (m *mockAccessRepo) Get(ctx context.Context, videoID uuid.UUID, viewerWallet string) (*models.VideoAccess, error) {
	args := m.Called(ctx, videoID, viewerWallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VideoAccess), args.Error(1)
}

func (m *mockAccessRepo) GetByID(ctx context.Context, accessID uuid.UUID) (*models.VideoAccess, error) {
	args := m.Called(ctx, accessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VideoAccess), args.Error(1)
}

func (m *mockAccessRepo) UpdateWatchTime(ctx context.Context, accessID uuid.UUID, watchTime int64, completed *bool) (*models.VideoAccess, error) {
	args := m.Called(ctx, accessID, watchTime, completed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VideoAccess), args.Error(1)
}

func (m *mockAccessRepo) CountByVideo(ctx context.Context, videoID uuid.UUID) (int, error) {
	args := m.Called(ctx, videoID)
	return args.Int(0), args.Error(1)
}

func (m *mockAccessRepo) ClaimUnrefunded(ctx context.Context, videoID uuid.UUID) ([]*models.VideoAccess, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.VideoAccess), args.Error(1)
}

func (m *mockAccessRepo) ListPurchases(ctx context.Context, viewerWallet string) ([]*repository.Purchase, error) {
	args := m.Called(ctx, viewerWallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Purchase), args.Error(1)
}

func (m *mockAccessRepo) TotalWatchTime(ctx context.Context, viewerWallet, creator string) (int64, error) {
	args := m.Called(ctx, viewerWallet, creator)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccessRepo) WatchTimeByCreator(ctx context.Context, viewerWallet string) ([]*repository.CreatorWatchTime, error) {
	args := m.Called(ctx, viewerWallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.CreatorWatchTime), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) EnsureExists(ctx context.Context, walletAddress string, isCreator bool) error {
	args := m.Called(ctx, walletAddress, isCreator)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, walletAddress string, update *repository.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, walletAddress, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) SetProfilePicture(ctx context.Context, walletAddress, pictureCID string) error {
	args := m.Called(ctx, walletAddress, pictureCID)
	return args.Error(0)
}

func (m *mockUserRepo) AddCounters(ctx context.Context, walletAddress string, counters *repository.UserCounters) error {
	args := m.Called(ctx, walletAddress, counters)
	return args.Error(0)
}

func (m *mockUserRepo) TopCreators(ctx context.Context, limit int) ([]*models.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func newTestAccessService(videos *mockVideoRepo, access *mockAccessRepo, users *mockUserRepo, enqueuer *mockEnqueuer) *AccessService {
	var q queue.Enqueuer
	if enqueuer != nil {
		q = enqueuer
	}
	return NewAccessService(videos, access, users, q, validation.New(), nil)
}

func TestRecordPayment(t *testing.T) {
	videos := new(mockVideoRepo)
	access := new(mockAccessRepo)
	users := new(mockUserRepo)
	svc := newTestAccessService(videos, access, users, nil)

	video := activeVideo(100)
	videos.On("GetByID", mock.Anything, video.ID).Return(video, nil)
	access.On("Create", mock.Anything, mock.AnythingOfType("*models.VideoAccess")).Return(nil)
	users.On("AddCounters", mock.Anything, testViewer, &repository.UserCounters{
		VideosWatched: 1,
		TokensSpent:   video.Price,
	}).Return(nil)
	users.On("AddCounters", mock.Anything, testCreator, &repository.UserCounters{
		TokensEarned: video.Price,
	}).Return(nil)

	grant, err := svc.RecordPayment(context.Background(), video.ID, testViewer, testPubkey, testSig)

	require.NoError(t, err)
	assert.Equal(t, video.ID, grant.VideoID)
	assert.Equal(t, testViewer, grant.ViewerWallet)
	assert.Equal(t, video.Price, grant.TokensPaid, "tokens paid freeze the price at purchase time")
	assert.False(t, grant.Refunded)
	users.AssertExpectations(t)
}

func TestRecordPayment_DuplicateReturnsExisting(t *testing.T) {
	videos := new(mockVideoRepo)
	access := new(mockAccessRepo)
	svc := newTestAccessService(videos, access, new(mockUserRepo), nil)

	video := activeVideo(100)
	existing := models.NewVideoAccess(video.ID, testViewer, video.VideoPubkey, testPubkey, testSig, video.Price)

	videos.On("GetByID", mock.Anything, video.ID).Return(video, nil)
	access.On("Create", mock.Anything, mock.AnythingOfType("*models.VideoAccess")).Return(db.ErrDuplicateKey)
	access.On("Get", mock.Anything, video.ID, testViewer).Return(existing, nil)

	_, err := svc.RecordPayment(context.Background(), video.ID, testViewer, testPubkey, testSig)

	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, existing, conflictErr.Existing)
}

func TestRecordPayment_UploaderOwnVideo(t *testing.T) {
	videos := new(mockVideoRepo)
	svc := newTestAccessService(videos, new(mockAccessRepo), new(mockUserRepo), nil)

	video := activeVideo(100)
	videos.On("GetByID", mock.Anything, video.ID).Return(video, nil)

	_, err := svc.RecordPayment(context.Background(), video.ID, testCreator, testPubkey, testSig)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestRecordPayment_InactiveVideo(t *testing.T) {
	videos := new(mockVideoRepo)
	svc := newTestAccessService(videos, new(mockAccessRepo), new(mockUserRepo), nil)

	video := activeVideo(100)
	video.IsActive = false
	videos.On("GetByID", mock.Anything, video.ID).Return(video, nil)

	_, err := svc.RecordPayment(context.Background(), video.ID, testViewer, testPubkey, testSig)

	assert.ErrorIs(t, err, ErrInactiveVideo)
}

func TestRecordPayment_InvalidSignature(t *testing.T) {
	svc := newTestAccessService(new(mockVideoRepo), new(mockAccessRepo), new(mockUserRepo), nil)

	_, err := svc.RecordPayment(context.Background(), uuid.New(), testViewer, testPubkey, "not-a-signature!")

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestVerifyAccess_UploaderImplicit(t *testing.T) {
	videos := new(mockVideoRepo)
	svc := newTestAccessService(videos, new(mockAccessRepo), new(mockUserRepo), nil)

	video := activeVideo(100)
	videos.On("GetByID", mock.Anything, video.ID).Return(video, nil)

	status, err := svc.VerifyAccess(context.Background(), video.ID, testCreator)

	require.NoError(t, err)
	assert.True(t, status.HasAccess)
	assert.Equal(t, AccessReasonUploader, status.Reason)
}

func TestVerifyAccess_FreeVideo(t *testing.T) {
	videos := new(mockVideoRepo)
	svc := newTestAccessService(videos, new(mockAccessRepo), new(mockUserRepo), nil)

	video := activeVideo(100)
	video.Price = 0
	videos.On("GetByID", mock.Anything, video.ID).Return(video, nil)

	status, err := svc.VerifyAccess(context.Background(), video.ID, testViewer)

	require.NoError(t, err)
	assert.True(t, status.HasAccess)
	assert.Equal(t, AccessReasonFree, status.Reason)
}

func TestVerifyAccess_PaymentRequired(t *testing.T) {
	videos := new(mockVideoRepo)
	access := new(mockAccessRepo)
	svc := newTestAccessService(videos, access, new(mockUserRepo), nil)

	video := activeVideo(100)
	videos.On("GetByID", mock.Anything, video.ID).Return(video, nil)
	access.On("Get", mock.Anything, video.ID, testViewer).Return(nil, db.ErrNotFound)

	status, err := svc.VerifyAccess(context.Background(), video.ID, testViewer)

	require.NoError(t, err)
	assert.False(t, status.HasAccess)
	assert.True(t, status.PaymentRequired)
	assert.Equal(t, video.Price, status.Price)
}

func TestVerifyAccess_PurchasedSurvivesTakedown(t *testing.T) {
	videos := new(mockVideoRepo)
	access := new(mockAccessRepo)
	svc := newTestAccessService(videos, access, new(mockUserRepo), nil)

	video := activeVideo(100)
	video.IsActive = false
	grant := models.NewVideoAccess(video.ID, testViewer, video.VideoPubkey, testPubkey, testSig, video.Price)
	grant.Refunded = true

	videos.On("GetByID", mock.Anything, video.ID).Return(video, nil)
	access.On("Get", mock.Anything, video.ID, testViewer).Return(grant, nil)

	status, err := svc.VerifyAccess(context.Background(), video.ID, testViewer)

	require.NoError(t, err)
	assert.True(t, status.HasAccess, "a refunded grant still proves access")
	assert.Equal(t, AccessReasonPurchased, status.Reason)
	assert.False(t, status.VideoActive)
}

func TestUpdateWatchTime(t *testing.T) {
	videos := new(mockVideoRepo)
	access := new(mockAccessRepo)
	enqueuer := new(mockEnqueuer)
	svc := newTestAccessService(videos, access, new(mockUserRepo), enqueuer)

	video := activeVideo(100)
	grant := models.NewVideoAccess(video.ID, testViewer, video.VideoPubkey, testPubkey, testSig, video.Price)
	updated := *grant
	updated.WatchTime = 90

	access.On("Get", mock.Anything, video.ID, testViewer).Return(grant, nil)
	access.On("UpdateWatchTime", mock.Anything, grant.ID, int64(90), (*bool)(nil)).Return(&updated, nil)
	videos.On("GetByID", mock.Anything, video.ID).Return(video, nil)
	enqueuer.On("EnqueueRewardMint", mock.Anything, testViewer, testCreator).Return(nil)

	result, err := svc.UpdateWatchTime(context.Background(), video.ID, testViewer, 90, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(90), result.WatchTime)
	enqueuer.AssertExpectations(t)
}

func TestUpdateWatchTime_NegativeRejected(t *testing.T) {
	svc := newTestAccessService(new(mockVideoRepo), new(mockAccessRepo), new(mockUserRepo), nil)

	_, err := svc.UpdateWatchTime(context.Background(), uuid.New(), testViewer, -5, nil)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestUpdateWatchTime_NoGrant(t *testing.T) {
	access := new(mockAccessRepo)
	svc := newTestAccessService(new(mockVideoRepo), access, new(mockUserRepo), nil)

	videoID := uuid.New()
	access.On("Get", mock.Anything, videoID, testViewer).Return(nil, db.ErrNotFound)

	_, err := svc.UpdateWatchTime(context.Background(), videoID, testViewer, 30, nil)

	assert.True(t, db.IsNotFound(err))
}
