package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/str3am/backend-go/internal/auth"
	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/middleware"
	"github.com/str3am/backend-go/internal/service"
	"github.com/str3am/backend-go/internal/validation"
)

const testSignature = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"

type accessKey struct {
	videoID uuid.UUID
	wallet  string
}

type fakeAccessRepo struct {
	grants map[accessKey]*models.VideoAccess
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{grants: make(map[accessKey]*models.VideoAccess)}
}

func (r *fakeAccessRepo) Create(ctx context.Context, access *models.VideoAccess) error {
	key := accessKey{access.VideoID, access.ViewerWallet}
	if _, exists := r.grants[key]; exists {
		return db.ErrDuplicateKey
	}
	r.grants[key] = access
	return nil
}

func (r *fakeAccessRepo) Get(ctx context.Context, videoID uuid.UUID, viewerWallet string) (*models.VideoAccess, error) {
	grant, ok := r.grants[accessKey{videoID, viewerWallet}]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *grant
	return &copied, nil
}

func (r *fakeAccessRepo) GetByID(ctx context.Context, accessID uuid.UUID) (*models.VideoAccess, error) {
	for _, grant := range r.grants {
		if grant.ID == accessID {
			copied := *grant
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeAccessRepo) UpdateWatchTime(ctx context.Context, accessID uuid.UUID, watchTime int64, completed *bool) (*models.VideoAccess, error) {
	for _, grant := range r.grants {
		if grant.ID != accessID {
			continue
		}
		if watchTime > grant.WatchTime {
			grant.WatchTime = watchTime
		}
		if completed != nil {
			grant.Completed = *completed
		}
		copied := *grant
		return &copied, nil
	}
	return nil, db.ErrNotFound
}

func (r *fakeAccessRepo) CountByVideo(ctx context.Context, videoID uuid.UUID) (int, error) {
	count := 0
	for key := range r.grants {
		if key.videoID == videoID {
			count++
		}
	}
	return count, nil
}

func (r *fakeAccessRepo) ClaimUnrefunded(ctx context.Context, videoID uuid.UUID) ([]*models.VideoAccess, error) {
	var claimed []*models.VideoAccess
	for key, grant := range r.grants {
		if key.videoID == videoID && !grant.Refunded {
			grant.Refunded = true
			copied := *grant
			claimed = append(claimed, &copied)
		}
	}
	return claimed, nil
}

func (r *fakeAccessRepo) ListPurchases(ctx context.Context, viewerWallet string) ([]*repository.Purchase, error) {
	var purchases []*repository.Purchase
	for key, grant := range r.grants {
		if key.wallet != viewerWallet {
			continue
		}
		copied := *grant
		purchases = append(purchases, &repository.Purchase{Access: &copied})
	}
	return purchases, nil
}

func (r *fakeAccessRepo) TotalWatchTime(ctx context.Context, viewerWallet, creator string) (int64, error) {
	var total int64
	for key, grant := range r.grants {
		if key.wallet == viewerWallet {
			total += grant.WatchTime
		}
	}
	return total, nil
}

func (r *fakeAccessRepo) WatchTimeByCreator(ctx context.Context, viewerWallet string) ([]*repository.CreatorWatchTime, error) {
	return nil, nil
}

type accessTestEnv struct {
	videos  *fakeVideoRepo
	grants  *fakeAccessRepo
	users   *fakeUserRepo
	handler http.Handler
}

func newAccessTestEnv(t *testing.T) *accessTestEnv {
	t.Helper()

	videos := newFakeVideoRepo()
	grants := newFakeAccessRepo()
	users := newFakeUserRepo()

	accessService := service.NewAccessService(videos, grants, users, nil, validation.New(), nil)
	authorizer := auth.NewWalletAuthorizer([]string{testAPIKey})
	accessHandler := NewAccessHandler(accessService, authorizer, nil)
	walletAuth := middleware.NewWalletAuth(authorizer, nil)

	return &accessTestEnv{
		videos:  videos,
		grants:  grants,
		users:   users,
		handler: walletAuth.Middleware(accessHandler),
	}
}

func (e *accessTestEnv) addVideo(price float64) *models.Video {
	video := models.NewVideo("Paid Video", "", "music", "cid123", testCreator, testPubkey, price)
	e.videos.videos[video.ID] = video
	return video
}

func TestAccessHandler_RecordPayment(t *testing.T) {
	env := newAccessTestEnv(t)
	video := env.addVideo(5)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/v1/payments", testViewer,
		PaymentRequest{VideoID: video.ID, AccessPubkey: testPubkey, TxSignature: testSignature})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var grant models.VideoAccess
	if err := json.Unmarshal(rec.Body.Bytes(), &grant); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if grant.TokensPaid != 5 {
		t.Errorf("expected tokens paid 5, got %f", grant.TokensPaid)
	}
	if env.users.get(testViewer).TokensSpent != 5 {
		t.Errorf("expected viewer tokens spent 5, got %f", env.users.get(testViewer).TokensSpent)
	}
	if env.users.get(testCreator).TokensEarned != 5 {
		t.Errorf("expected uploader tokens earned 5, got %f", env.users.get(testCreator).TokensEarned)
	}
}

func TestAccessHandler_DuplicatePayment(t *testing.T) {
	env := newAccessTestEnv(t)
	video := env.addVideo(5)
	req := PaymentRequest{VideoID: video.ID, AccessPubkey: testPubkey, TxSignature: testSignature}

	if rec := doJSON(t, env.handler, http.MethodPost, "/api/v1/payments", testViewer, req); rec.Code != http.StatusCreated {
		t.Fatalf("first payment: expected 201, got %d", rec.Code)
	}

	rec := doJSON(t, env.handler, http.MethodPost, "/api/v1/payments", testViewer, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Details map[string]json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if _, ok := body.Details["existing"]; !ok {
		t.Error("expected the conflict response to carry the existing grant")
	}
}

func TestAccessHandler_PaymentAnonymous(t *testing.T) {
	env := newAccessTestEnv(t)
	video := env.addVideo(5)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/v1/payments", "",
		PaymentRequest{VideoID: video.ID, AccessPubkey: testPubkey, TxSignature: testSignature})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAccessHandler_PaymentForOtherWallet(t *testing.T) {
	env := newAccessTestEnv(t)
	video := env.addVideo(5)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/v1/payments", testViewer,
		PaymentRequest{VideoID: video.ID, Wallet: testCreator, AccessPubkey: testPubkey, TxSignature: testSignature})

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestAccessHandler_VerifyAccessStates(t *testing.T) {
	env := newAccessTestEnv(t)
	paid := env.addVideo(5)
	free := env.addVideo(0)

	// Unpaid viewer on a priced video.
	rec := doJSON(t, env.handler, http.MethodGet, "/api/v1/access/"+paid.ID.String(), testViewer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var status service.AccessStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if status.HasAccess || !status.PaymentRequired || status.Price != 5 {
		t.Errorf("expected payment required at price 5, got %+v", status)
	}

	// Free video grants access to anyone.
	rec = doJSON(t, env.handler, http.MethodGet, "/api/v1/access/"+free.ID.String(), testViewer, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !status.HasAccess || status.Reason != service.AccessReasonFree {
		t.Errorf("expected free access, got %+v", status)
	}

	// Uploaders always have access to their own videos.
	rec = doJSON(t, env.handler, http.MethodGet, "/api/v1/access/"+paid.ID.String(), testCreator, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !status.HasAccess || status.Reason != service.AccessReasonUploader {
		t.Errorf("expected uploader access, got %+v", status)
	}

	// A recorded payment grants access.
	doJSON(t, env.handler, http.MethodPost, "/api/v1/payments", testViewer,
		PaymentRequest{VideoID: paid.ID, AccessPubkey: testPubkey, TxSignature: testSignature})
	rec = doJSON(t, env.handler, http.MethodGet, "/api/v1/access/"+paid.ID.String(), testViewer, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !status.HasAccess || status.Reason != service.AccessReasonPurchased || status.Access == nil {
		t.Errorf("expected purchased access with the grant attached, got %+v", status)
	}
}

func TestAccessHandler_WatchTimeMonotonic(t *testing.T) {
	env := newAccessTestEnv(t)
	video := env.addVideo(5)
	doJSON(t, env.handler, http.MethodPost, "/api/v1/payments", testViewer,
		PaymentRequest{VideoID: video.ID, AccessPubkey: testPubkey, TxSignature: testSignature})

	rec := doJSON(t, env.handler, http.MethodPut, "/api/v1/access/"+video.ID.String()+"/watch-time", testViewer,
		WatchTimeRequest{WatchSeconds: 120})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// A stale sample must not shrink watch time.
	rec = doJSON(t, env.handler, http.MethodPut, "/api/v1/access/"+video.ID.String()+"/watch-time", testViewer,
		WatchTimeRequest{WatchSeconds: 60})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var grant models.VideoAccess
	if err := json.Unmarshal(rec.Body.Bytes(), &grant); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if grant.WatchTime != 120 {
		t.Errorf("expected watch time to stay at 120, got %d", grant.WatchTime)
	}
}

func TestAccessHandler_WatchTimeWithoutGrant(t *testing.T) {
	env := newAccessTestEnv(t)
	video := env.addVideo(5)

	rec := doJSON(t, env.handler, http.MethodPut, "/api/v1/access/"+video.ID.String()+"/watch-time", testViewer,
		WatchTimeRequest{WatchSeconds: 30})

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
