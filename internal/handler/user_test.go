package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/str3am/backend-go/internal/auth"
	"github.com/str3am/backend-go/internal/db/models"
	"github.com/str3am/backend-go/internal/middleware"
	"github.com/str3am/backend-go/internal/service"
	"github.com/str3am/backend-go/internal/validation"
)

const testCreator2 = "GDfnEsia2WLAW5t8yx2X5j2mkfA74i5kwGdDuZHt7XmG"

type userTestEnv struct {
	users   *fakeUserRepo
	handler http.Handler
}

func newUserTestEnv(t *testing.T) *userTestEnv {
	t.Helper()

	users := newFakeUserRepo()
	profiles := service.NewProfileService(users, fakeStore{}, validation.New())

	userHandler := NewUserHandler(profiles, auth.NewWalletAuthorizer([]string{testAPIKey}), nil)
	walletAuth := middleware.NewWalletAuth(auth.NewWalletAuthorizer([]string{testAPIKey}), nil)

	return &userTestEnv{
		users:   users,
		handler: walletAuth.Middleware(userHandler),
	}
}

func (e *userTestEnv) addUser(wallet string, isCreator bool) *models.User {
	user := e.users.get(wallet)
	user.IsCreator = isCreator
	return user
}

func TestUserHandler_Stats(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.addUser(testViewer, false)
	user.VideosWatched = 12
	user.TokensSpent = 60
	user.TokensRefunded = 5

	rec := doJSON(t, env.handler, http.MethodGet, "/api/v1/users/"+testViewer+"/stats", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var stats service.UserStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if stats.VideosWatched != 12 {
		t.Errorf("expected 12 videos watched, got %d", stats.VideosWatched)
	}
	if stats.TokensSpent != 60 || stats.TokensRefunded != 5 {
		t.Errorf("unexpected token counters: %+v", stats)
	}
}

func TestUserHandler_StatsUnknownWallet(t *testing.T) {
	env := newUserTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet, "/api/v1/users/"+testViewer+"/stats", "", nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown wallet, got %d", rec.Code)
	}
}

func TestUserHandler_TopCreators(t *testing.T) {
	env := newUserTestEnv(t)
	env.addUser(testCreator, true).TokensEarned = 100
	env.addUser(testCreator2, true).TokensEarned = 250
	env.addUser(testViewer, false).TokensEarned = 999

	rec := doJSON(t, env.handler, http.MethodGet, "/api/v1/users/creators/top", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Creators []*models.User `json:"creators"`
		Count    int            `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("expected 2 creators, got %d", resp.Count)
	}
	if resp.Creators[0].WalletAddress != testCreator2 {
		t.Errorf("expected the top earner first, got %s", resp.Creators[0].WalletAddress)
	}
	for _, creator := range resp.Creators {
		if creator.WalletAddress == testViewer {
			t.Error("non-creators must not appear on the leaderboard")
		}
	}
}

func TestUserHandler_TopCreatorsLimit(t *testing.T) {
	env := newUserTestEnv(t)
	env.addUser(testCreator, true).TokensEarned = 100
	env.addUser(testCreator2, true).TokensEarned = 250

	rec := doJSON(t, env.handler, http.MethodGet, "/api/v1/users/creators/top?limit=1", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Creators []*models.User `json:"creators"`
		Count    int            `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Count != 1 || resp.Creators[0].WalletAddress != testCreator2 {
		t.Errorf("expected only the top earner, got %+v", resp.Creators)
	}
}
