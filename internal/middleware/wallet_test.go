package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/str3am/backend-go/internal/auth"
)

const testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func newTestAuth(adminKeys ...string) *WalletAuth {
	return NewWalletAuth(auth.NewWalletAuthorizer(adminKeys), nil)
}

func TestWalletAuth_Middleware(t *testing.T) {
	t.Parallel()

	t.Run("attaches wallet from header", func(t *testing.T) {
		t.Parallel()

		wa := newTestAuth()
		var gotWallet string
		handler := wa.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotWallet = CallerWallet(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Wallet-Address", testWallet)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, testWallet, gotWallet)
	})

	t.Run("attaches wallet from bearer token", func(t *testing.T) {
		t.Parallel()

		wa := newTestAuth()
		var gotWallet string
		handler := wa.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotWallet = CallerWallet(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+testWallet)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, testWallet, gotWallet)
	})

	t.Run("wallet header takes precedence over bearer", func(t *testing.T) {
		t.Parallel()

		wa := newTestAuth()
		var gotWallet string
		handler := wa.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotWallet = CallerWallet(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Wallet-Address", testWallet)
		req.Header.Set("Authorization", "Bearer other-wallet")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, testWallet, gotWallet)
	})

	t.Run("anonymous request passes through without identity", func(t *testing.T) {
		t.Parallel()

		wa := newTestAuth()
		called := false
		handler := wa.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			assert.Empty(t, CallerWallet(r.Context()))
			assert.False(t, IsAdmin(r.Context()))
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.True(t, called)
	})

	t.Run("valid API key marks caller admin", func(t *testing.T) {
		t.Parallel()

		wa := newTestAuth("secret-key")
		var gotAdmin bool
		handler := wa.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAdmin = IsAdmin(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-API-Key", "secret-key")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.True(t, gotAdmin)
	})

	t.Run("invalid API key is not admin", func(t *testing.T) {
		t.Parallel()

		wa := newTestAuth("secret-key")
		var gotAdmin bool
		handler := wa.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAdmin = IsAdmin(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-API-Key", "wrong-key")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.False(t, gotAdmin)
	})
}

func TestWalletAuth_RequireCaller(t *testing.T) {
	t.Parallel()

	t.Run("allows request with wallet", func(t *testing.T) {
		t.Parallel()

		wa := newTestAuth()
		called := false
		handler := wa.Middleware(wa.RequireCaller(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})))

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("X-Wallet-Address", testWallet)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects anonymous request", func(t *testing.T) {
		t.Parallel()

		wa := newTestAuth()
		handler := wa.Middleware(wa.RequireCaller(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler must not be called")
		})))

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	})
}
