package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/str3am/backend-go/internal/auth"
)

const (
	headerWallet = "X-Wallet-Address"
	headerAPIKey = "X-API-Key"
	headerAuth   = "Authorization"
	bearerPrefix = "Bearer "
)

type contextKey string

const (
	callerKey contextKey = "caller_wallet"
	adminKey  contextKey = "caller_is_admin"
)

// WalletAuth resolves the caller's wallet identity from request headers
// and stores it on the request context. Handlers that mutate state must
// additionally consult the Authorizer against the target wallet.
type WalletAuth struct {
	authorizer auth.Authorizer
	logger     *slog.Logger
}

// NewWalletAuth creates the wallet identity middleware.
func NewWalletAuth(authorizer auth.Authorizer, logger *slog.Logger) *WalletAuth {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletAuth{
		authorizer: authorizer,
		logger:     logger,
	}
}

// Middleware attaches the caller wallet and admin flag to the context.
// It does not reject anonymous requests; read-only endpoints stay open
// and mutating handlers enforce authorization themselves.
func (a *WalletAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if wallet := a.extractWallet(r); wallet != "" {
			ctx = context.WithValue(ctx, callerKey, wallet)
		}
		if a.authorizer.IsAdmin(ctx, r.Header.Get(headerAPIKey)) {
			ctx = context.WithValue(ctx, adminKey, true)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCaller rejects requests that carry no wallet identity.
func (a *WalletAuth) RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CallerWallet(r.Context()) == "" {
			a.logger.Warn("unauthorized request - missing wallet identity",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)
			sendUnauthorized(w, a.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractWallet reads the caller wallet from X-Wallet-Address or from
// Authorization: Bearer <wallet>.
func (a *WalletAuth) extractWallet(r *http.Request) string {
	if wallet := r.Header.Get(headerWallet); wallet != "" {
		return wallet
	}

	authHeader := r.Header.Get(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}

	return ""
}

// CallerWallet returns the caller wallet stored on the context, or ""
// for anonymous requests.
func CallerWallet(ctx context.Context) string {
	wallet, _ := ctx.Value(callerKey).(string)
	return wallet
}

// IsAdmin reports whether the request carried a valid admin API key.
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(adminKey).(bool)
	return admin
}

func sendUnauthorized(w http.ResponseWriter, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	response := map[string]string{
		"error": "Unauthorized",
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode unauthorized response", "error", err)
	}
}
