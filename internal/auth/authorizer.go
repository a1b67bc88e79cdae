package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// ErrNotAuthorized is returned when a caller may not act as the
// requested wallet.
var ErrNotAuthorized = errors.New("caller is not authorized to act as this wallet")

// Authorizer decides whether the authenticated caller may act on behalf
// of a wallet. Handlers resolve the caller identity from the request
// and consult the authorizer before any mutating operation.
type Authorizer interface {
	// Authorize returns nil if caller may act as wallet.
	Authorize(ctx context.Context, caller, wallet string) error

	// IsAdmin reports whether the caller holds an admin credential.
	IsAdmin(ctx context.Context, apiKey string) bool
}

// WalletAuthorizer authorizes a caller only for its own wallet, with a
// set of static admin API keys that may act as anyone.
type WalletAuthorizer struct {
	adminKeys map[string]bool
}

// NewWalletAuthorizer creates an authorizer with the given admin API
// keys. Empty keys are ignored.
func NewWalletAuthorizer(adminKeys []string) *WalletAuthorizer {
	keyMap := make(map[string]bool, len(adminKeys))
	for _, key := range adminKeys {
		if key != "" {
			keyMap[key] = true
		}
	}
	return &WalletAuthorizer{adminKeys: keyMap}
}

func (a *WalletAuthorizer) Authorize(ctx context.Context, caller, wallet string) error {
	if caller == "" || wallet == "" {
		return ErrNotAuthorized
	}
	if subtle.ConstantTimeCompare([]byte(caller), []byte(wallet)) == 1 {
		return nil
	}
	return ErrNotAuthorized
}

func (a *WalletAuthorizer) IsAdmin(ctx context.Context, apiKey string) bool {
	if apiKey == "" || len(a.adminKeys) == 0 {
		return false
	}
	for key := range a.adminKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return true
		}
	}
	return false
}
