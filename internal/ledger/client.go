// Package ledger talks to the chain gateway service that settles
// payments, refunds and reward token mints. All value movement happens
// there; this package only reports intents and reads balances.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/str3am/backend-go/internal/config"
)

// ErrUpstream wraps any gateway failure so callers can map it to a
// dependency-failure response without inspecting transport details.
var ErrUpstream = errors.New("ledger gateway failure")

// Client is the interface the services program against.
type Client interface {
	// DeriveTokenAddress derives the mint and token account addresses
	// for a creator's reward token.
	DeriveTokenAddress(ctx context.Context, creator string) (*TokenAddresses, error)

	// Transfer moves tokens between wallets and returns the
	// transaction signature.
	Transfer(ctx context.Context, from, to string, amount float64) (string, error)

	// Mint mints reward tokens to a viewer's account for a creator's
	// token. Idempotent per key.
	Mint(ctx context.Context, creator, viewer string, amount int64, idempotencyKey uuid.UUID) (string, error)

	// TokenBalance returns the viewer's balance of a creator's token.
	// A missing token account reads as zero.
	TokenBalance(ctx context.Context, creator, viewer string) (int64, error)
}

// TokenAddresses holds the derived addresses for a creator token.
type TokenAddresses struct {
	Mint         string `json:"mint"`
	TokenAddress string `json:"token_address"`
	MintBump     int    `json:"mint_bump"`
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg *config.LedgerConfig) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type deriveRequest struct {
	Creator string `json:"creator"`
}

type transferRequest struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type mintRequest struct {
	Creator        string `json:"creator"`
	Viewer         string `json:"viewer"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

type signatureResponse struct {
	Signature string `json:"signature"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

func (c *httpClient) DeriveTokenAddress(ctx context.Context, creator string) (*TokenAddresses, error) {
	var out TokenAddresses
	err := c.post(ctx, "/v1/tokens/derive", deriveRequest{Creator: creator}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Transfer(ctx context.Context, from, to string, amount float64) (string, error) {
	var out signatureResponse
	err := c.post(ctx, "/v1/transfers", transferRequest{From: from, To: to, Amount: amount}, &out)
	if err != nil {
		return "", err
	}
	return out.Signature, nil
}

func (c *httpClient) Mint(ctx context.Context, creator, viewer string, amount int64, idempotencyKey uuid.UUID) (string, error) {
	req := mintRequest{
		Creator:        creator,
		Viewer:         viewer,
		Amount:         amount,
		IdempotencyKey: idempotencyKey.String(),
	}

	var out signatureResponse
	if err := c.post(ctx, "/v1/tokens/mint", req, &out); err != nil {
		return "", err
	}
	return out.Signature, nil
}

func (c *httpClient) TokenBalance(ctx context.Context, creator, viewer string) (int64, error) {
	url := fmt.Sprintf("%s/v1/tokens/%s/balance/%s", c.baseURL, creator, viewer)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	// Uninitialized token accounts read as zero balance.
	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, gatewayError(resp)
	}

	var out balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return out.Balance, nil
}

func (c *httpClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return gatewayError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}

func (c *httpClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func gatewayError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, bytes.TrimSpace(body))
}
