package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/dca-vault/internal/model"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

// VaultClient client for the dcavault HTTP API
type VaultClient struct {
	baseURL string
	client  *http.Client
}

// NewVaultClient creates a new dcavault API client
func NewVaultClient(baseURL string) *VaultClient {
	return &VaultClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Initialize calls POST /vault/initialize
func (c *VaultClient) Initialize(ctx context.Context, req model.InitializeRequest) (*model.VaultResponse, error) {
	var out model.VaultResponse
	if err := c.call(ctx, http.MethodPost, "/vault/initialize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Swap calls POST /vault/swap
func (c *VaultClient) Swap(ctx context.Context, req model.SwapRequest) (*model.SwapResponse, error) {
	var out model.SwapResponse
	if err := c.call(ctx, http.MethodPost, "/vault/swap", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw calls POST /vault/withdraw
func (c *VaultClient) Withdraw(ctx context.Context, req model.WithdrawRequest) (*model.WithdrawResponse, error) {
	var out model.WithdrawResponse
	if err := c.call(ctx, http.MethodPost, "/vault/withdraw", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVault calls GET /vault
func (c *VaultClient) GetVault(ctx context.Context, owner solana.PublicKey) (*model.VaultResponse, error) {
	var out model.VaultResponse
	if err := c.call(ctx, http.MethodGet, "/vault?owner="+url.QueryEscape(owner.String()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEvents calls GET /vault/events
func (c *VaultClient) GetEvents(ctx context.Context, owner solana.PublicKey) (*model.EventsResponse, error) {
	var out model.EventsResponse
	if err := c.call(ctx, http.MethodGet, "/vault/events?owner="+url.QueryEscape(owner.String()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// APIError is a non-200 response of the dcavault API.
type APIError struct {
	Status int
	Body   model.ErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, strings.TrimSpace(e.Body.Error))
}

// Unwrap exposes the error tag so errors.Is(err, vaulterr.ErrX) works client-side.
func (e *APIError) Unwrap() error {
	if e.Body.Code == "" {
		return nil
	}
	return &vaulterr.Error{Code: vaulterr.Code(e.Body.Code), Message: e.Body.Error}
}

func (c *VaultClient) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(raw, &apiErr.Body) != nil || apiErr.Body.Error == "" {
			apiErr.Body = model.ErrorResponse{Error: string(raw)}
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
