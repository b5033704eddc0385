package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/schulmanager/pkg/api"
)

const (
	// DefaultBaseURL is the production portal endpoint.
	DefaultBaseURL = "https://login.schulmanager-online.de"

	saltPath  = "/api/get-salt"
	loginPath = "/api/login"
	callsPath = "/api/calls"
)

// ClientAPI defines the wire-level operations against the portal. The
// session layer depends on this interface so tests can substitute a stub
// transport.
type ClientAPI interface {
	// GetSalt fetches the password salt scoped to one institution id.
	// institutionID nil requests the unscoped (discovery) salt.
	GetSalt(ctx context.Context, emailOrUsername string, institutionID *int) (string, error)

	// Login submits the derived hash and returns the raw login response,
	// which is either a token-bearing success or an ambiguous multi-account
	// answer.
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)

	// Calls executes one batched, authenticated data request and returns the
	// per-request results. Returns ErrUnauthorized when the token is
	// rejected at the HTTP level or inside the envelope.
	Calls(ctx context.Context, token string, req api.CallsRequest) ([]api.CallResult, error)
}

// Client is the HTTP client for the portal API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ ClientAPI = (*Client)(nil)

// NewClient creates a new portal API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Carry the Authorization header across redirects
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// GetSalt fetches the password salt for one institution scope.
func (c *Client) GetSalt(ctx context.Context, emailOrUsername string, institutionID *int) (string, error) {
	req := api.SaltRequest{
		EmailOrUsername: emailOrUsername,
		MobileApp:       false,
		InstitutionID:   institutionID,
	}

	var resp api.SaltResponse
	if err := c.doRequest(ctx, saltPath, "", req, &resp); err != nil {
		return "", fmt.Errorf("get salt request failed: %w", err)
	}
	if resp.Salt == "" {
		return "", ErrSaltUnavailable
	}
	return resp.Salt, nil
}

// Login submits the login request and returns the decoded response.
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	var resp api.LoginResponse
	if err := c.doRequest(ctx, loginPath, "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Calls executes one batched data request with the given bearer token.
func (c *Client) Calls(ctx context.Context, token string, req api.CallsRequest) ([]api.CallResult, error) {
	var resp api.CallsResponse
	if err := c.doRequest(ctx, callsPath, token, req, &resp); err != nil {
		return nil, fmt.Errorf("calls request failed: %w", err)
	}

	if resp.Results == nil {
		if resp.Responses != nil {
			return nil, ErrLegacyEnvelope
		}
		return nil, fmt.Errorf("%w: envelope has neither results nor responses", ErrMalformedResponse)
	}

	// A 401 on any result signals token expiry for the whole envelope.
	for _, res := range resp.Results {
		if res.Status == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
	}

	return resp.Results, nil
}

// doRequest executes one POST request and decodes the JSON response into
// result. A non-empty token is attached as a bearer Authorization header.
func (c *Client) doRequest(ctx context.Context, path, token string, body, result interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	return nil
}

// errorMessage extracts a human-readable message from an error body when the
// portal bothered to send one.
func errorMessage(body []byte) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		return errResp.Error
	}
	const limit = 200
	if len(body) > limit {
		body = body[:limit]
	}
	return string(body)
}
