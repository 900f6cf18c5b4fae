package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"session-hub/app/config"
	"session-hub/app/domain"
)

// Client is a thin REST client for a GoTrue-style token endpoint. It holds
// no session state; the gateway layer owns tokens and event fan-out.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retryMax   int
	logger     *slog.Logger
}

// TokenResponse is the body returned by the token and signup endpoints.
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// UserResponse is the provider's user record.
type UserResponse struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	UserMetadata     map[string]any `json:"user_metadata"`
	EmailConfirmedAt string         `json:"email_confirmed_at"`
	CreatedAt        string         `json:"created_at"`
}

// NewClient creates a new GoTrue client.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if !isValidURL(cfg.AuthBaseURL) {
		return nil, fmt.Errorf("invalid auth base URL: %s", cfg.AuthBaseURL)
	}

	logger.Info("gotrue client initialized",
		"base_url", cfg.AuthBaseURL,
		"timeout", cfg.ProviderTimeout)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.ProviderTimeout,
		},
		baseURL:  cfg.AuthBaseURL,
		apiKey:   cfg.AuthAPIKey,
		retryMax: cfg.ProfileRetryMax,
		logger:   logger,
	}, nil
}

// PasswordGrant exchanges email and password for a session.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*TokenResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &resp, "password grant"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshGrant exchanges a refresh token for a new session. GoTrue rotates
// the refresh token on every successful call.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	body := map[string]string{
		"refresh_token": refreshToken,
	}

	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &resp, "refresh grant"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignUp creates a new account. When email confirmation is disabled on the
// provider the response already carries a usable session.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*TokenResponse, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &resp, "signup"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the session server-side. Scope "local" revokes only the
// session behind the given token; "global" revokes all of the user's
// sessions.
func (c *Client) Logout(ctx context.Context, accessToken, scope string) error {
	path := "/logout?scope=" + url.QueryEscape(scope)
	return c.do(ctx, http.MethodPost, path, accessToken, nil, nil, "logout")
}

// GetUser fetches the user record behind an access token. The read is
// idempotent, so transient failures are retried with a doubling delay.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*UserResponse, error) {
	var lastErr error
	delay := 200 * time.Millisecond

	for attempt := 1; attempt <= c.retryMax; attempt++ {
		var resp UserResponse
		err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &resp, "get user")
		if err == nil {
			return &resp, nil
		}
		lastErr = err
		if !domain.IsRetryable(err) {
			return nil, err
		}

		c.logger.Warn("get user failed, retrying",
			"attempt", attempt,
			"max_attempts", c.retryMax,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, domain.NewAuthError(domain.KindTimeout, "get user cancelled", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, lastErr
}

// do issues one request and decodes the response into out (when non-nil).
// Non-2xx responses are classified into domain.AuthError.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any, operation string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return domain.NewAuthError(domain.KindUnknown, fmt.Sprintf("%s: encode request", operation), err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return domain.NewAuthError(domain.KindUnknown, fmt.Sprintf("%s: build request", operation), err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err, operation)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewAuthError(domain.KindNetwork, fmt.Sprintf("%s: read response", operation), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyResponseError(resp.StatusCode, respBody, operation)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return domain.NewAuthError(domain.KindUnknown, fmt.Sprintf("%s: decode response", operation), err)
		}
	}

	return nil
}

// isValidURL validates that a URL has a scheme and host.
func isValidURL(urlStr string) bool {
	if urlStr == "" {
		return false
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}
