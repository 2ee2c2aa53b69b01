package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/session"
)

const defaultTimeout = 10 * time.Second

// Client talks to a running backoffice-access server and implements
// session.Backend.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func New(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ session.Backend = (*Client)(nil)

type userPayload struct {
	ID            int64                 `json:"id"`
	Email         string                `json:"email"`
	IsSystemAdmin bool                  `json:"isSystemAdmin"`
	Permissions   *[]access.GrantRecord `json:"permissions"`
}

func (u userPayload) principal() session.Principal {
	return session.Principal{UserID: u.ID, Email: u.Email, SystemAdmin: u.IsSystemAdmin}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError is a non-2xx answer other than 401.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

func (c *Client) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	var resp struct {
		Token        string      `json:"token"`
		RefreshToken string      `json:"refreshToken"`
		User         userPayload `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &resp); err != nil {
		return nil, err
	}

	res := &session.LoginResult{
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		User:         resp.User.principal(),
	}
	if resp.User.Permissions != nil {
		res.Grants = *resp.User.Permissions
		res.GrantsIncluded = true
	}
	c.logger.Debug("login succeeded", "user_id", res.User.UserID, "grants_included", res.GrantsIncluded)
	return res, nil
}

func (c *Client) Validate(ctx context.Context, token string) (*session.Principal, error) {
	var resp struct {
		User userPayload `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/validate", token, nil, &resp); err != nil {
		return nil, err
	}
	p := resp.User.principal()
	return &p, nil
}

// FetchGrants reads the raw grants of the caller. The server's compiled
// fields are ignored; the session compiles the grants itself.
func (c *Client) FetchGrants(ctx context.Context, token string) ([]access.GrantRecord, error) {
	var resp struct {
		Data *struct {
			Grants []access.GrantRecord `json:"grants"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/permissions", token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("permissions response has no data")
	}
	return resp.Data.Grants, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, session.ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var payload errorPayload
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			statusErr.Code = payload.Error.Code
			statusErr.Message = payload.Error.Message
		}
		c.logger.Warn("request failed", "method", method, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%s %s: %w", method, path, statusErr)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
