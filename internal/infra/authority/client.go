package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
	"github.com/dan-divy/spruce-sub000/internal/infra/logger"
)

const requestIDHeader = "X-Request-ID"

// StatusError reports a non-success response from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authority responded %d", e.StatusCode)
	}
	return fmt.Sprintf("authority responded %d: %s", e.StatusCode, e.Message)
}

// Client talks to the session authority and the content API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var (
	_ port.SessionAuthority = (*Client)(nil)
	_ port.ContentSource    = (*Client)(nil)
)

// NewClient creates an authority client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// Login exchanges user credentials for an access and refresh credential (POST /auth).
func (c *Client) Login(ctx context.Context, username, password string) (port.Credentials, error) {
	body := map[string]string{"username": username, "password": password}

	var creds port.Credentials
	if err := c.do(ctx, http.MethodPost, "/auth", "", body, &creds); err != nil {
		return port.Credentials{}, fmt.Errorf("login: %w", err)
	}
	if creds.RefreshToken == "" {
		return port.Credentials{}, fmt.Errorf("login: refresh token missing from response")
	}
	return creds, nil
}

// Register submits the register form (POST /user).
func (c *Client) Register(ctx context.Context, form domain.Registration) error {
	if err := c.do(ctx, http.MethodPost, "/user", "", form, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Access exchanges a refresh credential for an access credential (GET /auth/access).
func (c *Client) Access(ctx context.Context, refreshToken string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/access", refreshToken, nil, &resp); err != nil {
		return "", fmt.Errorf("access: %w", err)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return "", domain.ErrMissingAccessToken
	}
	return resp.AccessToken, nil
}

// Revoked asks whether the refresh credential has been revoked (GET /auth).
func (c *Client) Revoked(ctx context.Context, refreshToken string) (bool, error) {
	var resp struct {
		Revoked *bool `json:"revoked"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth", refreshToken, nil, &resp); err != nil {
		return true, fmt.Errorf("revocation check: %w", err)
	}
	if resp.Revoked == nil {
		return true, fmt.Errorf("revocation check: revoked flag missing from response")
	}
	return *resp.Revoked, nil
}

// Logout invalidates server-side session state (GET /auth/logout).
func (c *Client) Logout(ctx context.Context, token string) error {
	if err := c.do(ctx, http.MethodGet, "/auth/logout", token, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// do performs a JSON request. bearer, when set, is sent as the authorization credential.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	reqID := logger.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set(requestIDHeader, reqID)

	c.logger.Debug("authority request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.String("credential", logger.MaskToken(bearer)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("authority response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", reqID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		if out != nil {
			return errors.New("empty response body")
		}
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}
