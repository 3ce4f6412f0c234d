// Package backend is the typed HTTP client for the Aura wellness backend.
// The session core consumes it through the API interface; everything the
// backend computes (assessment, generation, routing) stays on the other side
// of this contract.
package backend

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aura/internal/types"
)

// API is the full backend surface the client consumes.
type API interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Signup(ctx context.Context, req SignupRequest) error
	Metrics(ctx context.Context, userID string) (types.Metrics, error)

	ScreeningStep(ctx context.Context, req ScreeningRequest) (ScreeningResponse, error)
	ScreeningEligibility(ctx context.Context, userID string) (Eligibility, error)

	Greeting(ctx context.Context, req GreetingRequest) (GreetingResponse, error)
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	HistoryList(ctx context.Context, userID string) ([]types.HistoryEntry, error)
	SessionReplay(ctx context.Context, sessionID string) ([]types.ReplayTurn, error)

	Resource(ctx context.Context, req ResourceRequest) (types.Resource, error)
	DailyTip(ctx context.Context, userID string) (string, error)

	SendFeedback(ctx context.Context, fb types.Feedback) error
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig holds configuration for the backend client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// DefaultClientConfig returns sensible defaults for a local backend.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// NewClient creates a backend client.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// postJSON issues a POST with a JSON body and decodes the response into out.
// Non-2xx responses are returned as *APIError carrying the backend's declared
// reason. okStatuses lists additional statuses whose body should be decoded
// as a success payload (the screening cooldown arrives as a 429).
func (c *Client) postJSON(ctx context.Context, path string, body, out any, okStatuses ...int) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debug("backend request",
		zap.String("path", path),
		zap.String("request_id", requestID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if !isOK(resp.StatusCode, okStatuses) {
		var apiErr errorResponse
		_ = json.Unmarshal(data, &apiErr)
		reason := apiErr.Error
		if reason == "" {
			reason = apiErr.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Reason: reason}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func isOK(status int, extra []int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, s := range extra {
		if status == s {
			return true
		}
	}
	return false
}

// Login authenticates the user. The email is lowercased before sending, as
// the backend stores addresses case-folded.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var result LoginResult
	req := loginRequest{Email: strings.ToLower(email), Password: password}
	if err := c.postJSON(ctx, "/auth/login", req, &result); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

// Signup creates an account. On success the user is not logged in; the caller
// routes back to the login entry point.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.postJSON(ctx, "/auth/signup", req, nil)
}

// Metrics fetches the user's current scores.
func (c *Client) Metrics(ctx context.Context, userID string) (types.Metrics, error) {
	u := fmt.Sprintf("%s/auth/getMetrics?userId=%s", c.baseURL, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("failed to build metrics request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("metrics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Metrics{}, &APIError{StatusCode: resp.StatusCode}
	}

	var out metricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.Metrics{}, fmt.Errorf("failed to decode metrics response: %w", err)
	}
	return out.Metrics, nil
}

// ScreeningStep advances the questionnaire. The cooldown outcome arrives as a
// 429 with a distinguished error marker and is a normal response, not an error.
func (c *Client) ScreeningStep(ctx context.Context, req ScreeningRequest) (ScreeningResponse, error) {
	var resp ScreeningResponse
	if err := c.postJSON(ctx, "/kai/screening", req, &resp, http.StatusTooManyRequests); err != nil {
		return ScreeningResponse{}, err
	}
	return resp, nil
}

// ScreeningEligibility checks whether a new screening may start.
func (c *Client) ScreeningEligibility(ctx context.Context, userID string) (Eligibility, error) {
	var out Eligibility
	if err := c.postJSON(ctx, "/kai/checkScreeningEligibility", historyRequest{UserID: userID}, &out); err != nil {
		return Eligibility{}, err
	}
	return out, nil
}

// Greeting requests the opening turn of a new session.
func (c *Client) Greeting(ctx context.Context, req GreetingRequest) (GreetingResponse, error) {
	var out GreetingResponse
	if err := c.postJSON(ctx, "/elara/greeting", req, &out); err != nil {
		return GreetingResponse{}, err
	}
	return out, nil
}

// Chat sends one user turn and returns the responder's turn.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var out ChatResponse
	if err := c.postJSON(ctx, "/elara/chat", req, &out); err != nil {
		return ChatResponse{}, err
	}
	return out, nil
}

// HistoryList returns the user's past sessions, newest first.
func (c *Client) HistoryList(ctx context.Context, userID string) ([]types.HistoryEntry, error) {
	var out []types.HistoryEntry
	if err := c.postJSON(ctx, "/elara/getHistoryList", historyRequest{UserID: userID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionReplay returns the stored turns of a past session in order.
func (c *Client) SessionReplay(ctx context.Context, sessionID string) ([]types.ReplayTurn, error) {
	var out []types.ReplayTurn
	if err := c.postJSON(ctx, "/elara/getSession", replayRequest{SessionID: sessionID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Resource looks up a self-help resource for a query.
func (c *Client) Resource(ctx context.Context, req ResourceRequest) (types.Resource, error) {
	var out types.Resource
	if err := c.postJSON(ctx, "/vero/getResource", req, &out); err != nil {
		return types.Resource{}, err
	}
	return out, nil
}

// DailyTip fetches the sidebar wellness tip.
func (c *Client) DailyTip(ctx context.Context, userID string) (string, error) {
	var out tipResponse
	if err := c.postJSON(ctx, "/vero/getMentalHealthTip", tipRequest{UserID: userID}, &out); err != nil {
		return "", err
	}
	return out.Tip, nil
}

// SendFeedback submits a session rating.
func (c *Client) SendFeedback(ctx context.Context, fb types.Feedback) error {
	req := feedbackRequest{SessionID: fb.SessionID, Rating: fb.Rating, Comment: fb.Comment}
	return c.postJSON(ctx, "/session/feedback", req, nil)
}

var _ API = (*Client)(nil)
