package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
)

// HTTPClient implements DataSource by calling the ClassPulse REST
// API. Used for remote MCP mode where the binary runs locally (stdio)
// but the session data lives on the server.
type HTTPClient struct {
	baseURL    string
	userID     int64
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
// userID is sent as the identity header on progress reads.
func NewHTTPClient(baseURL string, userID int64) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, asUserID int64, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if asUserID > 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(asUserID))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) GetSession(ctx context.Context, classID int64) (*engine.SessionView, error) {
	var view engine.SessionView
	if err := c.get(ctx, fmt.Sprintf("/api/v1/classes/%d/live", classID), 0, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) RealtimeLeaderboard(ctx context.Context, classID int64) (*engine.Leaderboard, error) {
	var lb engine.Leaderboard
	if err := c.get(ctx, fmt.Sprintf("/api/v1/classes/%d/live/leaderboard", classID), 0, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

func (c *HTTPClient) FinalLeaderboard(ctx context.Context, classID int64) (*engine.Leaderboard, error) {
	var lb engine.Leaderboard
	if err := c.get(ctx, fmt.Sprintf("/api/v1/classes/%d/live/leaderboard/final", classID), 0, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

func (c *HTTPClient) ListLiveClasses(ctx context.Context) ([]engine.LiveClassSummary, error) {
	var list []engine.LiveClassSummary
	if err := c.get(ctx, "/api/v1/live-classes", 0, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *HTTPClient) GetMyProgress(ctx context.Context, classID, userID int64) (*models.ProgressRecord, error) {
	if userID == 0 {
		userID = c.userID
	}
	var p models.ProgressRecord
	if err := c.get(ctx, fmt.Sprintf("/api/v1/classes/%d/live/me", classID), userID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
