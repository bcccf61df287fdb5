package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftstate/internal/analytics"
	"github.com/claude/liftstate/internal/models"
	"github.com/claude/liftstate/internal/session"
)

// HTTPClient implements Engine by calling the LiftState REST API. Used for
// remote MCP mode where the binary runs locally (stdio) but data lives on the
// remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies Engine.
var _ Engine = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. The API
// key authorizes the write endpoints.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	return c.do(req, path, out)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("httpclient: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	return c.do(req, path, out)
}

func (c *HTTPClient) do(req *http.Request, path string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("httpclient: decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *HTTPClient) TrainingState(ctx context.Context, periodDays int, anchors []string) (analytics.TrainingState, error) {
	params := url.Values{}
	params.Set("period", strconv.Itoa(periodDays))
	if len(anchors) > 0 {
		params.Set("anchors", strings.Join(anchors, ","))
	}

	var state analytics.TrainingState
	if err := c.get(ctx, "/api/v1/analytics", params, &state); err != nil {
		return analytics.TrainingState{}, err
	}
	return state, nil
}

func (c *HTTPClient) ResolveProposal(ctx context.Context, id string, action models.ProposalStatus) (models.Proposal, error) {
	payload := map[string]string{"action": string(action)}

	var p models.Proposal
	if err := c.send(ctx, http.MethodPost, "/api/v1/proposals/"+url.PathEscape(id), payload, &p); err != nil {
		return models.Proposal{}, err
	}
	return p, nil
}

func (c *HTTPClient) LogSet(ctx context.Context, req analytics.LogSetRequest) (int64, error) {
	var out struct {
		Ref int64 `json:"ref"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/v1/sets", req, &out); err != nil {
		return 0, err
	}
	return out.Ref, nil
}

func (c *HTTPClient) GlobalHistory(ctx context.Context, limit int) ([]session.Session, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var sessions []session.Session
	if err := c.get(ctx, "/api/v1/history", params, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *HTTPClient) ExerciseHistory(ctx context.Context, exerciseID string, limit int) ([]session.Session, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var sessions []session.Session
	if err := c.get(ctx, "/api/v1/history/"+url.PathEscape(exerciseID), params, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *HTTPClient) Exercises(ctx context.Context) ([]models.Exercise, error) {
	var exercises []models.Exercise
	if err := c.get(ctx, "/api/v1/exercises", nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}
