// Package syncer forwards reconstructed session and message records to
// the remote store and drives the bulk archive backfill.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/okvist/sessync/internal/model"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

// ErrUnauthorized indicates the API key was rejected by the remote store.
var ErrUnauthorized = errors.New("syncer: unauthorized (API key rejected)")

// Client talks to the remote store. Both submit operations are
// idempotent-intent: sessions are create-or-replace, messages are
// create, keyed by external ID.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client for the given server and bearer credential.
// Returns nil when either is missing; callers treat a nil client as
// "sync disabled" rather than an error.
func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if baseURL == "" || apiKey == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

type sessionPayload struct {
	ExternalID       string  `json:"external_id"`
	Title            string  `json:"title"`
	ProjectPath      string  `json:"project_path,omitempty"`
	ProjectName      string  `json:"project_name,omitempty"`
	Model            string  `json:"model,omitempty"`
	Provider         string  `json:"provider,omitempty"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	DurationMS       int64   `json:"duration_ms,omitempty"`
}

type partPayload struct {
	ExternalID string `json:"external_id,omitempty"`
	Type       string `json:"type"`
	Content    string `json:"content,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	Arguments  string `json:"arguments,omitempty"`
	Status     string `json:"status,omitempty"`
}

type messagePayload struct {
	ExternalID        string        `json:"external_id"`
	SessionExternalID string        `json:"session_external_id"`
	Role              string        `json:"role"`
	Content           string        `json:"content"`
	Model             string        `json:"model,omitempty"`
	InputTokens       int64         `json:"input_tokens"`
	OutputTokens      int64         `json:"output_tokens"`
	DurationMS        int64         `json:"duration_ms,omitempty"`
	Parts             []partPayload `json:"parts,omitempty"`
}

// SubmitSession creates or replaces a session at the remote store.
func (c *Client) SubmitSession(ctx context.Context, rec model.SessionRecord) error {
	payload := sessionPayload{
		ExternalID:       rec.ID,
		Title:            rec.Title,
		ProjectPath:      rec.ProjectPath,
		ProjectName:      rec.ProjectName,
		Model:            rec.Model,
		Provider:         rec.Provider,
		InputTokens:      rec.Tokens.Input,
		OutputTokens:     rec.Tokens.Output,
		CacheWriteTokens: rec.Tokens.CacheWrite,
		CacheReadTokens:  rec.Tokens.CacheRead,
		CostUSD:          rec.CostUSD,
		DurationMS:       rec.DurationMS,
	}
	return c.post(ctx, "/api/v1/sessions", payload)
}

// SubmitMessage creates a message under its parent session.
func (c *Client) SubmitMessage(ctx context.Context, rec model.MessageRecord) error {
	payload := messagePayload{
		ExternalID:        rec.ID,
		SessionExternalID: rec.SessionID,
		Role:              rec.Role,
		Content:           rec.Content,
		Model:             rec.Model,
		InputTokens:       rec.Tokens.Input,
		OutputTokens:      rec.Tokens.Output,
		DurationMS:        rec.DurationMS,
		Parts: lo.Map(rec.Parts, func(p model.MessagePart, _ int) partPayload {
			return partPayload{
				ExternalID: p.ID,
				Type:       p.Type,
				Content:    p.Text,
				ToolName:   p.ToolName,
				Arguments:  p.Arguments,
				Status:     p.Status,
			}
		}),
	}
	path := fmt.Sprintf("/api/v1/sessions/%s/messages", url.PathEscape(rec.SessionID))
	return c.post(ctx, path, payload)
}

// ListSessionIDs returns the set of session external IDs the remote
// store already knows. Any failure, including the endpoint not existing,
// yields an empty set; the caller then simply treats all sessions as new.
func (c *Client) ListSessionIDs(ctx context.Context) map[string]struct{} {
	body, err := c.get(ctx, "/api/v1/sessions/ids")
	if err != nil {
		return map[string]struct{}{}
	}

	var resp struct {
		SessionIDs []string `json:"session_ids"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return map[string]struct{}{}
	}

	known := make(map[string]struct{})
	for _, id := range lo.Uniq(lo.Compact(resp.SessionIDs)) {
		known[id] = struct{}{}
	}
	return known
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("syncer: encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("syncer: creating request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("syncer: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	return checkStatus(resp.StatusCode)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("syncer: creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("syncer: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("syncer: reading response: %w", err)
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sessync/1.0")
}

func checkStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("syncer: unexpected status %d", code)
	}
	return nil
}
