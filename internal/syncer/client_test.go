package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okvist/sessync/internal/model"
)

func TestNewClient_RequiresURLAndKey(t *testing.T) {
	if NewClient("", "key") != nil {
		t.Error("NewClient with empty URL should be nil")
	}
	if NewClient("http://x", "") != nil {
		t.Error("NewClient with empty key should be nil")
	}
	if NewClient("http://x", "key") == nil {
		t.Error("NewClient with both set should not be nil")
	}
}

func TestSubmitSession_PayloadAndAuth(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret") // trailing slash must be tolerated
	err := c.SubmitSession(context.Background(), model.SessionRecord{
		ID:      "s1",
		Title:   "demo",
		Model:   "claude-sonnet-4",
		Tokens:  model.TokenUsage{Input: 10, Output: 5, CacheRead: 3},
		CostUSD: 1.25,
	})
	if err != nil {
		t.Fatalf("SubmitSession: %v", err)
	}

	if gotPath != "/api/v1/sessions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["external_id"] != "s1" || gotBody["title"] != "demo" {
		t.Errorf("body = %v", gotBody)
	}
	if gotBody["cache_read_tokens"] != float64(3) {
		t.Errorf("cache_read_tokens = %v", gotBody["cache_read_tokens"])
	}
}

func TestSubmitMessage_PathAndParts(t *testing.T) {
	var (
		gotPath string
		gotBody messagePayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	err := c.SubmitMessage(context.Background(), model.MessageRecord{
		ID:        "m1",
		SessionID: "s1",
		Role:      "assistant",
		Content:   "done",
		Parts: []model.MessagePart{
			{ID: "c1", Type: "tool", ToolName: "bash", Arguments: `{"command":"ls"}`, Status: "completed"},
		},
	})
	if err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}

	if gotPath != "/api/v1/sessions/s1/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody.SessionExternalID != "s1" || gotBody.Role != "assistant" {
		t.Errorf("body = %+v", gotBody)
	}
	if len(gotBody.Parts) != 1 || gotBody.Parts[0].ToolName != "bash" {
		t.Errorf("parts = %+v", gotBody.Parts)
	}
}

func TestSubmit_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad")
	err := c.SubmitSession(context.Background(), model.SessionRecord{ID: "s1"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestListSessionIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sessions/ids" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_ids": []string{"s1", "s2", "s1", ""},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	ids := c.ListSessionIDs(context.Background())
	if len(ids) != 2 {
		t.Errorf("ids = %v, want deduplicated non-empty set of 2", ids)
	}
	if _, ok := ids["s2"]; !ok {
		t.Error("s2 missing")
	}
}

func TestListSessionIDs_ErrorsYieldEmptySet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	if ids := c.ListSessionIDs(context.Background()); len(ids) != 0 {
		t.Errorf("ids = %v, want empty set on 404", ids)
	}

	// Unreachable server behaves the same.
	srv.Close()
	if ids := c.ListSessionIDs(context.Background()); len(ids) != 0 {
		t.Errorf("ids = %v, want empty set on connection error", ids)
	}
}
