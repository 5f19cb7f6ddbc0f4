package archive

import (
	"os"
	"path/filepath"
	"testing"
)

// writeFile creates path (and parents) with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestSessions_MissingRoot(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "nope"))
	sessions, err := s.Sessions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}

func TestSessions_SkipsMalformedAndEmptyID(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "session", "proj", "a.json"),
		`{"id":"s1","title":"good","time":{"created":1000,"updated":2000}}`)
	writeFile(t, filepath.Join(root, "session", "proj", "b.json"), `{broken`)
	writeFile(t, filepath.Join(root, "session", "proj", "c.json"), `{"title":"no id"}`)
	writeFile(t, filepath.Join(root, "session", "proj", "notes.txt"), `ignored`)

	sessions, err := NewScanner(root).Sessions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if sessions[0].ID != "s1" || sessions[0].Project != "proj" {
		t.Errorf("session = %+v", sessions[0])
	}
}

func TestLoadSession_NoMessageDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "session", "proj", "a.json"), `{"id":"s2"}`)

	s := NewScanner(root)
	sessions, _ := s.Sessions()
	rec, msgs := s.LoadSession(sessions[0])

	if len(msgs) != 0 {
		t.Errorf("messages = %d, want 0", len(msgs))
	}
	if !rec.Tokens.IsZero() || rec.CostUSD != 0 {
		t.Errorf("record = %+v, want zero aggregates", rec)
	}
	if rec.Title != "Untitled session" {
		t.Errorf("Title = %q, want placeholder", rec.Title)
	}
}

func TestLoadSession_TextConcatenationOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "session", "p", "s.json"), `{"id":"s1"}`)
	writeFile(t, filepath.Join(root, "message", "s1", "m1.json"),
		`{"id":"m1","sessionID":"s1","role":"assistant"}`)
	writeFile(t, filepath.Join(root, "part", "m1", "p1.json"),
		`{"id":"p1","messageID":"m1","type":"text","text":"Hello "}`)
	writeFile(t, filepath.Join(root, "part", "m1", "p2.json"),
		`{"id":"p2","messageID":"m1","type":"text","text":"world"}`)

	s := NewScanner(root)
	sessions, _ := s.Sessions()
	_, msgs := s.LoadSession(sessions[0])

	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].Content != "Hello world" {
		t.Errorf("Content = %q, want parts concatenated in file order", msgs[0].Content)
	}
}

func TestLoadSession_ToolParts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "session", "p", "s.json"), `{"id":"s1"}`)
	writeFile(t, filepath.Join(root, "message", "s1", "m1.json"),
		`{"id":"m1","sessionID":"s1","role":"assistant"}`)
	writeFile(t, filepath.Join(root, "part", "m1", "p1.json"),
		`{"id":"p1","messageID":"m1","type":"tool","tool":"bash","callID":"c9","state":{"status":"completed","input":{"command":"ls"}}}`)

	s := NewScanner(root)
	sessions, _ := s.Sessions()
	_, msgs := s.LoadSession(sessions[0])

	if len(msgs) != 1 || len(msgs[0].Parts) != 1 {
		t.Fatalf("messages/parts = %d, want one message with one part", len(msgs))
	}
	p := msgs[0].Parts[0]
	if p.ID != "c9" || p.ToolName != "bash" || p.Status != "completed" {
		t.Errorf("part = %+v", p)
	}
	if p.Arguments != `{"command":"ls"}` {
		t.Errorf("Arguments = %q", p.Arguments)
	}
}

func TestLoadSession_Aggregation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "session", "p", "s.json"),
		`{"id":"s1","directory":"/home/u/myproj","time":{"created":1000,"updated":61000}}`)
	writeFile(t, filepath.Join(root, "message", "s1", "m1.json"),
		`{"id":"m1","sessionID":"s1","role":"assistant","modelID":"claude-sonnet-4","providerID":"anthropic","tokens":{"input":1000000,"output":1000000}}`)
	writeFile(t, filepath.Join(root, "message", "s1", "m2.json"),
		`{"id":"m2","sessionID":"s1","role":"assistant","modelID":"claude-opus-4-1","tokens":{"input":10,"output":5,"cache":{"write":3,"read":7}}}`)
	writeFile(t, filepath.Join(root, "part", "m1", "p1.json"),
		`{"id":"p1","messageID":"m1","type":"text","text":"done"}`)

	s := NewScanner(root)
	sessions, _ := s.Sessions()
	rec, msgs := s.LoadSession(sessions[0])

	if rec.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q, want first non-empty model", rec.Model)
	}
	if rec.Provider != "anthropic" {
		t.Errorf("Provider = %q", rec.Provider)
	}
	if rec.Tokens.Input != 1000010 || rec.Tokens.Output != 1000005 {
		t.Errorf("tokens = %+v", rec.Tokens)
	}
	if rec.Tokens.CacheWrite != 3 || rec.Tokens.CacheRead != 7 {
		t.Errorf("cache tokens = %+v", rec.Tokens)
	}
	if rec.DurationMS != 60000 {
		t.Errorf("DurationMS = %d, want 60000", rec.DurationMS)
	}
	if rec.ProjectName != "myproj" {
		t.Errorf("ProjectName = %q", rec.ProjectName)
	}

	// Cost comes from the pricing table for the session model.
	if rec.CostUSD < 18.0 {
		t.Errorf("CostUSD = %v, want pricing-derived cost >= 18", rec.CostUSD)
	}

	// m2 has no text and no parts, so only m1 is content-bearing.
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("messages = %+v, want only m1", msgs)
	}
}

func TestLoadSession_RawCostFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "session", "p", "s.json"), `{"id":"s1"}`)
	writeFile(t, filepath.Join(root, "message", "s1", "m1.json"),
		`{"id":"m1","sessionID":"s1","modelID":"private-lab-model","cost":0.42,"tokens":{"input":100}}`)
	writeFile(t, filepath.Join(root, "message", "s1", "m2.json"),
		`{"id":"m2","sessionID":"s1","modelID":"private-lab-model","cost":0.08}`)

	s := NewScanner(root)
	sessions, _ := s.Sessions()
	rec, _ := s.LoadSession(sessions[0])

	if rec.CostUSD != 0.5 {
		t.Errorf("CostUSD = %v, want 0.5 from raw archive cost fields", rec.CostUSD)
	}
}

func TestLoadSession_MalformedMessageSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "session", "p", "s.json"), `{"id":"s1"}`)
	writeFile(t, filepath.Join(root, "message", "s1", "bad.json"), `{not json`)
	writeFile(t, filepath.Join(root, "message", "s1", "ok.json"),
		`{"id":"m1","sessionID":"s1","tokens":{"input":10}}`)

	s := NewScanner(root)
	sessions, _ := s.Sessions()
	rec, _ := s.LoadSession(sessions[0])

	if rec.Tokens.Input != 10 {
		t.Errorf("Input = %d, want 10 (malformed file skipped, scan continues)", rec.Tokens.Input)
	}
}
