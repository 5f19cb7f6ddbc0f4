// Package model defines the record types shared by the live pipeline,
// the archive scanner, and the sync client.
package model

// DefaultTitle is used when a session has no title yet.
const DefaultTitle = "Untitled session"

// TokenUsage holds token counts for a message or a whole session.
type TokenUsage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// Add accumulates another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.Input += other.Input
	u.Output += other.Output
	u.CacheWrite += other.CacheWrite
	u.CacheRead += other.CacheRead
}

// IsZero reports whether all counts are zero.
func (u TokenUsage) IsZero() bool {
	return u.Input == 0 && u.Output == 0 && u.CacheWrite == 0 && u.CacheRead == 0
}

// SessionRecord is the outbound create-or-replace payload for a session,
// keyed by the external ID assigned by the originating system.
type SessionRecord struct {
	ID          string
	Title       string
	ProjectPath string
	ProjectName string
	Model       string
	Provider    string
	Tokens      TokenUsage
	CostUSD     float64
	DurationMS  int64
}

// MessagePart is one structured part of a message: a tool invocation
// (name, arguments, status) or a tool result.
type MessagePart struct {
	ID        string
	Type      string // "text" or "tool"
	Text      string
	ToolName  string
	Arguments string // raw JSON of the tool input
	Status    string
}

// MessageRecord is the outbound create payload for a message, scoped to
// its parent session's external ID.
type MessageRecord struct {
	ID         string
	SessionID  string
	Role       string // "user", "assistant", or "system"
	Content    string
	Model      string
	Tokens     TokenUsage
	DurationMS int64
	Parts      []MessagePart
}

// HasContent reports whether the message carries anything worth syncing.
// A message with no text and no structured parts is never forwarded.
func (m MessageRecord) HasContent() bool {
	return m.Content != "" || len(m.Parts) > 0
}
