// Package event normalizes the host's loosely-typed event stream into
// canonical records the pipeline can consume.
package event

import (
	"encoding/json"

	"github.com/okvist/sessync/internal/model"
)

// Envelope is the raw tagged event as emitted by the host. Properties is
// an implementation-defined payload whose shape varies across schema
// generations; it is treated as untrusted.
type Envelope struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// Kind identifies the canonical event category.
type Kind int

const (
	KindUnknown Kind = iota
	KindSessionCreated
	KindSessionUpdated
	KindSessionIdle
	KindMessageMeta
	KindMessagePart
)

// SessionInfo carries the canonical fields of a session lifecycle event.
type SessionInfo struct {
	ID        string
	Title     string
	Directory string
	Created   int64 // epoch milliseconds
	Updated   int64
}

// MessageInfo carries the canonical fields of a message metadata event.
type MessageInfo struct {
	ID        string
	SessionID string
	Role      string
	Model     string
	Provider  string
	Tokens    model.TokenUsage
	CostUSD   float64
	Created   int64
	Completed int64
}

// PartInfo carries the canonical fields of a streaming part event.
// Text parts replace the message's buffered text; tool parts append.
type PartInfo struct {
	MessageID string
	SessionID string
	Type      string // "text" or "tool"
	Text      string
	ToolID    string
	ToolName  string
	Arguments string
	Status    string
}

// Event is the canonical, strictly-typed form of one host event. Exactly
// one of Session, Message, Part is meaningful depending on Kind.
type Event struct {
	Kind    Kind
	Session SessionInfo
	Message MessageInfo
	Part    PartInfo
}

// Decode parses one raw line from the host into an envelope. A line that
// is not a JSON object with a type tag yields an unknown envelope.
func Decode(line []byte) Envelope {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}
	}
	return env
}
