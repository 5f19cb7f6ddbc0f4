package pipeline

import (
	"github.com/okvist/sessync/internal/event"
	"github.com/okvist/sessync/internal/model"
)

// bufferEntry accumulates the in-flight state of one message while its
// streaming updates settle. Text carries the latest cumulative snapshot
// (each content event replaces it); tool parts are strictly additive.
type bufferEntry struct {
	sessionID string
	role      string
	modelName string
	tokens    model.TokenUsage
	created   int64
	completed int64
	hasMeta   bool

	text  string
	parts []model.MessagePart
}

func (e *bufferEntry) applyMeta(mi event.MessageInfo) {
	e.hasMeta = true
	if mi.SessionID != "" {
		e.sessionID = mi.SessionID
	}
	if mi.Role != "" {
		e.role = mi.Role
	}
	if mi.Model != "" {
		e.modelName = mi.Model
	}
	e.tokens = mi.Tokens
	e.created = mi.Created
	e.completed = mi.Completed
}

func (e *bufferEntry) applyPart(pi event.PartInfo) {
	if e.sessionID == "" && pi.SessionID != "" {
		e.sessionID = pi.SessionID
	}

	switch pi.Type {
	case "text":
		// The stream sends cumulative text, not deltas.
		e.text = pi.Text
	case "tool":
		e.parts = append(e.parts, model.MessagePart{
			ID:        pi.ToolID,
			Type:      "tool",
			ToolName:  pi.ToolName,
			Arguments: pi.Arguments,
			Status:    pi.Status,
		})
	}
}

// record builds the outbound message from the buffered state. The role
// must already be resolved by the caller.
func (e *bufferEntry) record(id, content string) model.MessageRecord {
	rec := model.MessageRecord{
		ID:        id,
		SessionID: e.sessionID,
		Role:      e.role,
		Content:   content,
		Model:     e.modelName,
		Tokens:    e.tokens,
		Parts:     e.parts,
	}
	if e.created > 0 && e.completed > e.created {
		rec.DurationMS = e.completed - e.created
	}
	return rec
}
