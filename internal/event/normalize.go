package event

import (
	"encoding/json"

	"github.com/okvist/sessync/internal/model"
)

// Normalize maps an envelope onto a canonical event. It is total: any
// extraction failure degrades to KindUnknown rather than an error, so the
// host's event loop is never aborted by a malformed payload.
func Normalize(env Envelope) Event {
	switch env.Type {
	case "session.created":
		if si, ok := adaptSession(env.Properties); ok {
			return Event{Kind: KindSessionCreated, Session: si}
		}
	case "session.updated":
		if si, ok := adaptSession(env.Properties); ok {
			return Event{Kind: KindSessionUpdated, Session: si}
		}
	case "session.idle":
		if si, ok := adaptSession(env.Properties); ok {
			return Event{Kind: KindSessionIdle, Session: si}
		}
	case "message.updated":
		if mi, ok := adaptMessage(env.Properties); ok {
			return Event{Kind: KindMessageMeta, Message: mi}
		}
	case "message.part.updated":
		if pi, ok := adaptPart(env.Properties); ok {
			return Event{Kind: KindMessagePart, Part: pi}
		}
	}
	return Event{Kind: KindUnknown}
}

// rawTime covers the nested timestamp object used by all record kinds.
type rawTime struct {
	Created   int64 `json:"created"`
	Updated   int64 `json:"updated"`
	Completed int64 `json:"completed"`
}

// rawTokens covers both token-count generations: the current nested
// cache object and the legacy flat cache fields.
type rawTokens struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Cache  *struct {
		Write int64 `json:"write"`
		Read  int64 `json:"read"`
	} `json:"cache"`
	CacheWrite int64 `json:"cache_write"`
	CacheRead  int64 `json:"cache_read"`
}

// usage resolves the two cache-field generations, preferring the newer
// nested shape when both are present.
func (t rawTokens) usage() model.TokenUsage {
	u := model.TokenUsage{Input: t.Input, Output: t.Output}
	if t.Cache != nil {
		u.CacheWrite = t.Cache.Write
		u.CacheRead = t.Cache.Read
	} else {
		u.CacheWrite = t.CacheWrite
		u.CacheRead = t.CacheRead
	}
	return u
}

// infoWrapper probes the current schema generation, which nests the
// record under an "info" (sessions, messages) or "part" key.
type infoWrapper struct {
	Info json.RawMessage `json:"info"`
	Part json.RawMessage `json:"part"`
}

func nested(props json.RawMessage, key string) json.RawMessage {
	var w infoWrapper
	if err := json.Unmarshal(props, &w); err != nil {
		return nil
	}
	var raw json.RawMessage
	switch key {
	case "info":
		raw = w.Info
	case "part":
		raw = w.Part
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

type rawSession struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Directory string  `json:"directory"`
	Time      rawTime `json:"time"`
}

// adaptSession probes the nested "info" location first (current schema),
// then the flat legacy layout.
func adaptSession(props json.RawMessage) (SessionInfo, bool) {
	if raw := nested(props, "info"); raw != nil {
		if si, ok := sessionFrom(raw); ok {
			return si, true
		}
	}
	return sessionFrom(props)
}

func sessionFrom(raw json.RawMessage) (SessionInfo, bool) {
	var rs rawSession
	if err := json.Unmarshal(raw, &rs); err != nil || rs.ID == "" {
		return SessionInfo{}, false
	}
	return SessionInfo{
		ID:        rs.ID,
		Title:     rs.Title,
		Directory: rs.Directory,
		Created:   rs.Time.Created,
		Updated:   rs.Time.Updated,
	}, true
}

type rawMessage struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionID"`
	Role       string    `json:"role"`
	ModelID    string    `json:"modelID"`
	Model      string    `json:"model"` // legacy field name
	ProviderID string    `json:"providerID"`
	Cost       float64   `json:"cost"`
	Tokens     rawTokens `json:"tokens"`
	Time       rawTime   `json:"time"`
}

func adaptMessage(props json.RawMessage) (MessageInfo, bool) {
	if raw := nested(props, "info"); raw != nil {
		if mi, ok := messageFrom(raw); ok {
			return mi, true
		}
	}
	return messageFrom(props)
}

func messageFrom(raw json.RawMessage) (MessageInfo, bool) {
	var rm rawMessage
	if err := json.Unmarshal(raw, &rm); err != nil || rm.ID == "" {
		return MessageInfo{}, false
	}

	modelName := rm.ModelID
	if modelName == "" {
		modelName = rm.Model
	}

	return MessageInfo{
		ID:        rm.ID,
		SessionID: rm.SessionID,
		Role:      rm.Role,
		Model:     modelName,
		Provider:  rm.ProviderID,
		Tokens:    rm.Tokens.usage(),
		CostUSD:   rm.Cost,
		Created:   rm.Time.Created,
		Completed: rm.Time.Completed,
	}, true
}

type rawPart struct {
	ID        string `json:"id"`
	MessageID string `json:"messageID"`
	SessionID string `json:"sessionID"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	Tool      string `json:"tool"`
	CallID    string `json:"callID"`
	State     *struct {
		Status string          `json:"status"`
		Input  json.RawMessage `json:"input"`
	} `json:"state"`
}

func adaptPart(props json.RawMessage) (PartInfo, bool) {
	if raw := nested(props, "part"); raw != nil {
		if pi, ok := partFrom(raw); ok {
			return pi, true
		}
	}
	return partFrom(props)
}

func partFrom(raw json.RawMessage) (PartInfo, bool) {
	var rp rawPart
	if err := json.Unmarshal(raw, &rp); err != nil || rp.MessageID == "" {
		return PartInfo{}, false
	}

	// Only text and tool parts feed the reconstruction buffer; other part
	// kinds (step markers, snapshots) are no-ops.
	if rp.Type != "text" && rp.Type != "tool" {
		return PartInfo{}, false
	}

	pi := PartInfo{
		MessageID: rp.MessageID,
		SessionID: rp.SessionID,
		Type:      rp.Type,
		Text:      rp.Text,
		ToolID:    rp.CallID,
		ToolName:  rp.Tool,
	}
	if pi.ToolID == "" {
		pi.ToolID = rp.ID
	}
	if rp.State != nil {
		pi.Status = rp.State.Status
		pi.Arguments = string(rp.State.Input)
	}
	return pi, true
}
