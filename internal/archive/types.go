package archive

import (
	"encoding/json"

	"github.com/okvist/sessync/internal/model"
)

// Raw record shapes as stored in the on-disk archive. Fields the scanner
// doesn't consume are left undeclared; unknown fields are ignored.

type rawTime struct {
	Created   int64 `json:"created"`
	Updated   int64 `json:"updated"`
	Completed int64 `json:"completed"`
}

type rawSession struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Directory string  `json:"directory"`
	Time      rawTime `json:"time"`
}

// rawTokens tolerates both token-count generations found in archives:
// the current nested cache object and the legacy flat fields.
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

func (m rawMessage) modelName() string {
	if m.ModelID != "" {
		return m.ModelID
	}
	return m.Model
}

type rawPart struct {
	ID        string `json:"id"`
	MessageID string `json:"messageID"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	Tool      string `json:"tool"`
	CallID    string `json:"callID"`
	State     *struct {
		Status string          `json:"status"`
		Input  json.RawMessage `json:"input"`
	} `json:"state"`
}
