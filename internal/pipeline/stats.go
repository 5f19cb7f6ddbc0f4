package pipeline

import (
	"github.com/okvist/sessync/internal/event"
	"github.com/okvist/sessync/internal/model"
)

// Totals holds the running aggregates for one session.
type Totals struct {
	Model    string
	Provider string
	Tokens   model.TokenUsage
	CostUSD  float64
}

// Stats accumulates per-session token and cost totals from message
// metadata events. It never resets; late statistics keep enriching
// subsequent session updates. Not safe for concurrent use on its own --
// the pipeline serializes access.
type Stats struct {
	sessions map[string]*Totals
}

// NewStats returns an empty aggregator.
func NewStats() *Stats {
	return &Stats{sessions: make(map[string]*Totals)}
}

// Record accumulates one message's metadata into its session totals.
// The model and provider identifiers are set once, from the first
// message that supplies them.
func (s *Stats) Record(mi event.MessageInfo) {
	if mi.SessionID == "" {
		return
	}

	t, ok := s.sessions[mi.SessionID]
	if !ok {
		t = &Totals{}
		s.sessions[mi.SessionID] = t
	}

	t.Tokens.Add(mi.Tokens)
	t.CostUSD += mi.CostUSD
	if t.Model == "" && mi.Model != "" {
		t.Model = mi.Model
	}
	if t.Provider == "" && mi.Provider != "" {
		t.Provider = mi.Provider
	}
}

// Snapshot returns the current totals for a session, or empty defaults
// if nothing has been recorded. Reading never clears.
func (s *Stats) Snapshot(sessionID string) Totals {
	if t, ok := s.sessions[sessionID]; ok {
		return *t
	}
	return Totals{}
}
