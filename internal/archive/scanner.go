// Package archive reads the host's on-disk session archive and
// reconstructs session and message records statically, mirroring what
// the live pipeline assembles from streaming events.
//
// Layout under the storage root:
//
//	session/<project-dir>/<file>.json   session records
//	message/<sessionID>/<file>.json     message records
//	part/<messageID>/<file>.json        part records
package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/okvist/sessync/internal/config"
	"github.com/okvist/sessync/internal/model"
)

// Scanner walks a session archive rooted at a storage directory.
type Scanner struct {
	root string
}

// NewScanner returns a scanner for the given storage root.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// Session is one discovered session record, before its messages are loaded.
type Session struct {
	ID        string
	Title     string
	Directory string
	Project   string // project subdirectory name under session/
	CreatedMS int64
	UpdatedMS int64
}

// Sessions enumerates every parsable session record with a non-empty ID.
// Malformed files are skipped; a missing archive yields an empty slice.
func (s *Scanner) Sessions() ([]Session, error) {
	sessionRoot := filepath.Join(s.root, "session")

	info, err := os.Stat(sessionRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	projects, err := os.ReadDir(sessionRoot)
	if err != nil {
		return nil, err
	}

	var sessions []Session
	for _, proj := range projects {
		if !proj.IsDir() {
			continue
		}

		files, err := os.ReadDir(filepath.Join(sessionRoot, proj.Name()))
		if err != nil {
			continue
		}

		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
				continue
			}

			rs, ok := readJSON[rawSession](filepath.Join(sessionRoot, proj.Name(), f.Name()))
			if !ok || rs.ID == "" {
				continue
			}

			sessions = append(sessions, Session{
				ID:        rs.ID,
				Title:     rs.Title,
				Directory: rs.Directory,
				Project:   proj.Name(),
				CreatedMS: rs.Time.Created,
				UpdatedMS: rs.Time.Updated,
			})
		}
	}

	return sessions, nil
}

// LoadSession reconstructs the full session record and its content-bearing
// messages. Token counts accumulate over every parsed message; the first
// non-empty model and provider win, mirroring the live statistics
// aggregator. Cost comes from the pricing table, falling back to the sum
// of raw per-message cost fields when the model is unpriced.
func (s *Scanner) LoadSession(sess Session) (model.SessionRecord, []model.MessageRecord) {
	title := sess.Title
	if title == "" {
		title = model.DefaultTitle
	}

	rec := model.SessionRecord{
		ID:          sess.ID,
		Title:       title,
		ProjectPath: sess.Directory,
		ProjectName: projectName(sess.Directory),
	}
	if sess.CreatedMS > 0 && sess.UpdatedMS > sess.CreatedMS {
		rec.DurationMS = sess.UpdatedMS - sess.CreatedMS
	}

	var (
		messages []model.MessageRecord
		rawCost  float64
	)

	msgDir := filepath.Join(s.root, "message", sess.ID)
	entries, err := os.ReadDir(msgDir)
	if err != nil {
		// No message directory: a session with zero messages still syncs.
		return rec, nil
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		rm, ok := readJSON[rawMessage](filepath.Join(msgDir, e.Name()))
		if !ok || rm.ID == "" {
			continue
		}

		rec.Tokens.Add(rm.Tokens.usage())
		rawCost += rm.Cost
		if rec.Model == "" && rm.modelName() != "" {
			rec.Model = rm.modelName()
		}
		if rec.Provider == "" && rm.ProviderID != "" {
			rec.Provider = rm.ProviderID
		}

		msg := model.MessageRecord{
			ID:        rm.ID,
			SessionID: sess.ID,
			Role:      rm.Role,
			Model:     rm.modelName(),
			Tokens:    rm.Tokens.usage(),
		}
		if rm.Time.Created > 0 && rm.Time.Completed > rm.Time.Created {
			msg.DurationMS = rm.Time.Completed - rm.Time.Created
		}

		msg.Content, msg.Parts = s.loadParts(rm.ID)

		if msg.HasContent() {
			messages = append(messages, msg)
		}
	}

	if _, ok := config.LookupPricing(rec.Model); ok {
		rec.CostUSD = config.CalculateCost(rec.Model, rec.Tokens)
	} else {
		rec.CostUSD = rawCost
	}

	return rec, messages
}

// loadParts concatenates a message's text parts in file order and
// collects its tool parts.
func (s *Scanner) loadParts(messageID string) (string, []model.MessagePart) {
	partDir := filepath.Join(s.root, "part", messageID)
	entries, err := os.ReadDir(partDir)
	if err != nil {
		return "", nil
	}

	var (
		text  strings.Builder
		parts []model.MessagePart
	)

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		rp, ok := readJSON[rawPart](filepath.Join(partDir, e.Name()))
		if !ok {
			continue
		}

		switch rp.Type {
		case "text":
			text.WriteString(rp.Text)
		case "tool":
			part := model.MessagePart{
				ID:       rp.CallID,
				Type:     "tool",
				ToolName: rp.Tool,
			}
			if part.ID == "" {
				part.ID = rp.ID
			}
			if rp.State != nil {
				part.Status = rp.State.Status
				part.Arguments = string(rp.State.Input)
			}
			parts = append(parts, part)
		}
	}

	return text.String(), parts
}

// readJSON parses one archive file, reporting ok=false on any failure so
// a corrupt file never aborts the scan.
func readJSON[T any](path string) (T, bool) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// projectName extracts a display name from the session's project path.
func projectName(dir string) string {
	if dir == "" {
		return ""
	}
	base := filepath.Base(dir)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}
