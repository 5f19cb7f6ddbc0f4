package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/okvist/sessync/internal/event"
)

// Watcher observes the archive on disk and synthesizes the same events
// the live stream would carry, so file writes feed the pipeline exactly
// like streamed deltas.
type Watcher struct {
	root   string
	handle func(event.Event)
}

// NewWatcher returns a watcher that calls handle for every record
// written under the archive root.
func NewWatcher(root string, handle func(event.Event)) *Watcher {
	return &Watcher{root: root, handle: handle}
}

// Run watches until the context is cancelled. New project, session and
// message directories are picked up as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, sub := range []string{"session", "message", "part"} {
		dir := filepath.Join(w.root, sub)
		_ = os.MkdirAll(dir, 0o755)
		if err := fw.Add(dir); err != nil {
			return err
		}
		// Existing second-level directories need their own watches.
		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if e.IsDir() {
				_ = fw.Add(filepath.Join(dir, e.Name()))
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = fw.Add(ev.Name)
					continue
				}
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) {
				w.emit(ev.Name)
			}
		case _, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			// Watch errors are transient; keep going.
		}
	}
}

// emit parses one written record and hands the equivalent event to the
// pipeline. Partially written or non-record files are ignored.
func (w *Watcher) emit(path string) {
	if filepath.Ext(path) != ".json" {
		return
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return
	}

	switch parts[0] {
	case "session":
		rs, ok := readJSON[rawSession](path)
		if !ok || rs.ID == "" {
			return
		}
		w.handle(event.Event{Kind: event.KindSessionUpdated, Session: event.SessionInfo{
			ID:        rs.ID,
			Title:     rs.Title,
			Directory: rs.Directory,
			Created:   rs.Time.Created,
			Updated:   rs.Time.Updated,
		}})
	case "message":
		rm, ok := readJSON[rawMessage](path)
		if !ok || rm.ID == "" {
			return
		}
		sessionID := rm.SessionID
		if sessionID == "" {
			sessionID = parts[1] // directory name is the session ID
		}
		w.handle(event.Event{Kind: event.KindMessageMeta, Message: event.MessageInfo{
			ID:        rm.ID,
			SessionID: sessionID,
			Role:      rm.Role,
			Model:     rm.modelName(),
			Provider:  rm.ProviderID,
			Tokens:    rm.Tokens.usage(),
			CostUSD:   rm.Cost,
			Created:   rm.Time.Created,
			Completed: rm.Time.Completed,
		}})
	case "part":
		rp, ok := readJSON[rawPart](path)
		if !ok {
			return
		}
		messageID := rp.MessageID
		if messageID == "" {
			messageID = parts[1]
		}
		pi := event.PartInfo{
			MessageID: messageID,
			Type:      rp.Type,
			Text:      rp.Text,
			ToolName:  rp.Tool,
			ToolID:    rp.CallID,
		}
		if pi.ToolID == "" {
			pi.ToolID = rp.ID
		}
		if rp.State != nil {
			pi.Status = rp.State.Status
			pi.Arguments = string(rp.State.Input)
		}
		w.handle(event.Event{Kind: event.KindMessagePart, Part: pi})
	}
}
