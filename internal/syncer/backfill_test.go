package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/okvist/sessync/internal/archive"
	"github.com/okvist/sessync/internal/model"
)

// fakeSource serves canned sessions, each with one message.
type fakeSource struct {
	sessions []archive.Session
}

func (f *fakeSource) Sessions() ([]archive.Session, error) {
	return f.sessions, nil
}

func (f *fakeSource) LoadSession(s archive.Session) (model.SessionRecord, []model.MessageRecord) {
	rec := model.SessionRecord{ID: s.ID, Title: s.Title, CostUSD: 0.5}
	msg := model.MessageRecord{ID: s.ID + "-m1", SessionID: s.ID, Role: "user", Content: "hi"}
	return rec, []model.MessageRecord{msg}
}

// fakeRemote records submits and fails on demand.
type fakeRemote struct {
	sessions    []string
	messages    []string
	failSession map[string]error
	failMessage map[string]error
	known       map[string]struct{}
	listCalls   int
}

func (f *fakeRemote) SubmitSession(_ context.Context, rec model.SessionRecord) error {
	if err := f.failSession[rec.ID]; err != nil {
		return err
	}
	f.sessions = append(f.sessions, rec.ID)
	return nil
}

func (f *fakeRemote) SubmitMessage(_ context.Context, rec model.MessageRecord) error {
	if err := f.failMessage[rec.ID]; err != nil {
		return err
	}
	f.messages = append(f.messages, rec.ID)
	return nil
}

func (f *fakeRemote) ListSessionIDs(context.Context) map[string]struct{} {
	f.listCalls++
	if f.known == nil {
		return map[string]struct{}{}
	}
	return f.known
}

// memTracker is an in-memory Tracker.
type memTracker struct {
	ids     map[string]struct{}
	loadErr error
}

func newMemTracker(ids ...string) *memTracker {
	t := &memTracker{ids: make(map[string]struct{})}
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
	return t
}

func (t *memTracker) Load() (map[string]struct{}, error) {
	if t.loadErr != nil {
		return nil, t.loadErr
	}
	out := make(map[string]struct{}, len(t.ids))
	for id := range t.ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (t *memTracker) Add(ids ...string) error {
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
	return nil
}

func (t *memTracker) Clear() error {
	t.ids = make(map[string]struct{})
	return nil
}

func sessionsNamed(ids ...string) []archive.Session {
	out := make([]archive.Session, 0, len(ids))
	for _, id := range ids {
		out = append(out, archive.Session{ID: id, Title: id})
	}
	return out
}

func TestRun_ModeNewSkipsTracked(t *testing.T) {
	src := &fakeSource{sessions: sessionsNamed("s1", "s2", "s3")}
	remote := &fakeRemote{}
	tracker := newMemTracker("s2")

	sum, err := Run(context.Background(), src, remote, tracker, Options{Mode: ModeNew})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.SessionsTotal != 3 || sum.SessionsSynced != 2 || sum.SessionsSkipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.MessagesSynced != 2 {
		t.Errorf("MessagesSynced = %d, want 2", sum.MessagesSynced)
	}
	if sum.CostUSD != 1.0 {
		t.Errorf("CostUSD = %v, want 1.0", sum.CostUSD)
	}
	if len(remote.sessions) != 2 {
		t.Errorf("submitted sessions = %v", remote.sessions)
	}
	if remote.listCalls != 0 {
		t.Error("mode new must not query the remote store")
	}
	// Both newly synced sessions are now tracked.
	ids, _ := tracker.Load()
	if len(ids) != 3 {
		t.Errorf("tracked = %d, want 3", len(ids))
	}
}

func TestRun_ModeNewToleratesTrackerLoadError(t *testing.T) {
	src := &fakeSource{sessions: sessionsNamed("s1")}
	remote := &fakeRemote{}
	tracker := newMemTracker()
	tracker.loadErr = errors.New("corrupt")

	sum, err := Run(context.Background(), src, remote, tracker, Options{Mode: ModeNew})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.SessionsSynced != 1 {
		t.Errorf("SessionsSynced = %d, want 1 (load error means empty known set)", sum.SessionsSynced)
	}
}

func TestRun_ModeAllUsesRemoteAuthority(t *testing.T) {
	src := &fakeSource{sessions: sessionsNamed("s1", "s2")}
	remote := &fakeRemote{known: map[string]struct{}{"s1": {}}}
	tracker := newMemTracker("s1", "s2") // local record disagrees; remote wins

	sum, err := Run(context.Background(), src, remote, tracker, Options{Mode: ModeAll})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if remote.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1", remote.listCalls)
	}
	if sum.SessionsSynced != 1 || len(remote.sessions) != 1 || remote.sessions[0] != "s2" {
		t.Errorf("summary = %+v, sessions = %v", sum, remote.sessions)
	}
}

func TestRun_ModeForceClearsAndResends(t *testing.T) {
	src := &fakeSource{sessions: sessionsNamed("s1", "s2")}
	remote := &fakeRemote{}
	tracker := newMemTracker("s1", "s2")

	sum, err := Run(context.Background(), src, remote, tracker, Options{Mode: ModeForce})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.SessionsSynced != 2 || sum.SessionsSkipped != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_FailedSessionLeftUntracked(t *testing.T) {
	src := &fakeSource{sessions: sessionsNamed("s1", "s2")}
	remote := &fakeRemote{
		failSession: map[string]error{"s1": errors.New("boom")},
	}
	tracker := newMemTracker()

	sum, err := Run(context.Background(), src, remote, tracker, Options{Mode: ModeNew})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.SessionsFailed != 1 || sum.SessionsSynced != 1 {
		t.Errorf("summary = %+v", sum)
	}
	// s1's message must not have been attempted after the session failed.
	if len(remote.messages) != 1 || remote.messages[0] != "s2-m1" {
		t.Errorf("messages = %v", remote.messages)
	}
	ids, _ := tracker.Load()
	if _, ok := ids["s1"]; ok {
		t.Error("failed session recorded as synced")
	}
}

func TestRun_MessageFailureLeavesSessionUntracked(t *testing.T) {
	src := &fakeSource{sessions: sessionsNamed("s1")}
	remote := &fakeRemote{
		failMessage: map[string]error{"s1-m1": errors.New("boom")},
	}
	tracker := newMemTracker()

	sum, err := Run(context.Background(), src, remote, tracker, Options{Mode: ModeNew})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.SessionsFailed != 1 || sum.SessionsSynced != 0 {
		t.Errorf("summary = %+v", sum)
	}
	ids, _ := tracker.Load()
	if len(ids) != 0 {
		t.Error("partially synced session must stay untracked")
	}
}

func TestRun_UnauthorizedAborts(t *testing.T) {
	src := &fakeSource{sessions: sessionsNamed("s1", "s2", "s3")}
	remote := &fakeRemote{
		failSession: map[string]error{"s1": ErrUnauthorized, "s2": ErrUnauthorized, "s3": ErrUnauthorized},
	}

	_, err := Run(context.Background(), src, remote, newMemTracker(), Options{Mode: ModeNew})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	if len(remote.sessions) != 0 {
		t.Error("no session should succeed with a rejected key")
	}
}

func TestRun_ProgressCallback(t *testing.T) {
	src := &fakeSource{sessions: sessionsNamed("s1", "s2")}
	remote := &fakeRemote{}

	var calls [][2]int
	_, err := Run(context.Background(), src, remote, newMemTracker(), Options{
		Mode: ModeNew,
		Progress: func(done, total int) {
			calls = append(calls, [2]int{done, total})
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(calls) != 2 || calls[1] != [2]int{2, 2} {
		t.Errorf("progress calls = %v", calls)
	}
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"new", "all", "force"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q) error: %v", valid, err)
		}
	}
	if _, err := ParseMode("everything"); err == nil {
		t.Error("ParseMode accepted an invalid mode")
	}
}
