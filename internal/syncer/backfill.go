package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/okvist/sessync/internal/archive"
	"github.com/okvist/sessync/internal/model"
)

// Mode selects how the backfill decides which sessions to send.
type Mode string

const (
	// ModeNew skips sessions the local tracking record says were synced.
	ModeNew Mode = "new"
	// ModeAll asks the remote store which sessions it has and sends the rest.
	ModeAll Mode = "all"
	// ModeForce clears the tracking record and sends everything.
	ModeForce Mode = "force"
)

// ParseMode validates a mode string from the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNew, ModeAll, ModeForce:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q (want new, all, or force)", s)
}

// Tracker is the local record of synced sessions.
type Tracker interface {
	Load() (map[string]struct{}, error)
	Add(ids ...string) error
	Clear() error
}

// SessionSource enumerates archived sessions and loads their contents.
type SessionSource interface {
	Sessions() ([]archive.Session, error)
	LoadSession(archive.Session) (model.SessionRecord, []model.MessageRecord)
}

// Remote is the subset of the client the backfill needs.
type Remote interface {
	SubmitSession(ctx context.Context, rec model.SessionRecord) error
	SubmitMessage(ctx context.Context, rec model.MessageRecord) error
	ListSessionIDs(ctx context.Context) map[string]struct{}
}

// Summary reports what one backfill run did.
type Summary struct {
	SessionsTotal   int
	SessionsSynced  int
	SessionsSkipped int
	SessionsFailed  int
	MessagesSynced  int
	CostUSD         float64
}

// Options configures a backfill run.
type Options struct {
	Mode Mode
	// Progress, when set, is called after each session attempt with the
	// running counts.
	Progress func(done, total int)
}

// Run scans the archive and submits every selected session and its
// messages. A session counts as synced only when the session record and
// all of its messages were accepted; on any failure the session is left
// untracked so a later run retries it whole.
func Run(ctx context.Context, src SessionSource, remote Remote, tracker Tracker, opts Options) (Summary, error) {
	var sum Summary

	sessions, err := src.Sessions()
	if err != nil {
		return sum, fmt.Errorf("scanning archive: %w", err)
	}

	known, err := knownSessions(ctx, remote, tracker, opts.Mode)
	if err != nil {
		return sum, err
	}

	pending := lo.Filter(sessions, func(s archive.Session, _ int) bool {
		_, seen := known[s.ID]
		return !seen
	})

	sum.SessionsTotal = len(sessions)
	sum.SessionsSkipped = len(sessions) - len(pending)

	for i, sess := range pending {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		rec, msgs := src.LoadSession(sess)
		if err := syncOne(ctx, remote, rec, msgs); err != nil {
			sum.SessionsFailed++
			if errors.Is(err, ErrUnauthorized) {
				return sum, err
			}
		} else {
			sum.SessionsSynced++
			sum.MessagesSynced += len(msgs)
			sum.CostUSD += rec.CostUSD
			if err := tracker.Add(sess.ID); err != nil {
				return sum, fmt.Errorf("recording synced session: %w", err)
			}
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(pending))
		}
	}

	return sum, nil
}

// knownSessions builds the set of session IDs to skip for the given mode.
func knownSessions(ctx context.Context, remote Remote, tracker Tracker, mode Mode) (map[string]struct{}, error) {
	switch mode {
	case ModeForce:
		if err := tracker.Clear(); err != nil {
			return nil, fmt.Errorf("clearing tracking record: %w", err)
		}
		return map[string]struct{}{}, nil
	case ModeAll:
		// The remote store is the authority here; on error the set is
		// empty and everything is resent, which the store deduplicates.
		return remote.ListSessionIDs(ctx), nil
	default:
		known, err := tracker.Load()
		if err != nil {
			return map[string]struct{}{}, nil
		}
		return known, nil
	}
}

// syncOne submits a session and then its messages. The first failure
// aborts the session so partial content is never recorded as synced.
func syncOne(ctx context.Context, remote Remote, rec model.SessionRecord, msgs []model.MessageRecord) error {
	if err := remote.SubmitSession(ctx, rec); err != nil {
		return err
	}
	for _, m := range msgs {
		if err := remote.SubmitMessage(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
