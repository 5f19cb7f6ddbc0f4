// Package daemon provides the optional local status endpoint served
// while watch mode runs.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Stats is the live counter source, satisfied by the pipeline.
type Stats interface {
	Dropped() int64
}

// Archive reports the local archive size.
type Archive interface {
	SessionCount() (int, error)
}

// Tracker reports local sync-tracking state.
type Tracker interface {
	Count() int
	LastUpdated() time.Time
}

// Config controls the service runtime behavior.
type Config struct {
	Addr     string
	DataDir  string
	Interval time.Duration
}

// Snapshot is the compact sync state served to local clients.
type Snapshot struct {
	At              time.Time `json:"at"`
	ArchiveSessions int       `json:"archive_sessions"`
	SyncedSessions  int       `json:"synced_sessions"`
	LastSyncAt      time.Time `json:"last_sync_at,omitzero"`
	DroppedSubmits  int64     `json:"dropped_submits"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	DataDir         string    `json:"data_dir"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
}

// Service polls sync state and serves it over a local HTTP API.
type Service struct {
	cfg     Config
	stats   Stats
	archive Archive
	tracker Tracker

	mu         sync.RWMutex
	startedAt  time.Time
	lastPollAt time.Time
	lastError  string
	snapshot   Snapshot
}

// New returns a new status service.
func New(cfg Config, stats Stats, archive Archive, tracker Tracker) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}

	return &Service{
		cfg:       cfg,
		stats:     stats,
		archive:   archive,
		tracker:   tracker,
		startedAt: time.Now(),
	}
}

// Run serves the HTTP endpoints and polls until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce()
		case err := <-errCh:
			return fmt.Errorf("status server: %w", err)
		}
	}
}

func (s *Service) pollOnce() {
	now := time.Now()

	count, err := s.archive.SessionCount()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastPollAt = now
	if err != nil {
		s.lastError = err.Error()
		return
	}
	s.lastError = ""
	s.snapshot = Snapshot{
		At:              now,
		ArchiveSessions: count,
		SyncedSessions:  s.tracker.Count(),
		LastSyncAt:      s.tracker.LastUpdated(),
		DroppedSubmits:  s.stats.Dropped(),
	}
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		DataDir:         s.cfg.DataDir,
		Summary:         s.snapshot,
		LastError:       s.lastError,
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}
