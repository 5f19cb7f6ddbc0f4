// Package pipeline reconstructs complete session and message records
// from the host's partial, out-of-order event stream and forwards each
// logical change to the remote store exactly once per process lifetime.
package pipeline

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okvist/sessync/internal/config"
	"github.com/okvist/sessync/internal/event"
	"github.com/okvist/sessync/internal/model"
)

// DefaultDebounce is the quiet window after a message's last update
// before its buffered state is considered final.
const DefaultDebounce = 800 * time.Millisecond

const defaultQueueSize = 64

// Submitter forwards finalized records to the remote store. Implemented
// by syncer.Client; tests substitute fakes.
type Submitter interface {
	SubmitSession(ctx context.Context, rec model.SessionRecord) error
	SubmitMessage(ctx context.Context, rec model.MessageRecord) error
}

// Options tune the pipeline; zero values select defaults.
type Options struct {
	Debounce  time.Duration
	QueueSize int
}

// Pipeline owns all live-path state: the reconstruction buffers, the
// session statistics, the dedup sets, the debounce scheduler, and the
// bounded background submit queue. Construct one per process; there is
// no package-level state.
type Pipeline struct {
	submitter Submitter
	debounce  time.Duration
	sched     *Scheduler

	mu           sync.Mutex
	buffers      map[string]*bufferEntry
	stats        *Stats
	seenSessions map[string]struct{}
	forwarded    map[string]struct{}
	closed       bool

	queue   chan func(context.Context)
	done    chan struct{}
	dropped atomic.Int64
}

// New starts a pipeline forwarding to the given submitter.
func New(sub Submitter, opts Options) *Pipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	p := &Pipeline{
		submitter:    sub,
		debounce:     opts.Debounce,
		sched:        NewScheduler(),
		buffers:      make(map[string]*bufferEntry),
		stats:        NewStats(),
		seenSessions: make(map[string]struct{}),
		forwarded:    make(map[string]struct{}),
		queue:        make(chan func(context.Context), opts.QueueSize),
		done:         make(chan struct{}),
	}

	go p.worker()
	return p
}

// worker drains the submit queue. Network calls happen only here, so the
// event path never blocks on the transport.
func (p *Pipeline) worker() {
	defer close(p.done)
	for task := range p.queue {
		task(context.Background())
	}
}

// HandleEnvelope normalizes a raw host event and processes it. It never
// returns an error; anything unusable is skipped.
func (p *Pipeline) HandleEnvelope(env event.Envelope) {
	p.Handle(event.Normalize(env))
}

// Handle processes one canonical event.
func (p *Pipeline) Handle(ev event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	switch ev.Kind {
	case event.KindSessionCreated:
		// Exactly one create submit per external ID per process.
		if _, ok := p.seenSessions[ev.Session.ID]; ok {
			return
		}
		p.seenSessions[ev.Session.ID] = struct{}{}
		p.submitSessionLocked(ev.Session)

	case event.KindSessionUpdated, event.KindSessionIdle:
		p.submitSessionLocked(ev.Session)

	case event.KindMessageMeta:
		p.stats.Record(ev.Message)
		e := p.entry(ev.Message.ID)
		e.applyMeta(ev.Message)
		p.scheduleFlush(ev.Message.ID)

	case event.KindMessagePart:
		e := p.entry(ev.Part.MessageID)
		e.applyPart(ev.Part)
		p.scheduleFlush(ev.Part.MessageID)
	}
}

func (p *Pipeline) entry(messageID string) *bufferEntry {
	e, ok := p.buffers[messageID]
	if !ok {
		e = &bufferEntry{}
		p.buffers[messageID] = e
	}
	return e
}

func (p *Pipeline) scheduleFlush(messageID string) {
	p.sched.Schedule(messageID, p.debounce, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.flushLocked(messageID)
	})
}

// flushLocked finalizes a message if it is ready: session known, some
// content present, role resolved (inferred from text when metadata never
// supplied one). A not-yet-ready entry stays buffered for later events.
func (p *Pipeline) flushLocked(messageID string) {
	if p.closed {
		return
	}

	e, ok := p.buffers[messageID]
	if !ok {
		return
	}

	if _, done := p.forwarded[messageID]; done {
		delete(p.buffers, messageID)
		return
	}

	content := strings.TrimSpace(e.text)
	if e.sessionID == "" || (content == "" && len(e.parts) == 0) {
		return
	}

	if e.role == "" || e.role == "unknown" {
		e.role = InferRole(content)
	}

	rec := e.record(messageID, content)
	p.forwarded[messageID] = struct{}{}
	delete(p.buffers, messageID)

	p.enqueueLocked(func(ctx context.Context) {
		if err := p.submitter.SubmitMessage(ctx, rec); err != nil {
			log.Printf("sessync: message %s submit failed: %v", rec.ID, err)
		}
	})
}

// submitSessionLocked builds a create-or-replace session payload from
// the lifecycle event enriched with the current statistics snapshot.
func (p *Pipeline) submitSessionLocked(si event.SessionInfo) {
	snap := p.stats.Snapshot(si.ID)

	title := si.Title
	if title == "" {
		title = model.DefaultTitle
	}

	cost := snap.CostUSD
	if cost == 0 && snap.Model != "" {
		cost = config.CalculateCost(snap.Model, snap.Tokens)
	}

	rec := model.SessionRecord{
		ID:          si.ID,
		Title:       title,
		ProjectPath: si.Directory,
		ProjectName: filepath.Base(si.Directory),
		Model:       snap.Model,
		Provider:    snap.Provider,
		Tokens:      snap.Tokens,
		CostUSD:     cost,
	}
	if rec.ProjectName == "." || rec.ProjectName == string(filepath.Separator) {
		rec.ProjectName = ""
	}
	if si.Created > 0 && si.Updated > si.Created {
		rec.DurationMS = si.Updated - si.Created
	}

	p.enqueueLocked(func(ctx context.Context) {
		if err := p.submitter.SubmitSession(ctx, rec); err != nil {
			log.Printf("sessync: session %s submit failed: %v", rec.ID, err)
		}
	})
}

// enqueueLocked hands a submit task to the background worker. When the
// queue is full the task is dropped and counted; the event path never
// blocks on the backend.
func (p *Pipeline) enqueueLocked(task func(context.Context)) {
	if p.closed {
		return
	}
	select {
	case p.queue <- task:
	default:
		p.dropped.Add(1)
		log.Printf("sessync: submit queue full, dropping request")
	}
}

// Dropped reports how many submit tasks were discarded due to a full queue.
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}

// Drain fires every pending debounce immediately. Used when the event
// source ends so in-flight messages are not silently lost.
func (p *Pipeline) Drain() {
	for _, key := range p.sched.Pending() {
		if p.sched.Cancel(key) {
			p.mu.Lock()
			p.flushLocked(key)
			p.mu.Unlock()
		}
	}
}

// Close stops the scheduler, waits for queued submits to finish, and
// rejects further events.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.sched.Stop()
	close(p.queue)
	<-p.done
}
