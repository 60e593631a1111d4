package search

import (
	"context"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arxivite/search-service/internal/domain"
)

// DefaultTrackedSessions bounds how many sessions a Tracker remembers.
const DefaultTrackedSessions = 10000

// Tracker issues a generation token per search and session. Starting a
// search cancels the session's previous in-flight search, and IsCurrent
// tells a finishing search whether it is still the latest one.
type Tracker struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *generation]
}

type generation struct {
	id     string
	cancel context.CancelCauseFunc
	done   bool
}

// NewTracker creates a Tracker remembering up to size sessions. A
// non-positive size uses DefaultTrackedSessions.
func NewTracker(size int) *Tracker {
	if size <= 0 {
		size = DefaultTrackedSessions
	}
	sessions, _ := lru.New[string, *generation](size)
	return &Tracker{sessions: sessions}
}

// Begin starts a search for session and returns its context, generation
// token and a release function the caller must invoke when done. The
// previous search of the same session is cancelled with cause
// domain.ErrSuperseded. An empty session is never tracked.
func (t *Tracker) Begin(ctx context.Context, session string) (context.Context, string, func()) {
	runCtx, cancel := context.WithCancelCause(ctx)
	id := uuid.NewString()

	if session == "" {
		return runCtx, id, func() { cancel(nil) }
	}

	gen := &generation{id: id, cancel: cancel}

	t.mu.Lock()
	if prev, ok := t.sessions.Get(session); ok && !prev.done {
		prev.cancel(domain.ErrSuperseded)
	}
	t.sessions.Add(session, gen)
	t.mu.Unlock()

	release := func() {
		t.mu.Lock()
		gen.done = true
		t.mu.Unlock()
		cancel(nil)
	}
	return runCtx, id, release
}

// IsCurrent reports whether id is the latest generation started for
// session. Untracked and forgotten sessions are always current.
func (t *Tracker) IsCurrent(session, id string) bool {
	if session == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.sessions.Peek(session)
	return !ok || cur.id == id
}

// Active returns the number of sessions with a search in flight.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, gen := range t.sessions.Values() {
		if !gen.done {
			n++
		}
	}
	return n
}
