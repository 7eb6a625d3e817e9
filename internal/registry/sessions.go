// Package registry tracks research sessions and caches completed research by
// topic. Both stores are process-local, safe for concurrent use and bounded.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
	"github.com/AltairaLabs/legalhub-mcp/internal/envelope"
)

// State is the lifecycle position of a session
type State string

const (
	StatePending  State = "pending"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

const (
	// MsgSessionNotFound is returned for unknown or expired session IDs
	MsgSessionNotFound = "Research ID not found. Please conduct research first."
	// MsgSessionNotReady is returned while research for the ID is still running
	MsgSessionNotReady = "Research for this ID is still in progress. Try again once it completes."
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrAlreadyResolved = errors.New("session already resolved")
)

// Session is a research query and, once complete, its result handle
type Session[H any] struct {
	ID        string
	Query     string
	State     State
	Handle    H
	Err       error
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionOptions bounds the registry. Zero values disable the bound.
type SessionOptions struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration

	now   func() time.Time
	newID func() string
}

// Sessions is the session registry
type Sessions[H any] struct {
	items *xsync.MapOf[string, Session[H]]
	opts  SessionOptions

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSessions creates a registry. A cleanup goroutine runs while TTL is set;
// call Close to stop it.
func NewSessions[H any](opts SessionOptions) *Sessions[H] {
	if opts.now == nil {
		opts.now = time.Now
	}
	if opts.newID == nil {
		opts.newID = uuid.NewString
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}
	s := &Sessions[H]{
		items: xsync.NewMapOf[string, Session[H]](),
		opts:  opts,
		done:  make(chan struct{}),
	}
	if opts.TTL > 0 {
		s.wg.Add(1)
		go s.cleanupLoop()
	}
	return s
}

// Begin stores a pending session for query and returns its ID
func (s *Sessions[H]) Begin(query string) string {
	if s.opts.MaxEntries > 0 && s.items.Size() >= s.opts.MaxEntries {
		s.evictOldestResolved()
	}
	now := s.opts.now()
	for {
		id := s.opts.newID()
		_, loaded := s.items.LoadOrStore(id, Session[H]{
			ID:        id,
			Query:     query,
			State:     StatePending,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if !loaded {
			return id
		}
	}
}

// Attach completes a pending session with its result handle. Unknown IDs
// yield a not-found error; a session that is no longer pending yields
// ErrAlreadyResolved and is left untouched.
func (s *Sessions[H]) Attach(id string, handle H) error {
	return s.resolve(id, func(sess *Session[H]) {
		sess.State = StateComplete
		sess.Handle = handle
	})
}

// Fail marks a pending session as failed with cause
func (s *Sessions[H]) Fail(id string, cause error) error {
	if cause == nil {
		cause = errors.New("research failed")
	}
	return s.resolve(id, func(sess *Session[H]) {
		sess.State = StateFailed
		sess.Err = cause
	})
}

func (s *Sessions[H]) resolve(id string, apply func(*Session[H])) error {
	var transitionErr error
	s.items.Compute(id, func(old Session[H], loaded bool) (Session[H], bool) {
		if !loaded {
			transitionErr = backend.E(backend.KindNotFound, "resolve session", fmt.Errorf("%w: %s", ErrNotFound, id))
			return old, true
		}
		if old.State != StatePending {
			transitionErr = fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, old.State)
			return old, false
		}
		apply(&old)
		old.UpdatedAt = s.opts.now()
		return old, false
	})
	return transitionErr
}

// Lookup returns the handle of a complete session. Otherwise ok is false and
// failure is a ready-made envelope: not_found for unknown or expired IDs,
// not_ready while pending, and the recorded cause for failed sessions.
// The envelope carries no tool name; handlers return failure.Err() and the
// dispatcher attributes it.
func (s *Sessions[H]) Lookup(id string) (handle H, ok bool, failure envelope.Envelope) {
	sess, found := s.load(id)
	if !found {
		return handle, false, envelope.Fail("", backend.KindNotFound, MsgSessionNotFound)
	}
	switch sess.State {
	case StatePending:
		return handle, false, envelope.Fail("", backend.KindNotReady, MsgSessionNotReady)
	case StateFailed:
		return handle, false, envelope.Fail("", backend.KindOf(sess.Err), fmt.Sprintf("Research failed: %v", sess.Err))
	}
	return sess.Handle, true, envelope.Envelope{}
}

// Get returns a copy of the session record
func (s *Sessions[H]) Get(id string) (Session[H], bool) {
	return s.load(id)
}

// Len returns the number of tracked sessions
func (s *Sessions[H]) Len() int {
	return s.items.Size()
}

// Close stops the cleanup goroutine
func (s *Sessions[H]) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *Sessions[H]) load(id string) (Session[H], bool) {
	sess, ok := s.items.Load(id)
	if !ok {
		return sess, false
	}
	if s.expired(sess, s.opts.now()) {
		s.items.Delete(id)
		return Session[H]{}, false
	}
	return sess, true
}

// expired reports whether a resolved session has outlived the TTL. Pending
// sessions never expire; their research is still running.
func (s *Sessions[H]) expired(sess Session[H], now time.Time) bool {
	if s.opts.TTL <= 0 || sess.State == StatePending {
		return false
	}
	return now.Sub(sess.UpdatedAt) > s.opts.TTL
}

// evictOldestResolved drops the least recently updated non-pending session.
// When every session is pending nothing is evicted.
func (s *Sessions[H]) evictOldestResolved() {
	var (
		oldestID string
		oldestAt time.Time
	)
	s.items.Range(func(id string, sess Session[H]) bool {
		if sess.State == StatePending {
			return true
		}
		if oldestID == "" || sess.UpdatedAt.Before(oldestAt) {
			oldestID, oldestAt = id, sess.UpdatedAt
		}
		return true
	})
	if oldestID != "" {
		s.items.Delete(oldestID)
	}
}

func (s *Sessions[H]) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

func (s *Sessions[H]) cleanup() {
	now := s.opts.now()
	s.items.Range(func(id string, sess Session[H]) bool {
		if s.expired(sess, now) {
			s.items.Delete(id)
		}
		return true
	})
}
