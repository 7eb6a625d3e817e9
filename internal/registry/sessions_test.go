package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestBeginReturnsDistinctIDs(t *testing.T) {
	s := NewSessions[string](SessionOptions{})
	defer s.Close()

	const n = 200
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids <- s.Begin(fmt.Sprintf("query %d", i))
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, s.Len())
}

func TestBeginRetriesOnIDCollision(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	var i int
	s := NewSessions[string](SessionOptions{newID: func() string {
		id := ids[i]
		i++
		return id
	}})
	defer s.Close()

	assert.Equal(t, "dup", s.Begin("a"))
	assert.Equal(t, "fresh", s.Begin("b"))
}

func TestLookupUnknown(t *testing.T) {
	s := NewSessions[string](SessionOptions{})
	defer s.Close()

	handle, ok, failure := s.Lookup("missing")
	assert.False(t, ok)
	assert.Empty(t, handle)
	require.False(t, failure.OK())
	assert.Equal(t, backend.KindNotFound, failure.Failure().Kind)
	assert.Equal(t, MsgSessionNotFound, failure.Failure().Message)
}

func TestPendingIsDistinctFromUnknown(t *testing.T) {
	s := NewSessions[string](SessionOptions{})
	defer s.Close()

	id := s.Begin("contract law")

	state, ok := status(s, id)
	require.True(t, ok)
	assert.Equal(t, StatePending, state)

	_, ok, failure := s.Lookup(id)
	assert.False(t, ok)
	assert.Equal(t, backend.KindNotReady, failure.Failure().Kind)
	assert.Equal(t, MsgSessionNotReady, failure.Failure().Message)
}

func TestAttachCompletesSession(t *testing.T) {
	s := NewSessions[string](SessionOptions{})
	defer s.Close()

	id := s.Begin("q")
	require.NoError(t, s.Attach(id, "handle"))

	handle, ok, _ := s.Lookup(id)
	assert.True(t, ok)
	assert.Equal(t, "handle", handle)

	sess, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "q", sess.Query)
	assert.Equal(t, StateComplete, sess.State)
}

func TestSecondAttachIsRejected(t *testing.T) {
	s := NewSessions[string](SessionOptions{})
	defer s.Close()

	id := s.Begin("q")
	require.NoError(t, s.Attach(id, "first"))

	err := s.Attach(id, "second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyResolved))

	handle, ok, _ := s.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, "first", handle)
}

func TestAttachUnknown(t *testing.T) {
	s := NewSessions[string](SessionOptions{})
	defer s.Close()

	err := s.Attach("nope", "h")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, backend.KindNotFound, backend.KindOf(err))
	assert.Equal(t, 0, s.Len())
}

func TestFailRecordsCause(t *testing.T) {
	s := NewSessions[string](SessionOptions{})
	defer s.Close()

	id := s.Begin("q")
	require.NoError(t, s.Fail(id, backend.E(backend.KindBackendUnavailable, "search", errors.New("503"))))

	state, _ := status(s, id)
	assert.Equal(t, StateFailed, state)

	_, ok, failure := s.Lookup(id)
	assert.False(t, ok)
	assert.Equal(t, backend.KindBackendUnavailable, failure.Failure().Kind)
	assert.Contains(t, failure.Failure().Message, "503")

	assert.ErrorIs(t, s.Attach(id, "late"), ErrAlreadyResolved)
}

func TestResolvedSessionsExpire(t *testing.T) {
	clock := newFakeClock()
	s := NewSessions[string](SessionOptions{TTL: time.Hour, now: clock.Now})
	defer s.Close()

	done := s.Begin("done")
	require.NoError(t, s.Attach(done, "h"))
	pending := s.Begin("pending")

	clock.Advance(2 * time.Hour)

	_, ok, failure := s.Lookup(done)
	assert.False(t, ok)
	assert.Equal(t, backend.KindNotFound, failure.Failure().Kind)

	state, ok := status(s, pending)
	require.True(t, ok)
	assert.Equal(t, StatePending, state)
}

func TestCleanupRemovesExpired(t *testing.T) {
	clock := newFakeClock()
	s := NewSessions[string](SessionOptions{TTL: time.Minute, now: clock.Now})
	defer s.Close()

	for i := 0; i < 5; i++ {
		id := s.Begin("q")
		require.NoError(t, s.Attach(id, "h"))
	}
	s.Begin("still running")
	clock.Advance(time.Hour)

	s.cleanup()
	assert.Equal(t, 1, s.Len())
}

func TestMaxEntriesEvictsOldestResolved(t *testing.T) {
	clock := newFakeClock()
	s := NewSessions[string](SessionOptions{MaxEntries: 2, now: clock.Now})
	defer s.Close()

	first := s.Begin("first")
	require.NoError(t, s.Attach(first, "h1"))
	clock.Advance(time.Second)
	second := s.Begin("second")
	require.NoError(t, s.Attach(second, "h2"))
	clock.Advance(time.Second)

	third := s.Begin("third")

	assert.Equal(t, 2, s.Len())
	_, ok := status(s, first)
	assert.False(t, ok)
	_, ok = status(s, second)
	assert.True(t, ok)
	_, ok = status(s, third)
	assert.True(t, ok)
}

func TestMaxEntriesNeverEvictsPending(t *testing.T) {
	s := NewSessions[string](SessionOptions{MaxEntries: 1})
	defer s.Close()

	a := s.Begin("a")
	b := s.Begin("b")

	assert.Equal(t, 2, s.Len())
	for _, id := range []string{a, b} {
		state, ok := status(s, id)
		require.True(t, ok)
		assert.Equal(t, StatePending, state)
	}
}

func TestConcurrentReadsDuringAttach(t *testing.T) {
	s := NewSessions[int](SessionOptions{})
	defer s.Close()

	id := s.Begin("q")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, ok, failure := s.Lookup(id)
			if ok {
				assert.Equal(t, 42, h)
				return
			}
			assert.Equal(t, backend.KindNotReady, failure.Failure().Kind)
		}()
	}
	require.NoError(t, s.Attach(id, 42))
	wg.Wait()
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewSessions[string](SessionOptions{TTL: time.Minute, CleanupInterval: time.Millisecond})
	s.Close()
	s.Close()
}

func status[H any](s *Sessions[H], id string) (State, bool) {
	sess, ok := s.Get(id)
	return sess.State, ok
}
