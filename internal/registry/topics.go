package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// TopicSource is one cited source of a cached bundle
type TopicSource struct {
	Title string
	URL   string
}

// TopicEntry is a cached research bundle. All fields are populated together.
type TopicEntry struct {
	Topic      string
	Context    string
	Sources    []TopicSource
	SourceURLs []string
	Formatted  string
	CachedAt   time.Time
}

// TopicOptions bounds the topic cache. Zero values disable the bound.
type TopicOptions struct {
	TTL        time.Duration
	MaxEntries int

	now func() time.Time
}

// Topics caches completed research keyed by the exact topic string
type Topics struct {
	mu  sync.Mutex
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

// NewTopics creates a topic cache
func NewTopics(opts TopicOptions) *Topics {
	if opts.now == nil {
		opts.now = time.Now
	}
	return &Topics{
		lru: lru.New(opts.MaxEntries),
		ttl: opts.TTL,
		now: opts.now,
	}
}

// Put stores a bundle for topic, precomputing its formatted text
func (t *Topics) Put(topic, context string, sources []TopicSource, sourceURLs []string) TopicEntry {
	entry := TopicEntry{
		Topic:      topic,
		Context:    context,
		Sources:    append([]TopicSource(nil), sources...),
		SourceURLs: append([]string(nil), sourceURLs...),
		Formatted:  FormatContext(topic, context, sources),
		CachedAt:   t.now(),
	}

	t.mu.Lock()
	t.lru.Add(topic, entry)
	t.mu.Unlock()

	return entry.clone()
}

// Get returns the bundle cached for topic. Expired entries are dropped.
func (t *Topics) Get(topic string) (TopicEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.lru.Get(topic)
	if !ok {
		return TopicEntry{}, false
	}
	entry := v.(TopicEntry)
	if t.ttl > 0 && t.now().Sub(entry.CachedAt) > t.ttl {
		t.lru.Remove(topic)
		return TopicEntry{}, false
	}
	return entry.clone(), true
}

// Len returns the number of cached topics, expired ones included
func (t *Topics) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lru.Len()
}

func (e TopicEntry) clone() TopicEntry {
	e.Sources = append([]TopicSource(nil), e.Sources...)
	e.SourceURLs = append([]string(nil), e.SourceURLs...)
	return e
}

// FormatContext renders research context followed by a numbered source list
func FormatContext(topic, context string, sources []TopicSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Research: %s\n\n%s\n\n## Sources:\n", topic, context)
	for i, s := range sources {
		title := s.Title
		if title == "" {
			title = "Unknown"
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, title, s.URL)
	}
	return b.String()
}
