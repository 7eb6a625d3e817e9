// Package research runs multi-step web research and writes reports from it.
//
// The Engine composes a Searcher, which answers one query with grounded web
// sources, and a Writer, which plans sub-queries and drafts prose.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

// Finding is a Searcher's answer to one query
type Finding struct {
	Query   string
	Summary string
	Sources []Source
	Cost    float64
}

// Searcher answers a single query with web sources
type Searcher interface {
	Search(ctx context.Context, query string) (*Finding, error)
}

// Completion is a Writer's output
type Completion struct {
	Text string
	Cost float64
}

// Writer generates text from a system and a user prompt. When jsonMode is
// set the reply must be a JSON object.
type Writer interface {
	Complete(ctx context.Context, system, user string, jsonMode bool) (*Completion, error)
}

// EngineOptions configures an Engine
type EngineOptions struct {
	MaxSubQueries int
	Logger        *slog.Logger
}

// Engine is the research backend
type Engine struct {
	searcher      Searcher
	writer        Writer
	maxSubQueries int
	logger        *slog.Logger
}

// NewEngine creates an engine
func NewEngine(searcher Searcher, writer Writer, opts EngineOptions) *Engine {
	if opts.MaxSubQueries <= 0 {
		opts.MaxSubQueries = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		searcher:      searcher,
		writer:        writer,
		maxSubQueries: opts.MaxSubQueries,
		logger:        opts.Logger,
	}
}

const planSystemPrompt = `You are a legal research planner. Break the user's research question into focused web search queries.
Reply with a JSON object of the form {"queries": ["..."]} and nothing else.`

const reportSystemPrompt = `You are a legal research analyst writing for attorneys. Produce a well-structured markdown report with headings, cite sources inline by URL, and finish with a references section.`

// Conduct plans sub-queries, searches them concurrently and assembles the
// findings into a research context. Sources are de-duplicated by URL in the
// order they were found.
func (e *Engine) Conduct(ctx context.Context, query string) (*Result, error) {
	const op = "conduct research"
	if strings.TrimSpace(query) == "" {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "query is required")
	}

	queries, planCost := e.plan(ctx, query)

	findings := make([]*Finding, len(queries))
	var (
		mu       sync.Mutex
		firstErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxSubQueries)
	for i, q := range queries {
		g.Go(func() error {
			f, err := e.searcher.Search(gctx, q)
			if err != nil {
				e.logger.Warn("sub-query failed", "query", q, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			findings[i] = f
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Query: query, Costs: planCost}
	seen := make(map[string]bool)
	var sections []string
	for _, f := range findings {
		if f == nil {
			continue
		}
		res.Costs += f.Cost
		if strings.TrimSpace(f.Summary) != "" {
			sections = append(sections, fmt.Sprintf("### %s\n\n%s", f.Query, strings.TrimSpace(f.Summary)))
		}
		for _, s := range f.Sources {
			if s.URL == "" || seen[s.URL] {
				continue
			}
			seen[s.URL] = true
			res.Sources = append(res.Sources, s)
			res.SourceURLs = append(res.SourceURLs, s.URL)
		}
	}
	if len(sections) == 0 {
		if firstErr != nil {
			return nil, classify(op, firstErr)
		}
		return nil, backend.Errorf(backend.KindNotFound, op, "no findings for %q", query)
	}
	res.Context = strings.Join(sections, "\n\n")
	if res.Sources == nil {
		res.Sources = []Source{}
		res.SourceURLs = []string{}
	}
	return res, nil
}

// plan asks the writer for sub-queries. The original query always comes
// first; planning failures fall back to it alone.
func (e *Engine) plan(ctx context.Context, query string) ([]string, float64) {
	queries := []string{query}
	if e.maxSubQueries <= 1 {
		return queries, 0
	}
	prompt := fmt.Sprintf("Research question: %s\nReturn at most %d queries.", query, e.maxSubQueries-1)
	out, err := e.writer.Complete(ctx, planSystemPrompt, prompt, true)
	if err != nil {
		e.logger.Warn("research planning failed, using the query alone", "error", err)
		return queries, 0
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(out.Text), &parsed); err != nil {
		e.logger.Warn("unparseable research plan", "error", err)
		return queries, out.Cost
	}
	seen := map[string]bool{query: true}
	for _, q := range parsed.Queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
		if len(queries) == e.maxSubQueries {
			break
		}
	}
	return queries, out.Cost
}

// QuickSearch runs one search and returns its sources as results. An answer
// that cites nothing is returned as a single result carrying the answer text.
func (e *Engine) QuickSearch(ctx context.Context, query string) ([]SearchResult, error) {
	const op = "quick search"
	if strings.TrimSpace(query) == "" {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "query is required")
	}
	f, err := e.searcher.Search(ctx, query)
	if err != nil {
		return nil, classify(op, err)
	}
	results := make([]SearchResult, 0, len(f.Sources))
	for _, s := range f.Sources {
		results = append(results, SearchResult{Title: s.Title, URL: s.URL, Snippet: s.Content})
	}
	if len(results) == 0 && strings.TrimSpace(f.Summary) != "" {
		results = append(results, SearchResult{Title: query, Snippet: strings.TrimSpace(f.Summary)})
	}
	return results, nil
}

// WebAnswer is a direct grounded answer to a query
type WebAnswer struct {
	Answer  string
	Results []SearchResult
}

// WebSearch answers query in one grounded call
func (e *Engine) WebSearch(ctx context.Context, query string) (*WebAnswer, error) {
	const op = "web search"
	if strings.TrimSpace(query) == "" {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "query is required")
	}
	f, err := e.searcher.Search(ctx, query)
	if err != nil {
		return nil, classify(op, err)
	}
	out := &WebAnswer{Answer: f.Summary, Results: make([]SearchResult, 0, len(f.Sources))}
	for _, s := range f.Sources {
		out.Results = append(out.Results, SearchResult{Title: s.Title, URL: s.URL, Snippet: s.Content})
	}
	return out, nil
}

// WriteReport drafts a report from a completed research result. A custom
// prompt replaces the default report instructions.
func (e *Engine) WriteReport(ctx context.Context, res *Result, customPrompt string) (*Report, error) {
	const op = "write report"
	if res == nil {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "no research result")
	}

	instructions := strings.TrimSpace(customPrompt)
	if instructions == "" {
		instructions = fmt.Sprintf("Write a detailed research report answering: %s", res.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n## Research context\n\n%s\n\n## Sources\n", instructions, res.Context)
	for i, s := range res.Sources {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, s.Title, s.URL)
	}

	out, err := e.writer.Complete(ctx, reportSystemPrompt, b.String(), false)
	if err != nil {
		return nil, classify(op, err)
	}
	return &Report{Text: out.Text, Costs: res.Costs + out.Cost}, nil
}

func classify(op string, err error) error {
	var be *backend.Error
	if errors.As(err, &be) {
		return err
	}
	return backend.FromContext(op, err)
}

// Unavailable is a Searcher that always fails as backend_unavailable. It
// stands in when no search backend is configured.
type Unavailable struct {
	Reason string
}

// Search implements Searcher
func (u Unavailable) Search(context.Context, string) (*Finding, error) {
	return nil, backend.Errorf(backend.KindBackendUnavailable, "search", "web search is not configured: %s", u.Reason)
}
