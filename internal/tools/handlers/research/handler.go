// Package research provides the research tool handlers: deep research with
// session tracking, quick and web search, report writing, session readers
// and the topic resource read path.
package research

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	rs "github.com/AltairaLabs/legalhub-mcp/internal/backend/research"
	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/registry"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools"
	"github.com/AltairaLabs/legalhub-mcp/internal/workpool"
)

// Engine is the research backend
type Engine interface {
	Conduct(ctx context.Context, query string) (*rs.Result, error)
	QuickSearch(ctx context.Context, query string) ([]rs.SearchResult, error)
	WebSearch(ctx context.Context, query string) (*rs.WebAnswer, error)
	WriteReport(ctx context.Context, res *rs.Result, customPrompt string) (*rs.Report, error)
}

// Sessions is the registry of research sessions
type Sessions = registry.Sessions[*rs.Result]

// Handler implements the research tools
type Handler struct {
	engine   Engine
	sessions *Sessions
	topics   *registry.Topics
	pool     *workpool.Pool
	logger   *slog.Logger

	inflight singleflight.Group
	newID    func() string
}

// NewHandler creates a research handler. pool runs resource reads; it may be
// nil, in which case they run on the caller's goroutine.
func NewHandler(engine Engine, sessions *Sessions, topics *registry.Topics, pool *workpool.Pool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   engine,
		sessions: sessions,
		topics:   topics,
		pool:     pool,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Tools returns the research catalogue entries
func (h *Handler) Tools() []tools.Tool {
	researchID := tools.Param{
		Name:        "research_id",
		Type:        tools.TypeString,
		Description: "ID returned by deep_research",
		Required:    true,
	}
	query := func(desc string) tools.Param {
		return tools.Param{Name: "query", Type: tools.TypeString, Description: desc, Required: true}
	}

	return []tools.Tool{
		{
			Name: config.ToolDeepResearch,
			Description: "Conduct deep web research on a query. Use this for time-sensitive or " +
				"specific information. Returns a research_id plus the research context and sources.",
			Params:   []tools.Param{query("The research query or topic")},
			Blocking: true,
			Handler:  h.DeepResearch,
		},
		{
			Name: config.ToolQuickSearch,
			Description: "Perform a quick web search and return results with snippets. " +
				"Optimised for speed over depth.",
			Params:   []tools.Param{query("The search query")},
			Blocking: true,
			ReadOnly: true,
			Handler:  h.QuickSearch,
		},
		{
			Name:        config.ToolWriteReport,
			Description: "Generate a report from previously conducted research.",
			Params: []tools.Param{
				researchID,
				{Name: "custom_prompt", Type: tools.TypeString, Description: "Optional instructions that replace the default report prompt"},
			},
			Blocking: true,
			Handler:  h.WriteReport,
		},
		{
			Name:        config.ToolGetResearchSources,
			Description: "Get the sources used in a research session.",
			Params:      []tools.Param{researchID},
			ReadOnly:    true,
			Handler:     h.GetSources,
		},
		{
			Name:        config.ToolGetResearchContext,
			Description: "Get the full context of a research session.",
			Params:      []tools.Param{researchID},
			ReadOnly:    true,
			Handler:     h.GetContext,
		},
		{
			Name:        config.ToolWebSearch,
			Description: "Answer a query from a single grounded web search, with the pages used.",
			Params:      []tools.Param{query("The question to search the web for")},
			Blocking:    true,
			ReadOnly:    true,
			Handler:     h.WebSearch,
		},
	}
}

// DeepResearch opens a session, runs the research and attaches the result.
// The result is also cached under the query for the resource read path.
func (h *Handler) DeepResearch(ctx context.Context, args tools.Args) (map[string]any, error) {
	query := args.String("query")
	id := h.sessions.Begin(query)
	h.logger.Info("research started", "research_id", id, "query", query)

	res, err := h.engine.Conduct(ctx, query)
	if err != nil {
		if ferr := h.sessions.Fail(id, err); ferr != nil {
			h.logger.Warn("could not record research failure", "research_id", id, "error", ferr)
		}
		return nil, err
	}
	if err := h.sessions.Attach(id, res); err != nil {
		return nil, err
	}
	h.cache(query, res)
	h.logger.Info("research completed", "research_id", id, "sources", len(res.Sources))

	return map[string]any{
		"research_id":  id,
		"query":        query,
		"source_count": len(res.Sources),
		"context":      res.Context,
		"sources":      rs.Summarize(res.Sources),
		"source_urls":  res.SourceURLs,
	}, nil
}

// QuickSearch runs a single search
func (h *Handler) QuickSearch(ctx context.Context, args tools.Args) (map[string]any, error) {
	query := args.String("query")
	results, err := h.engine.QuickSearch(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"search_id":      h.newID(),
		"query":          query,
		"result_count":   len(results),
		"search_results": results,
	}, nil
}

// WebSearch answers a query from one grounded search
func (h *Handler) WebSearch(ctx context.Context, args tools.Args) (map[string]any, error) {
	query := args.String("query")
	answer, err := h.engine.WebSearch(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"query":        query,
		"answer":       answer.Answer,
		"result_count": len(answer.Results),
		"results":      answer.Results,
	}, nil
}

// WriteReport drafts a report for a completed session
func (h *Handler) WriteReport(ctx context.Context, args tools.Args) (map[string]any, error) {
	res, err := h.lookup(args)
	if err != nil {
		return nil, err
	}
	report, err := h.engine.WriteReport(ctx, res, args.String("custom_prompt"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"report":       report.Text,
		"source_count": len(res.Sources),
		"costs":        report.Costs,
	}, nil
}

// GetSources returns the sources of a completed session
func (h *Handler) GetSources(_ context.Context, args tools.Args) (map[string]any, error) {
	res, err := h.lookup(args)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"sources":     rs.Summarize(res.Sources),
		"source_urls": res.SourceURLs,
	}, nil
}

// GetContext returns the context of a completed session
func (h *Handler) GetContext(_ context.Context, args tools.Args) (map[string]any, error) {
	res, err := h.lookup(args)
	if err != nil {
		return nil, err
	}
	return map[string]any{"context": res.Context}, nil
}

func (h *Handler) lookup(args tools.Args) (*rs.Result, error) {
	res, ok, failure := h.sessions.Lookup(args.String("research_id"))
	if !ok {
		return nil, failure.Err()
	}
	return res, nil
}

// ReadTopic returns the formatted research for topic, serving the cache when
// it can. Concurrent reads of the same uncached topic share one research run.
func (h *Handler) ReadTopic(ctx context.Context, topic string) (string, error) {
	if entry, ok := h.topics.Get(topic); ok {
		h.logger.Debug("topic served from cache", "topic", topic)
		return entry.Formatted, nil
	}

	ch := h.inflight.DoChan(topic, func() (any, error) {
		return h.research(ctx, topic)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (h *Handler) research(ctx context.Context, topic string) (string, error) {
	// detached: the flight outlives whichever caller started it
	ctx = context.WithoutCancel(ctx)
	run := func(ctx context.Context) (string, error) {
		res, err := h.engine.Conduct(ctx, topic)
		if err != nil {
			return "", err
		}
		return h.cache(topic, res).Formatted, nil
	}
	if h.pool == nil {
		return run(ctx)
	}
	return workpool.Run(ctx, h.pool, "research_resource", run)
}

func (h *Handler) cache(topic string, res *rs.Result) registry.TopicEntry {
	sources := make([]registry.TopicSource, len(res.Sources))
	for i, s := range res.Sources {
		sources[i] = registry.TopicSource{Title: s.Title, URL: s.URL}
	}
	return h.topics.Put(topic, res.Context, sources, res.SourceURLs)
}
