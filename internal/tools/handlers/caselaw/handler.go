// Package caselaw provides the CourtListener tool handlers
package caselaw

import (
	"context"
	"time"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
	"github.com/AltairaLabs/legalhub-mcp/internal/backend/caselaw"
	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools"
)

const dateLayout = "2006-01-02"

// Client is the case-law backend
type Client interface {
	Search(ctx context.Context, req caselaw.SearchRequest) (*caselaw.SearchResult, error)
	GetOpinion(ctx context.Context, id int64) (map[string]any, error)
	LookupCitation(ctx context.Context, citation string) ([]any, error)
}

// Handler implements the case-law tools
type Handler struct {
	client Client
}

// NewHandler creates a new case-law handler
func NewHandler(client Client) *Handler {
	return &Handler{client: client}
}

// Tools returns the case-law catalogue entries
func (h *Handler) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Name:        config.ToolSearchCases,
			Description: "Search legal cases by keyword, party name, or citation.",
			Params: []tools.Param{
				{Name: "query", Type: tools.TypeString, Required: true, Description: "Search query (keyword, party name, or citation)"},
				{Name: "court", Type: tools.TypeString, Description: "Court ID to filter by (e.g. 'scotus', 'ca9')"},
				{Name: "date_from", Type: tools.TypeString, Description: "Start date filter (YYYY-MM-DD)"},
				{Name: "date_to", Type: tools.TypeString, Description: "End date filter (YYYY-MM-DD)"},
				{Name: "max_results", Type: tools.TypeInteger, Default: int64(config.DefaultMaxResults), Description: "Maximum results to return"},
			},
			ReadOnly: true,
			Handler:  h.SearchCases,
		},
		{
			Name:        config.ToolGetOpinion,
			Description: "Retrieve the full text of a legal opinion by its ID.",
			Params: []tools.Param{
				{Name: "opinion_id", Type: tools.TypeInteger, Required: true, Description: "CourtListener opinion ID"},
			},
			ReadOnly: true,
			Handler:  h.GetOpinion,
		},
		{
			Name:        config.ToolLookupCitation,
			Description: "Look up a legal citation and return the matching cases.",
			Params: []tools.Param{
				{Name: "citation", Type: tools.TypeString, Required: true, Description: "Legal citation (e.g. '384 U.S. 436')"},
			},
			ReadOnly: true,
			Handler:  h.LookupCitation,
		},
	}
}

// SearchCases searches opinions
func (h *Handler) SearchCases(ctx context.Context, args tools.Args) (map[string]any, error) {
	const op = config.ToolSearchCases
	for _, name := range []string{"date_from", "date_to"} {
		if v := args.String(name); v != "" {
			if _, err := time.Parse(dateLayout, v); err != nil {
				return nil, backend.Errorf(backend.KindInvalidInput, op, "%s must be a date in YYYY-MM-DD form: %q", name, v)
			}
		}
	}
	maxResults := args.Int("max_results")
	if maxResults < 1 {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "max_results must be at least 1")
	}

	res, err := h.client.Search(ctx, caselaw.SearchRequest{
		Query:      args.String("query"),
		Court:      args.String("court"),
		DateFrom:   args.String("date_from"),
		DateTo:     args.String("date_to"),
		MaxResults: int(maxResults),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": res.Results, "count": res.Count}, nil
}

// GetOpinion returns the opinion object as the payload
func (h *Handler) GetOpinion(ctx context.Context, args tools.Args) (map[string]any, error) {
	return h.client.GetOpinion(ctx, args.Int("opinion_id"))
}

// LookupCitation resolves a citation
func (h *Handler) LookupCitation(ctx context.Context, args tools.Args) (map[string]any, error) {
	citations, err := h.client.LookupCitation(ctx, args.String("citation"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"citations": citations}, nil
}
