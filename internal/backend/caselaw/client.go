// Package caselaw is the CourtListener REST adapter
package caselaw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

// DefaultPageSize is the search page size when none is given
const DefaultPageSize = 10

const maxErrorBody = 512

// Options configures a Client
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables throttling
	HTTP      *http.Client
	Logger    *slog.Logger
}

// Client talks to the CourtListener API. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// SearchRequest filters an opinion search. Empty filters are omitted.
type SearchRequest struct {
	Query      string
	Court      string
	DateFrom   string
	DateTo     string
	MaxResults int
}

// SearchResult is one page of opinion hits
type SearchResult struct {
	Results []any `json:"results"`
	Count   int   `json:"count"`
}

// New creates a client
func New(opts Options) *Client {
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Timeout > 0 {
		clone := *httpClient
		clone.Timeout = opts.Timeout
		httpClient = &clone
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}
}

// Search runs one opinion search
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	const op = "search cases"
	if strings.TrimSpace(req.Query) == "" {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "query is required")
	}
	pageSize := req.MaxResults
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	params := url.Values{}
	params.Set("type", "o")
	params.Set("q", req.Query)
	params.Set("page_size", strconv.Itoa(pageSize))
	if req.Court != "" {
		params.Set("court", req.Court)
	}
	if req.DateFrom != "" {
		params.Set("filed_after", req.DateFrom)
	}
	if req.DateTo != "" {
		params.Set("filed_before", req.DateTo)
	}

	var body map[string]any
	if err := c.do(ctx, op, http.MethodGet, "/search/?"+params.Encode(), nil, &body); err != nil {
		return nil, err
	}

	out := &SearchResult{Results: []any{}}
	if results, ok := body["results"].([]any); ok {
		out.Results = results
	}
	if n, ok := body["count"].(float64); ok {
		out.Count = int(n)
	}
	return out, nil
}

// GetOpinion fetches one opinion, untransformed
func (c *Client) GetOpinion(ctx context.Context, id int64) (map[string]any, error) {
	const op = "get opinion"
	if id <= 0 {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "opinion id must be positive: %d", id)
	}
	var body map[string]any
	if err := c.do(ctx, op, http.MethodGet, fmt.Sprintf("/opinions/%d/", id), nil, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// LookupCitation resolves a citation string. The result is always a list,
// a single object response becomes a one-element list.
func (c *Client) LookupCitation(ctx context.Context, citation string) ([]any, error) {
	const op = "lookup citation"
	if strings.TrimSpace(citation) == "" {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "citation is required")
	}
	form := url.Values{}
	form.Set("text", citation)

	var body any
	if err := c.do(ctx, op, http.MethodPost, "/citation-lookup/", form, &body); err != nil {
		return nil, err
	}
	return normalizeCitations(body), nil
}

func normalizeCitations(body any) []any {
	switch v := body.(type) {
	case []any:
		return v
	case nil:
		return []any{}
	default:
		return []any{v}
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, form url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return backend.FromContext(op, err)
		}
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return backend.E(backend.KindInvalidInput, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("courtlistener request",
		"op", op,
		"method", method,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return backend.Errorf(backend.KindForStatus(resp.StatusCode), op,
			"courtlistener returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backend.E(backend.KindUnknown, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func classifyTransport(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return backend.E(backend.KindTimeout, op, err)
	}
	return backend.FromContext(op, err)
}
