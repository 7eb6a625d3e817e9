// Package storage provides the report storage tool handler
package storage

import (
	"context"
	"net/url"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend/blobstore"
	"github.com/AltairaLabs/legalhub-mcp/internal/backend/research"
	"github.com/AltairaLabs/legalhub-mcp/internal/envelope"
	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools"
)

// Store is the object storage backend
type Store interface {
	Upload(ctx context.Context, req blobstore.UploadRequest) (*blobstore.UploadResult, error)
}

// SessionReader resolves research IDs to completed results
type SessionReader interface {
	Lookup(id string) (*research.Result, bool, envelope.Envelope)
}

// Handler implements save_report_to_s3
type Handler struct {
	store    Store
	sessions SessionReader
}

// NewHandler creates a new storage handler
func NewHandler(store Store, sessions SessionReader) *Handler {
	return &Handler{store: store, sessions: sessions}
}

// Tools returns the storage catalogue entries
func (h *Handler) Tools() []tools.Tool {
	return []tools.Tool{{
		Name:        config.ToolSaveReportToS3,
		Description: "Save a research report to S3 as markdown and return its location.",
		Params: []tools.Param{
			{Name: "report", Type: tools.TypeString, Required: true, Description: "Report text (markdown)"},
			{Name: "bucket", Type: tools.TypeString, Description: "Target bucket; defaults to the configured bucket"},
			{Name: "key", Type: tools.TypeString, Description: "Object key; generated from the date when omitted"},
			{Name: "research_id", Type: tools.TypeString, Description: "Research session the report came from"},
		},
		Blocking: true,
		Handler:  h.SaveReport,
	}}
}

// SaveReport uploads the report. A research_id adds the session's query as
// object metadata; it must name a completed session.
func (h *Handler) SaveReport(ctx context.Context, args tools.Args) (map[string]any, error) {
	req := blobstore.UploadRequest{
		Content: args.String("report"),
		Bucket:  args.String("bucket"),
		Key:     args.String("key"),
	}
	if id := args.String("research_id"); id != "" {
		res, ok, failure := h.sessions.Lookup(id)
		if !ok {
			return nil, failure.Err()
		}
		// header values must be ASCII
		req.Metadata = map[string]string{
			"research-id":    id,
			"research-query": url.QueryEscape(res.Query),
		}
	}

	res, err := h.store.Upload(ctx, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"s3_uri":     res.URI,
		"key":        res.Key,
		"version_id": res.VersionID,
	}, nil
}
