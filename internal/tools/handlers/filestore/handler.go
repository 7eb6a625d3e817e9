// Package filestore provides the RAG file store tool handlers
package filestore

import (
	"context"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend/rag"
	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools"
)

// Client is the RAG backend
type Client interface {
	CreateStore(ctx context.Context, name, displayName string) (*rag.Store, error)
	Upload(ctx context.Context, storeName, filePath string) (*rag.Upload, error)
	Query(ctx context.Context, storeName, query string) (*rag.Answer, error)
}

// Handler implements the file store tools. Every call goes through the
// genai SDK and is marked blocking.
type Handler struct {
	client Client
}

// NewHandler creates a new file store handler
func NewHandler(client Client) *Handler {
	return &Handler{client: client}
}

// Tools returns the file store catalogue entries
func (h *Handler) Tools() []tools.Tool {
	storeName := tools.Param{Name: "store_name", Type: tools.TypeString, Required: true, Description: "File store resource name"}
	return []tools.Tool{
		{
			Name:        config.ToolCreateFileStore,
			Description: "Create a new Gemini file store for document RAG.",
			Params: []tools.Param{
				{Name: "name", Type: tools.TypeString, Required: true, Description: "Unique name for the store"},
				{Name: "display_name", Type: tools.TypeString, Description: "Human-readable display name"},
			},
			Blocking: true,
			Handler:  h.CreateStore,
		},
		{
			Name:        config.ToolUploadToFileStore,
			Description: "Upload a local file to a Gemini file store and wait for indexing.",
			Params: []tools.Param{
				storeName,
				{Name: "file_path", Type: tools.TypeString, Required: true, Description: "Local path to the file"},
			},
			Blocking: true,
			Handler:  h.Upload,
		},
		{
			Name:        config.ToolFileSearchQuery,
			Description: "Query documents in a Gemini file store using RAG.",
			Params: []tools.Param{
				storeName,
				{Name: "query", Type: tools.TypeString, Required: true, Description: "Search query"},
			},
			Blocking: true,
			ReadOnly: true,
			Handler:  h.Query,
		},
	}
}

// CreateStore creates a store
func (h *Handler) CreateStore(ctx context.Context, args tools.Args) (map[string]any, error) {
	store, err := h.client.CreateStore(ctx, args.String("name"), args.String("display_name"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"store_name": store.StoreName, "store_id": store.StoreID}, nil
}

// Upload indexes a file
func (h *Handler) Upload(ctx context.Context, args tools.Args) (map[string]any, error) {
	up, err := h.client.Upload(ctx, args.String("store_name"), args.String("file_path"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"file_id": up.FileID, "file_name": up.FileName, "status": up.Status}, nil
}

// Query answers from a store
func (h *Handler) Query(ctx context.Context, args tools.Args) (map[string]any, error) {
	ans, err := h.client.Query(ctx, args.String("store_name"), args.String("query"))
	if err != nil {
		return nil, err
	}
	citations := ans.Citations
	if citations == nil {
		citations = []rag.Citation{}
	}
	return map[string]any{"answer": ans.Answer, "citations": citations}, nil
}
