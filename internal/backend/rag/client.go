// Package rag is the Gemini File Search adapter: create stores, upload
// documents into them and ask grounded questions.
package rag

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/genai"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
	"github.com/AltairaLabs/legalhub-mcp/internal/backend/gemini"
)

// DefaultModel answers file search queries
const DefaultModel = "gemini-2.5-flash"

// UnknownFileName stands in for a citation without a source name
const UnknownFileName = "unknown"

// StatusCompleted is reported once an upload has been indexed
const StatusCompleted = "completed"

var errStillRunning = errors.New("operation still running")

// fileSearchAPI is the slice of the genai SDK this adapter needs
type fileSearchAPI interface {
	CreateStore(ctx context.Context, displayName string) (*genai.FileSearchStore, error)
	Upload(ctx context.Context, path, storeName string, cfg *genai.UploadToFileSearchStoreConfig) (*genai.UploadToFileSearchStoreOperation, error)
	GetOperation(ctx context.Context, op *genai.UploadToFileSearchStoreOperation) (*genai.UploadToFileSearchStoreOperation, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures a Client
type Options struct {
	Model        string
	PollInterval time.Duration
	MaxPoll      time.Duration
	Logger       *slog.Logger
}

// Client is the RAG adapter. It is safe for concurrent use.
type Client struct {
	api          fileSearchAPI
	model        string
	pollInterval time.Duration
	maxPoll      time.Duration
	logger       *slog.Logger
}

// Store identifies a created file search store
type Store struct {
	StoreName string `json:"store_name"`
	StoreID   string `json:"store_id"`
}

// Upload describes an indexed document
type Upload struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Status   string `json:"status"`
}

// Citation is one grounding reference behind an answer
type Citation struct {
	FileName string   `json:"file_name"`
	Chunk    string   `json:"chunk"`
	Score    *float64 `json:"score"`
}

// Answer is a grounded response to a query
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// New wraps a genai client
func New(client *genai.Client, opts Options) *Client {
	return newClient(sdkAPI{client: client}, opts)
}

func newClient(api fileSearchAPI, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		api:          api,
		model:        opts.Model,
		pollInterval: opts.PollInterval,
		maxPoll:      opts.MaxPoll,
		logger:       opts.Logger,
	}
}

// CreateStore creates a named store. The display name defaults to name.
func (c *Client) CreateStore(ctx context.Context, name, displayName string) (*Store, error) {
	const op = "create file store"
	if strings.TrimSpace(name) == "" {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "name is required")
	}
	if displayName == "" {
		displayName = name
	}
	store, err := c.api.CreateStore(ctx, displayName)
	if err != nil {
		return nil, gemini.Classify(op, err)
	}
	if store == nil || store.Name == "" {
		return nil, backend.Errorf(backend.KindUnknown, op, "backend returned no store name")
	}
	return &Store{StoreName: store.Name, StoreID: ShortID(store.Name)}, nil
}

// ShortID returns the trailing segment of a resource name, or the whole name
// when it has no "/"
func ShortID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Upload indexes a local file into storeName and waits until the backend
// reports the operation done. A missing file fails before any network call.
func (c *Client) Upload(ctx context.Context, storeName, filePath string) (*Upload, error) {
	const op = "upload to file store"
	if strings.TrimSpace(storeName) == "" {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "store_name is required")
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, backend.Errorf(backend.KindNotFound, op, "file not found: %s", filePath)
		}
		return nil, backend.E(backend.KindInvalidInput, op, err)
	}
	if info.IsDir() {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "%s is a directory", filePath)
	}

	fileName := filepath.Base(filePath)
	cfg := &genai.UploadToFileSearchStoreConfig{DisplayName: fileName}
	if mt := mime.TypeByExtension(filepath.Ext(fileName)); mt != "" {
		cfg.MIMEType = mt
	}

	started, err := c.api.Upload(ctx, filePath, storeName, cfg)
	if err != nil {
		return nil, gemini.Classify(op, err)
	}
	finished, err := c.wait(ctx, started)
	if err != nil {
		return nil, err
	}

	fileID := UnknownFileName
	if finished.Response != nil && finished.Response.DocumentName != "" {
		fileID = finished.Response.DocumentName
	}
	return &Upload{FileID: fileID, FileName: fileName, Status: StatusCompleted}, nil
}

// wait polls an upload operation until it is done. The poll interval grows
// exponentially up to a ceiling; transport errors end the wait immediately.
func (c *Client) wait(ctx context.Context, op *genai.UploadToFileSearchStoreOperation) (*genai.UploadToFileSearchStoreOperation, error) {
	const opName = "wait for upload"
	if op == nil {
		return nil, backend.Errorf(backend.KindUnknown, opName, "backend returned no operation")
	}

	current := op
	poll := func() (*genai.UploadToFileSearchStoreOperation, error) {
		if current.Done {
			return current, nil
		}
		next, err := c.api.GetOperation(ctx, current)
		if err != nil {
			return nil, backoff.Permanent(gemini.Classify(opName, err))
		}
		if next != nil {
			current = next
		}
		if !current.Done {
			return nil, errStillRunning
		}
		return current, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.pollInterval
	b.MaxInterval = 10 * c.pollInterval

	done, err := backoff.Retry(ctx, poll,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(c.maxPoll),
		backoff.WithNotify(func(_ error, next time.Duration) {
			c.logger.Debug("upload still indexing", "operation", current.Name, "next_poll", next)
		}),
	)
	if err != nil {
		if errors.Is(err, errStillRunning) {
			return nil, backend.Errorf(backend.KindTimeout, opName, "operation %s did not finish", current.Name)
		}
		return nil, gemini.Classify(opName, err)
	}
	if len(done.Error) > 0 {
		return nil, backend.Errorf(backend.KindBackendUnavailable, opName, "operation failed: %v", done.Error["message"])
	}
	return done, nil
}

// Query asks a grounded question against storeName. Citations are best effort
// and missing grounding metadata yields an empty list, never an error.
func (c *Client) Query(ctx context.Context, storeName, query string) (*Answer, error) {
	const op = "file search query"
	if strings.TrimSpace(storeName) == "" || strings.TrimSpace(query) == "" {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "store_name and query are required")
	}

	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{
			FileSearch: &genai.FileSearch{FileSearchStoreNames: []string{storeName}},
		}},
	}
	resp, err := c.api.GenerateContent(ctx, c.model, genai.Text(query), cfg)
	if err != nil {
		return nil, gemini.Classify(op, err)
	}
	return &Answer{Answer: answerText(resp), Citations: ExtractCitations(resp)}, nil
}

func answerText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 || cand.Content.Parts[0] == nil {
		return ""
	}
	return cand.Content.Parts[0].Text
}

// ExtractCitations reads grounding chunks from the first candidate. A chunk's
// score is the highest confidence of any support that references it.
func ExtractCitations(resp *genai.GenerateContentResponse) []Citation {
	citations := []Citation{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return citations
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return citations
	}

	scores := make(map[int]float64)
	for _, support := range meta.GroundingSupports {
		if support == nil {
			continue
		}
		for i, idx := range support.GroundingChunkIndices {
			if i >= len(support.ConfidenceScores) {
				break
			}
			s := float64(support.ConfidenceScores[i])
			if prev, ok := scores[int(idx)]; !ok || s > prev {
				scores[int(idx)] = s
			}
		}
	}

	for i, chunk := range meta.GroundingChunks {
		cit := Citation{FileName: UnknownFileName}
		if chunk != nil {
			switch {
			case chunk.RetrievedContext != nil:
				rc := chunk.RetrievedContext
				cit.FileName = firstNonEmpty(rc.Title, rc.DocumentName, rc.URI, UnknownFileName)
				cit.Chunk = rc.Text
			case chunk.Web != nil:
				cit.FileName = firstNonEmpty(chunk.Web.Title, chunk.Web.URI, UnknownFileName)
			}
		}
		if s, ok := scores[i]; ok {
			cit.Score = &s
		}
		citations = append(citations, cit)
	}
	return citations
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// sdkAPI adapts *genai.Client to fileSearchAPI
type sdkAPI struct {
	client *genai.Client
}

func (a sdkAPI) CreateStore(ctx context.Context, displayName string) (*genai.FileSearchStore, error) {
	return a.client.FileSearchStores.Create(ctx, &genai.CreateFileSearchStoreConfig{DisplayName: displayName})
}

func (a sdkAPI) Upload(ctx context.Context, path, storeName string, cfg *genai.UploadToFileSearchStoreConfig) (*genai.UploadToFileSearchStoreOperation, error) {
	return a.client.FileSearchStores.UploadToFileSearchStoreFromPath(ctx, path, storeName, cfg)
}

func (a sdkAPI) GetOperation(ctx context.Context, op *genai.UploadToFileSearchStoreOperation) (*genai.UploadToFileSearchStoreOperation, error) {
	return a.client.Operations.GetUploadToFileSearchStoreOperation(ctx, op, nil)
}

func (a sdkAPI) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return a.client.Models.GenerateContent(ctx, model, contents, cfg)
}

// Disabled returns a client whose every call fails as backend_unavailable.
// It stands in when no Gemini credentials are configured.
func Disabled(reason string) *Client {
	return newClient(disabledAPI{reason: reason}, Options{})
}

type disabledAPI struct {
	reason string
}

func (d disabledAPI) err() error {
	return backend.Errorf(backend.KindBackendUnavailable, "gemini", "file search is not configured: %s", d.reason)
}

func (d disabledAPI) CreateStore(context.Context, string) (*genai.FileSearchStore, error) {
	return nil, d.err()
}

func (d disabledAPI) Upload(context.Context, string, string, *genai.UploadToFileSearchStoreConfig) (*genai.UploadToFileSearchStoreOperation, error) {
	return nil, d.err()
}

func (d disabledAPI) GetOperation(context.Context, *genai.UploadToFileSearchStoreOperation) (*genai.UploadToFileSearchStoreOperation, error) {
	return nil, d.err()
}

func (d disabledAPI) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, d.err()
}
