package rag

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

type fakeAPI struct {
	mu sync.Mutex

	storeName    string
	createErr    error
	createdNames []string

	uploadCalls  int
	uploadCfg    *genai.UploadToFileSearchStoreConfig
	pollsToDone  int
	polls        int
	documentName string
	opError      map[string]any

	response    *genai.GenerateContentResponse
	generateErr error
	lastTools   []*genai.Tool
}

func (f *fakeAPI) CreateStore(ctx context.Context, displayName string) (*genai.FileSearchStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdNames = append(f.createdNames, displayName)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &genai.FileSearchStore{Name: f.storeName, DisplayName: displayName}, nil
}

func (f *fakeAPI) Upload(ctx context.Context, path, storeName string, cfg *genai.UploadToFileSearchStoreConfig) (*genai.UploadToFileSearchStoreOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	f.uploadCfg = cfg
	return &genai.UploadToFileSearchStoreOperation{Name: "operations/upload-1", Done: f.pollsToDone == 0}, nil
}

func (f *fakeAPI) GetOperation(ctx context.Context, op *genai.UploadToFileSearchStoreOperation) (*genai.UploadToFileSearchStoreOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	next := &genai.UploadToFileSearchStoreOperation{Name: op.Name}
	if f.pollsToDone >= 0 && f.polls >= f.pollsToDone {
		next.Done = true
		next.Error = f.opError
		if f.documentName != "" {
			next.Response = &genai.UploadToFileSearchStoreResponse{DocumentName: f.documentName}
		}
	}
	return next, nil
}

func (f *fakeAPI) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTools = cfg.Tools
	return f.response, f.generateErr
}

func testClient(api fileSearchAPI) *Client {
	return newClient(api, Options{
		PollInterval: time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func tempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("The court held..."), 0o600))
	return path
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc123", ShortID("fileSearchStores/abc123"))
	assert.Equal(t, "plain", ShortID("plain"))
	assert.Equal(t, "", ShortID("trailing/"))
}

func TestCreateStore(t *testing.T) {
	api := &fakeAPI{storeName: "fileSearchStores/docs-x1"}
	c := testClient(api)

	store, err := c.CreateStore(context.Background(), "docs", "")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/docs-x1", store.StoreName)
	assert.Equal(t, "docs-x1", store.StoreID)

	_, err = c.CreateStore(context.Background(), "docs", "Case Files")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "Case Files"}, api.createdNames)
}

func TestCreateStoreErrors(t *testing.T) {
	c := testClient(&fakeAPI{createErr: genai.APIError{Code: 403, Message: "denied"}})
	_, err := c.CreateStore(context.Background(), "docs", "")
	assert.Equal(t, backend.KindBackendUnavailable, backend.KindOf(err))

	_, err = c.CreateStore(context.Background(), " ", "")
	assert.Equal(t, backend.KindInvalidInput, backend.KindOf(err))

	_, err = testClient(&fakeAPI{}).CreateStore(context.Background(), "docs", "")
	assert.Equal(t, backend.KindUnknown, backend.KindOf(err))
}

func TestUploadMissingFileFailsBeforeNetwork(t *testing.T) {
	api := &fakeAPI{}
	c := testClient(api)

	_, err := c.Upload(context.Background(), "fileSearchStores/docs", filepath.Join(t.TempDir(), "absent.pdf"))
	require.Error(t, err)
	assert.Equal(t, backend.KindNotFound, backend.KindOf(err))
	assert.Zero(t, api.uploadCalls)
}

func TestUploadRejectsDirectory(t *testing.T) {
	api := &fakeAPI{}
	_, err := testClient(api).Upload(context.Background(), "fileSearchStores/docs", t.TempDir())
	assert.Equal(t, backend.KindInvalidInput, backend.KindOf(err))
	assert.Zero(t, api.uploadCalls)
}

func TestUploadPollsUntilDone(t *testing.T) {
	api := &fakeAPI{pollsToDone: 3, documentName: "fileSearchStores/docs/documents/brief-1"}
	c := testClient(api)
	path := tempFile(t, "brief.txt")

	up, err := c.Upload(context.Background(), "fileSearchStores/docs", path)
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/docs/documents/brief-1", up.FileID)
	assert.Equal(t, "brief.txt", up.FileName)
	assert.Equal(t, StatusCompleted, up.Status)
	assert.Equal(t, 3, api.polls)
	assert.Equal(t, "brief.txt", api.uploadCfg.DisplayName)
	assert.Contains(t, api.uploadCfg.MIMEType, "text/plain")
}

func TestUploadImmediateCompletionDefaultsFileID(t *testing.T) {
	api := &fakeAPI{pollsToDone: 0}
	up, err := testClient(api).Upload(context.Background(), "fileSearchStores/docs", tempFile(t, "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, UnknownFileName, up.FileID)
	assert.Zero(t, api.polls)
}

func TestUploadOperationFailure(t *testing.T) {
	api := &fakeAPI{pollsToDone: 1, opError: map[string]any{"message": "unsupported file"}}
	_, err := testClient(api).Upload(context.Background(), "fileSearchStores/docs", tempFile(t, "x.bin"))
	require.Error(t, err)
	assert.Equal(t, backend.KindBackendUnavailable, backend.KindOf(err))
	assert.Contains(t, err.Error(), "unsupported file")
}

func TestUploadPollLimit(t *testing.T) {
	api := &fakeAPI{pollsToDone: -1}
	c := newClient(api, Options{PollInterval: time.Millisecond, MaxPoll: 20 * time.Millisecond})

	_, err := c.Upload(context.Background(), "fileSearchStores/docs", tempFile(t, "big.pdf"))
	require.Error(t, err)
	assert.Equal(t, backend.KindTimeout, backend.KindOf(err))
}

func TestQueryExtractsAnswerAndCitations(t *testing.T) {
	api := &fakeAPI{response: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "The statute of limitations is two years."}}},
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{RetrievedContext: &genai.GroundingChunkRetrievedContext{Title: "statute.pdf", Text: "two years"}},
					{RetrievedContext: &genai.GroundingChunkRetrievedContext{}},
					nil,
				},
				GroundingSupports: []*genai.GroundingSupport{
					{GroundingChunkIndices: []int32{0}, ConfidenceScores: []float32{0.5}},
					{GroundingChunkIndices: []int32{0, 1}, ConfidenceScores: []float32{0.75}},
				},
			},
		}},
	}}
	c := testClient(api)

	ans, err := c.Query(context.Background(), "fileSearchStores/docs", "limitations period?")
	require.NoError(t, err)
	assert.Equal(t, "The statute of limitations is two years.", ans.Answer)
	require.Len(t, ans.Citations, 3)

	assert.Equal(t, "statute.pdf", ans.Citations[0].FileName)
	assert.Equal(t, "two years", ans.Citations[0].Chunk)
	require.NotNil(t, ans.Citations[0].Score)
	assert.InDelta(t, 0.75, *ans.Citations[0].Score, 1e-6)

	assert.Equal(t, UnknownFileName, ans.Citations[1].FileName)
	assert.Equal(t, "", ans.Citations[1].Chunk)
	assert.Nil(t, ans.Citations[1].Score, "support without a matching score leaves it absent")

	assert.Equal(t, UnknownFileName, ans.Citations[2].FileName)

	require.Len(t, api.lastTools, 1)
	assert.Equal(t, []string{"fileSearchStores/docs"}, api.lastTools[0].FileSearch.FileSearchStoreNames)
}

func TestQueryWithoutGroundingMetadata(t *testing.T) {
	tests := map[string]*genai.GenerateContentResponse{
		"nil response":  nil,
		"no candidates": {},
		"no metadata": {Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "answer"}}},
		}}},
		"no content": {Candidates: []*genai.Candidate{{}}},
	}
	for name, resp := range tests {
		t.Run(name, func(t *testing.T) {
			ans, err := testClient(&fakeAPI{response: resp}).Query(context.Background(), "s", "q")
			require.NoError(t, err)
			assert.NotNil(t, ans.Citations)
			assert.Empty(t, ans.Citations)
		})
	}
}

func TestQueryValidation(t *testing.T) {
	_, err := testClient(&fakeAPI{}).Query(context.Background(), "", "q")
	assert.Equal(t, backend.KindInvalidInput, backend.KindOf(err))
}

func TestCreateUploadQueryEndToEnd(t *testing.T) {
	api := &fakeAPI{
		storeName:   "fileSearchStores/docs-123",
		pollsToDone: 1,
		response:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "ok"}}}}}},
	}
	c := testClient(api)
	ctx := context.Background()

	store, err := c.CreateStore(ctx, "docs", "")
	require.NoError(t, err)

	up, err := c.Upload(ctx, store.StoreName, tempFile(t, "memo.txt"))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, up.Status)

	ans, err := c.Query(ctx, store.StoreName, "anything")
	require.NoError(t, err)
	assert.IsType(t, "", ans.Answer)
	assert.NotNil(t, ans.Citations)
}

func TestDisabled(t *testing.T) {
	c := Disabled("GOOGLE_API_KEY not set")

	_, err := c.CreateStore(context.Background(), "docs", "")
	assert.Equal(t, backend.KindBackendUnavailable, backend.KindOf(err))

	_, err = c.Upload(context.Background(), "s", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, backend.KindNotFound, backend.KindOf(err), "local checks still run first")

	_, err = c.Query(context.Background(), "s", "q")
	assert.Equal(t, backend.KindBackendUnavailable, backend.KindOf(err))
}
