package research

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

// chatAPI is the slice of the go-openai client OpenAIWriter needs
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIWriter drafts text with OpenAI chat completions
type OpenAIWriter struct {
	client chatAPI
	model  string
}

// NewOpenAIWriter creates a writer. An empty baseURL uses the public API.
func NewOpenAIWriter(apiKey, baseURL, model string) *OpenAIWriter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return newOpenAIWriter(openai.NewClientWithConfig(cfg), model)
}

func newOpenAIWriter(client chatAPI, model string) *OpenAIWriter {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIWriter{client: client, model: model}
}

// Complete sends one chat completion
func (w *OpenAIWriter) Complete(ctx context.Context, system, user string, jsonMode bool) (*Completion, error) {
	const op = "openai completion"
	req := openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := w.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAI(op, err)
	}
	if len(resp.Choices) == 0 {
		return nil, backend.Errorf(backend.KindUnknown, op, "no choices returned")
	}
	return &Completion{
		Text: resp.Choices[0].Message.Content,
		Cost: Cost(w.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}, nil
}

func classifyOpenAI(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return backend.E(backend.KindForStatus(apiErr.HTTPStatusCode), op, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return backend.E(backend.KindForStatus(reqErr.HTTPStatusCode), op, err)
	}
	return backend.FromContext(op, err)
}
