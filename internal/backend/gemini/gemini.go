// Package gemini builds the shared genai client and classifies its errors
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

// Options configures the genai client
type Options struct {
	APIKey  string
	BaseURL string
}

// NewClient creates a Gemini API client
func NewClient(ctx context.Context, opts Options) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// Classify maps a genai error onto the backend taxonomy
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *backend.Error
	if errors.As(err, &be) {
		return be
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return backend.E(backend.KindForStatus(apiErr.Code), op, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return backend.E(backend.KindForStatus(apiErrPtr.Code), op, err)
	}
	return backend.FromContext(op, err)
}
