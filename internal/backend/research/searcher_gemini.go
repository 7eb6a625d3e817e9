package research

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
	"github.com/AltairaLabs/legalhub-mcp/internal/backend/gemini"
)

const searchSystemPrompt = `You are a meticulous legal research assistant. Search the web, then answer in clear, neutral prose using only facts you found.`

// generator is the slice of the genai SDK GeminiSearcher needs
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSearcher answers queries with Gemini grounded on Google Search
type GeminiSearcher struct {
	models generator
	model  string
}

// NewGeminiSearcher wraps a genai client
func NewGeminiSearcher(client *genai.Client, model string) *GeminiSearcher {
	return newGeminiSearcher(client.Models, model)
}

func newGeminiSearcher(models generator, model string) *GeminiSearcher {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiSearcher{models: models, model: model}
}

// Search runs one grounded generation. Sources come from the web grounding
// chunks; each source's content is the answer text it supports.
func (s *GeminiSearcher) Search(ctx context.Context, query string) (*Finding, error) {
	const op = "grounded search"
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(searchSystemPrompt, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(query), cfg)
	if err != nil {
		return nil, gemini.Classify(op, err)
	}
	if resp == nil {
		return nil, backend.Errorf(backend.KindUnknown, op, "empty response")
	}

	f := &Finding{Query: query, Summary: resp.Text(), Sources: webSources(resp)}
	if u := resp.UsageMetadata; u != nil {
		f.Cost = Cost(s.model, int(u.PromptTokenCount), int(u.CandidatesTokenCount))
	}
	return f, nil
}

func webSources(resp *genai.GenerateContentResponse) []Source {
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata

	supported := make(map[int][]string)
	for _, sup := range meta.GroundingSupports {
		if sup == nil || sup.Segment == nil || sup.Segment.Text == "" {
			continue
		}
		for _, idx := range sup.GroundingChunkIndices {
			supported[int(idx)] = append(supported[int(idx)], sup.Segment.Text)
		}
	}

	var sources []Source
	for i, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.Domain
		}
		sources = append(sources, Source{
			Title:   title,
			URL:     chunk.Web.URI,
			Content: strings.Join(supported[i], " "),
		})
	}
	return sources
}
