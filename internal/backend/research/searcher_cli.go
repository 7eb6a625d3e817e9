package research

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strings"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

// CLISearcher answers queries through the gemini command line tool, which
// carries its own authentication. Sources are the URLs cited in the answer.
type CLISearcher struct {
	path string
}

// NewCLISearcher returns a searcher for the binary at path, or an error when
// it cannot be found on PATH
func NewCLISearcher(path string) (*CLISearcher, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("gemini cli not found: %w", err)
	}
	return &CLISearcher{path: resolved}, nil
}

// Search runs the CLI in non-interactive prompt mode
func (s *CLISearcher) Search(ctx context.Context, query string) (*Finding, error) {
	const op = "gemini cli search"
	prompt := "Search the web and answer concisely with source URLs: " + query

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.path, "-p", prompt)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, backend.FromContext(op, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, backend.Errorf(backend.KindBackendUnavailable, op,
				"exit %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, backend.E(backend.KindBackendUnavailable, op, err)
	}
	answer := strings.TrimSpace(stdout.String())
	if answer == "" {
		return nil, backend.Errorf(backend.KindBackendUnavailable, op, "empty answer")
	}
	return &Finding{Query: query, Summary: answer, Sources: extractSources(answer)}, nil
}

var urlPattern = regexp.MustCompile(`https?://[^,\s<>"'\]]+[^.,;:)\]\s<>"']`)

// extractSources turns each distinct URL in text into a source. The title is
// the URL's host and the content is the line that cited it.
func extractSources(text string) []Source {
	seen := make(map[string]bool)
	var sources []Source
	for _, line := range strings.Split(text, "\n") {
		for _, raw := range urlPattern.FindAllString(line, -1) {
			raw = strings.TrimRight(raw, ".,;:)")
			u, err := url.Parse(raw)
			if err != nil || u.Host == "" || seen[raw] {
				continue
			}
			seen[raw] = true
			sources = append(sources, Source{
				Title:   strings.TrimPrefix(u.Hostname(), "www."),
				URL:     raw,
				Content: strings.TrimSpace(line),
			})
		}
	}
	return sources
}
