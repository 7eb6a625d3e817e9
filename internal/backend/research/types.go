package research

// Source is one retrieved reference. Immutable once returned.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
}

// SearchResult is one hit from a single-shot search
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Result is the outcome of a completed research run. It is the handle a
// session carries once attached.
type Result struct {
	Query      string
	Context    string
	Sources    []Source
	SourceURLs []string
	Costs      float64
}

// Report is prose generated from a Result
type Report struct {
	Text  string
	Costs float64
}

// SourceSummary is the externally visible shape of a Source
type SourceSummary struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	ContentLength int    `json:"content_length"`
}

// Summarize renders sources for tool responses. Missing titles become "Unknown".
func Summarize(sources []Source) []SourceSummary {
	out := make([]SourceSummary, 0, len(sources))
	for _, s := range sources {
		title := s.Title
		if title == "" {
			title = "Unknown"
		}
		out = append(out, SourceSummary{Title: title, URL: s.URL, ContentLength: len(s.Content)})
	}
	return out
}
