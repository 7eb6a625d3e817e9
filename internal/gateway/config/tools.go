package config

// Tool names exposed by the gateway
const (
	// ToolDeepResearch runs multi-step web research and opens a session
	ToolDeepResearch = "deep_research"
	// ToolQuickSearch runs a single low-latency search
	ToolQuickSearch = "quick_search"
	// ToolWriteReport drafts a report from a completed session
	ToolWriteReport = "write_report"
	// ToolGetResearchSources returns the sources of a session
	ToolGetResearchSources = "get_research_sources"
	// ToolGetResearchContext returns the context of a session
	ToolGetResearchContext = "get_research_context"
	// ToolSearchCases searches case law
	ToolSearchCases = "search_cases"
	// ToolGetOpinion fetches one opinion by ID
	ToolGetOpinion = "get_opinion"
	// ToolLookupCitation resolves a citation string
	ToolLookupCitation = "lookup_citation"
	// ToolCreateFileStore creates a RAG file store
	ToolCreateFileStore = "create_file_store"
	// ToolUploadToFileStore uploads a local file into a store
	ToolUploadToFileStore = "upload_to_file_store"
	// ToolFileSearchQuery queries a store
	ToolFileSearchQuery = "file_search_query"
	// ToolHealthCheck reports liveness
	ToolHealthCheck = "health_check"
	// ToolSaveReportToS3 stores report text in object storage
	ToolSaveReportToS3 = "save_report_to_s3"
	// ToolWebSearch answers a query from a grounded web search
	ToolWebSearch = "web_search"
)

// AllTools returns every tool name in catalogue order
func AllTools() []string {
	return []string{
		ToolDeepResearch,
		ToolQuickSearch,
		ToolWriteReport,
		ToolGetResearchSources,
		ToolGetResearchContext,
		ToolSearchCases,
		ToolGetOpinion,
		ToolLookupCitation,
		ToolCreateFileStore,
		ToolUploadToFileStore,
		ToolFileSearchQuery,
		ToolHealthCheck,
		ToolSaveReportToS3,
		ToolWebSearch,
	}
}

// Resources and prompts exposed alongside the tools
const (
	// ResourceTopicTemplate is the URI template of the topic resource
	ResourceTopicTemplate = "research://{topic}"
	// ResourceTopicScheme prefixes every topic resource URI
	ResourceTopicScheme = "research://"
	// PromptResearchQuery composes a research instruction
	PromptResearchQuery = "research_query"
	// DefaultReportFormat is used when research_query gets no report_format
	DefaultReportFormat = "research_report"
)
