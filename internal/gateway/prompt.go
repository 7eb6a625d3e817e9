package gateway

import (
	"fmt"
	"strings"

	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
)

const researchPromptTemplate = `Please research the following topic: %[1]s

Goal: %[2]s

You have two ways to reach web-sourced information:

1. Read the "research://%[1]s" resource to get the context for this topic
   directly, without tracking a research ID.

2. Call the %[3]s tool to run new research and receive a research_id. The
   response also carries the context, so you can use it right away.

For legal questions, %[4]s and %[5]s give you primary case law.

Once you have context you can answer from it directly, or call %[6]s with a
custom prompt to produce a structured %[7]s.

Call %[8]s to inspect the sources behind the research.
`

// ResearchPrompt composes topic, goal and a report format into one research
// instruction. An empty format falls back to research_report.
func ResearchPrompt(topic, goal, reportFormat string) string {
	reportFormat = strings.TrimSpace(reportFormat)
	if reportFormat == "" {
		reportFormat = config.DefaultReportFormat
	}
	return fmt.Sprintf(researchPromptTemplate,
		topic,
		goal,
		config.ToolDeepResearch,
		config.ToolSearchCases,
		config.ToolLookupCitation,
		config.ToolWriteReport,
		reportFormat,
		config.ToolGetResearchSources,
	)
}
