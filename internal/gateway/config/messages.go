package config

// Messages and identifiers returned to callers
const (
	// ServiceName is reported by health endpoints
	ServiceName = "mcp-server"
	// StatusHealthy is the health status of a running server
	StatusHealthy = "healthy"
	// ServerName is announced during MCP initialisation
	ServerName = "Legal Research Hub"
	// ErrMissingArgument is the format string for absent required arguments
	ErrMissingArgument = "missing required argument: %s"
	// ErrInvalidArgument is the format string for arguments of the wrong shape
	ErrInvalidArgument = "argument %s must be %s"
	// ErrUnknownTool is the format string for calls to unregistered tools
	ErrUnknownTool = "unknown tool: %s"
	// ErrToolPanicked is the format string for recovered handler panics
	ErrToolPanicked = "%s failed unexpectedly: %v"
	// MsgResearchFailed is the format string for resource reads that fail
	MsgResearchFailed = "Error conducting research on '%s': %v"
)
