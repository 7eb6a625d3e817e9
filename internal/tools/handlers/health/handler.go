// Package health provides the health_check tool and the body of the HTTP
// health route
package health

import (
	"context"

	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
	"github.com/AltairaLabs/legalhub-mcp/internal/tools"
)

// Payload is the body served on GET /health
func Payload() map[string]any {
	return map[string]any{"status": config.StatusHealthy, "service": config.ServiceName}
}

// Tool returns the health_check catalogue entry. Its payload matches the
// HTTP health body.
func Tool() tools.Tool {
	return tools.Tool{
		Name:        config.ToolHealthCheck,
		Description: "Report whether the server is up.",
		ReadOnly:    true,
		Handler: func(context.Context, tools.Args) (map[string]any, error) {
			return Payload(), nil
		},
	}
}
