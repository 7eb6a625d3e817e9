package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/legalhub-mcp/internal/tools"
)

func TestHealthCheck(t *testing.T) {
	d := tools.NewDispatcher(tools.Options{})
	require.NoError(t, d.Register(Tool()))

	env := d.Call(context.Background(), "health_check", nil)
	require.True(t, env.OK())
	assert.Equal(t, map[string]any{
		"status":  "healthy",
		"service": "mcp-server",
	}, env.Map())

	res := env.ToolResult()
	assert.False(t, res.IsError)
	assert.Equal(t, map[string]any{"status": "healthy", "service": "mcp-server"}, res.StructuredContent)
}

func TestPayload(t *testing.T) {
	assert.Equal(t, map[string]any{"status": "healthy", "service": "mcp-server"}, Payload())
}
