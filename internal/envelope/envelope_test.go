package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

func TestSuccessMap(t *testing.T) {
	env := Success(map[string]any{"context": "ctx", "count": 2})

	require.True(t, env.OK())
	assert.Nil(t, env.Failure())

	m := env.Map()
	assert.Equal(t, "success", m["status"])
	assert.Equal(t, "ctx", m["context"])
	assert.Equal(t, 2, m["count"])
	_, hasKind := m["error_kind"]
	assert.False(t, hasKind)
}

func TestSuccessNilPayload(t *testing.T) {
	env := Success(nil)
	assert.NotNil(t, env.Payload())
	assert.Equal(t, map[string]any{"status": "success"}, env.Map())
}

func TestSuccessKeepsPayloadStatus(t *testing.T) {
	env := Success(map[string]any{"file_id": "documents/1", "status": "completed"})

	assert.Equal(t, "completed", env.Map()["status"])
	res := env.ToolResult()
	assert.False(t, res.IsError)
	structured, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", structured["status"])
	assert.Equal(t, "documents/1", structured["file_id"])
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want backend.Kind
	}{
		{"classified", backend.E(backend.KindNotFound, "get_opinion", errors.New("404")), backend.KindNotFound},
		{"wrapped", fmt.Errorf("call: %w", backend.E(backend.KindTimeout, "search", nil)), backend.KindTimeout},
		{"plain", errors.New("boom"), backend.KindUnknown},
		{"nil", nil, backend.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := FromError("search_cases", tt.err)
			require.False(t, env.OK())
			f := env.Failure()
			assert.Equal(t, tt.want, f.Kind)
			assert.Equal(t, "search_cases", f.Tool)
			assert.NotEmpty(t, f.Message)
			assert.Nil(t, env.Payload())
		})
	}
}

func TestToolResult(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		res := Success(map[string]any{"context": "c"}).ToolResult()
		assert.False(t, res.IsError)
		require.Len(t, res.Content, 1)
		text, ok := res.Content[0].(mcp.TextContent)
		require.True(t, ok)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
		assert.Equal(t, "success", decoded["status"])
		assert.Equal(t, "c", decoded["context"])
	})

	t.Run("failure", func(t *testing.T) {
		res := Fail("get_opinion", backend.KindBackendUnavailable, "down").ToolResult()
		assert.True(t, res.IsError)
		structured, ok := res.StructuredContent.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "error", structured["status"])
		assert.Equal(t, "backend_unavailable", structured["error_kind"])
		assert.Equal(t, "get_opinion", structured["tool"])
	})

	t.Run("unencodable payload", func(t *testing.T) {
		res := Success(map[string]any{"ch": make(chan int)}).ToolResult()
		assert.True(t, res.IsError)
	})
}

func TestMarshalJSON(t *testing.T) {
	b, err := json.Marshal(Fail("t", "", "m"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","error_kind":"unknown","message":"m","tool":"t"}`, string(b))
}

func TestErrRoundTrip(t *testing.T) {
	assert.NoError(t, Success(nil).Err())

	err := Fail("", backend.KindNotReady, "still running").Err()
	require.Error(t, err)
	assert.Equal(t, "still running", err.Error())

	back := FromError("get_research_context", err)
	assert.Equal(t, backend.KindNotReady, back.Failure().Kind)
	assert.Equal(t, "still running", back.Failure().Message)
	assert.Equal(t, "get_research_context", back.Failure().Tool)
}
